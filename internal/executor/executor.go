// Package executor generates responses for trigger prompts by invoking
// the Claude Code executable.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/ecce/internal/model"
)

const defaultTemplate = "Answer the following question by creating new slides that explain and elaborate on the concept."

type message struct {
	role    string
	content string
}

// Claude shells out to Claude Code. It keeps the conversation history for
// the session so later prompts carry earlier exchanges. Not safe for
// concurrent use; the session drives one generation at a time.
type Claude struct {
	executable string
	agent      model.Agent
	task       *model.Task
	history    []message
}

// NewClaude returns an executor for the given agent. task may be nil, in
// which case a default slide-authoring instruction is used.
func NewClaude(executable string, agent model.Agent, task *model.Task) *Claude {
	return &Claude{executable: executable, agent: agent, task: task}
}

// loadContext concatenates the agent's context files, each preceded by a
// header naming its source.
func (c *Claude) loadContext() (string, error) {
	var sb strings.Builder
	for _, path := range c.agent.ContextFiles {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read context file %s: %w", path, err)
		}
		fmt.Fprintf(&sb, "\n\n--- Context from %s ---\n", path)
		sb.Write(b)
	}
	return sb.String(), nil
}

// buildPrompt assembles the user prompt: prior conversation, task
// template, context, then the question.
func (c *Claude) buildPrompt(question, contextText string) string {
	template := defaultTemplate
	if c.task != nil {
		template = c.task.Template
	}

	var sb strings.Builder
	if len(c.history) > 0 {
		sb.WriteString("## Previous Conversation:\n\n")
		for _, m := range c.history {
			fmt.Fprintf(&sb, "%s: %s\n\n", m.role, m.content)
		}
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb,
		"%s\n\nContext:\n%s\n\nQuestion: %s\n\nPlease provide slide content in Markdown format.",
		template, contextText, question)
	return sb.String()
}

// Generate runs the Claude Code executable with the agent's system prompt
// and the assembled user prompt, returning trimmed stdout. The subprocess
// is killed when ctx is cancelled. On success the exchange is appended to
// the conversation history.
func (c *Claude) Generate(ctx context.Context, question string) (string, error) {
	contextText, err := c.loadContext()
	if err != nil {
		return "", err
	}
	userPrompt := c.buildPrompt(question, contextText)

	// The system prompt goes through a temp file; it can be long enough
	// to blow past argv limits.
	sysFile, err := os.CreateTemp("", "ecce-system-prompt-*")
	if err != nil {
		return "", fmt.Errorf("create system prompt file: %w", err)
	}
	defer os.Remove(sysFile.Name())
	if _, err := fmt.Fprintln(sysFile, c.agent.SystemPrompt); err != nil {
		sysFile.Close()
		return "", fmt.Errorf("write system prompt file: %w", err)
	}
	if err := sysFile.Close(); err != nil {
		return "", fmt.Errorf("close system prompt file: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.executable,
		"--system-prompt-file", sysFile.Name(), "--", userPrompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("execute %s: %w", c.executable, err)
		}
		return "", fmt.Errorf("execute %s: %w: %s", c.executable, err, msg)
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", fmt.Errorf("%s produced non-UTF-8 output", c.executable)
	}
	response := strings.TrimSpace(stdout.String())

	c.history = append(c.history,
		message{role: "User", content: question},
		message{role: "Assistant", content: response},
	)
	return response, nil
}
