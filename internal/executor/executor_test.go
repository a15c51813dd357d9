package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/ecce/internal/model"
)

// stubExecutable writes a shell script standing in for the real binary.
func stubExecutable(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "claude-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestBuildPromptDefaultTemplate(t *testing.T) {
	c := NewClaude("claude", model.Agent{Name: "pm"}, nil)

	prompt := c.buildPrompt("what is apple?", "")
	if !strings.Contains(prompt, defaultTemplate) {
		t.Error("expected default template in prompt")
	}
	if !strings.Contains(prompt, "Question: what is apple?") {
		t.Errorf("question missing from prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "Please provide slide content in Markdown format.") {
		t.Error("format instruction missing from prompt")
	}
	if strings.Contains(prompt, "Previous Conversation") {
		t.Error("fresh executor should not carry history")
	}
}

func TestBuildPromptTaskTemplate(t *testing.T) {
	task := &model.Task{Name: "qa", Template: "Answer briefly."}
	c := NewClaude("claude", model.Agent{Name: "pm"}, task)

	prompt := c.buildPrompt("q", "ctx body")
	if !strings.Contains(prompt, "Answer briefly.") {
		t.Error("expected task template in prompt")
	}
	if strings.Contains(prompt, defaultTemplate) {
		t.Error("default template should be superseded by the task")
	}
	if !strings.Contains(prompt, "Context:\nctx body") {
		t.Errorf("context missing from prompt: %q", prompt)
	}
}

func TestBuildPromptIncludesHistory(t *testing.T) {
	c := NewClaude("claude", model.Agent{}, nil)
	c.history = []message{
		{role: "User", content: "earlier question"},
		{role: "Assistant", content: "earlier answer"},
	}

	prompt := c.buildPrompt("followup", "")
	if !strings.Contains(prompt, "## Previous Conversation:") {
		t.Error("expected history header")
	}
	if !strings.Contains(prompt, "User: earlier question") ||
		!strings.Contains(prompt, "Assistant: earlier answer") {
		t.Errorf("history exchanges missing: %q", prompt)
	}
	if strings.Index(prompt, "earlier question") > strings.Index(prompt, "Question: followup") {
		t.Error("history should precede the new question")
	}
}

func TestLoadContext(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "a.md")
	f2 := filepath.Join(dir, "b.md")
	os.WriteFile(f1, []byte("alpha"), 0o644)
	os.WriteFile(f2, []byte("beta"), 0o644)

	c := NewClaude("claude", model.Agent{ContextFiles: []string{f1, f2}}, nil)
	got, err := c.loadContext()
	if err != nil {
		t.Fatalf("load context: %v", err)
	}
	if !strings.Contains(got, "--- Context from "+f1+" ---") ||
		!strings.Contains(got, "alpha") ||
		!strings.Contains(got, "beta") {
		t.Errorf("unexpected context: %q", got)
	}
	if strings.Index(got, "alpha") > strings.Index(got, "beta") {
		t.Error("context files out of order")
	}
}

func TestLoadContextMissingFile(t *testing.T) {
	c := NewClaude("claude", model.Agent{ContextFiles: []string{"/no/such/file"}}, nil)
	if _, err := c.loadContext(); err == nil {
		t.Error("expected error for missing context file")
	}
}

func TestGenerateTrimsOutput(t *testing.T) {
	exe := stubExecutable(t, `echo "  the response  "`)
	c := NewClaude(exe, model.Agent{SystemPrompt: "be brief"}, nil)

	got, err := c.Generate(context.Background(), "question")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "the response" {
		t.Errorf("expected trimmed output, got %q", got)
	}
	if len(c.history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(c.history))
	}
	if c.history[0].content != "question" || c.history[1].content != "the response" {
		t.Errorf("unexpected history: %+v", c.history)
	}
}

func TestGeneratePassesPromptAndSystemFile(t *testing.T) {
	// Args are: --system-prompt-file <path> -- <prompt>; the stub echoes
	// the system prompt file's content plus the user prompt.
	exe := stubExecutable(t, `cat "$2"; echo "$4"`)
	agent := model.Agent{SystemPrompt: "you are a presenter"}
	c := NewClaude(exe, agent, nil)

	got, err := c.Generate(context.Background(), "what is apple?")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(got, "you are a presenter") {
		t.Errorf("system prompt not passed through file: %q", got)
	}
	if !strings.Contains(got, "Question: what is apple?") {
		t.Errorf("user prompt not passed as argument: %q", got)
	}
}

func TestGenerateFailureIncludesStderr(t *testing.T) {
	exe := stubExecutable(t, `echo "boom" >&2; exit 3`)
	c := NewClaude(exe, model.Agent{}, nil)

	_, err := c.Generate(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got %v", err)
	}
	if len(c.history) != 0 {
		t.Error("failed generation must not extend history")
	}
}

func TestGenerateCancelled(t *testing.T) {
	exe := stubExecutable(t, `sleep 30`)
	c := NewClaude(exe, model.Agent{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestGenerateMissingExecutable(t *testing.T) {
	c := NewClaude(filepath.Join(t.TempDir(), "absent"), model.Agent{}, nil)
	if _, err := c.Generate(context.Background(), "q"); err == nil {
		t.Error("expected error for missing executable")
	}
}
