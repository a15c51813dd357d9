// Package agentfile reads and writes Claude Code agent definition files:
// YAML frontmatter (name, description, tools, model) followed by the
// system prompt in Markdown. Files live under .claude/agents/ at project
// level or ~/.claude/agents/ at user level.
package agentfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/ecce/internal/model"
)

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Tools       string `yaml:"tools,omitempty"`
	Model       string `yaml:"model,omitempty"`
}

// ProjectDir returns the project-level agents directory under the current
// working directory.
func ProjectDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ".claude", "agents"), nil
}

// UserDir returns the user-level agents directory.
func UserDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "agents"), nil
}

// Write stores the agent as <dir>/<name>.md, creating dir as needed, and
// returns the written path.
func Write(dir string, agent model.Agent) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create agents dir: %w", err)
	}

	fm := frontmatter{
		Name:        agent.Name,
		Description: agent.Description,
		Tools:       strings.Join(agent.Tools, ", "),
		Model:       agent.Model,
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(head)
	sb.WriteString("---\n\n")
	sb.WriteString(agent.SystemPrompt)
	sb.WriteString("\n")

	path := filepath.Join(dir, agent.Name+".md")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write agent file: %w", err)
	}
	return path, nil
}

// Read parses an agent definition file. Context files are not part of the
// file format, so the returned agent has none.
func Read(path string) (model.Agent, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Agent{}, fmt.Errorf("read agent file: %w", err)
	}

	parts := strings.SplitN(string(b), "---", 3)
	if len(parts) < 3 {
		return model.Agent{}, fmt.Errorf("agent file %s: missing frontmatter", path)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return model.Agent{}, fmt.Errorf("agent file %s: parse frontmatter: %w", path, err)
	}
	if fm.Name == "" {
		return model.Agent{}, fmt.Errorf("agent file %s: name is required in frontmatter", path)
	}

	agent := model.Agent{
		Name:         fm.Name,
		Description:  fm.Description,
		SystemPrompt: strings.TrimSpace(parts[2]),
		Model:        fm.Model,
	}
	if fm.Tools != "" {
		for _, t := range strings.Split(fm.Tools, ",") {
			if t = strings.TrimSpace(t); t != "" {
				agent.Tools = append(agent.Tools, t)
			}
		}
	}
	return agent, nil
}

// ReadDir parses every .md file in dir, sorted by file name. A missing
// directory yields an empty result.
func ReadDir(dir string) ([]model.Agent, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agents dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var agents []model.Agent
	for _, name := range names {
		agent, err := Read(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}
