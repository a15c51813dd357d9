// Package model defines the configuration and run-journal types.
package model

import (
	"encoding/json"
	"time"
)

// Profile is a set of API credentials for a generation backend.
type Profile struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Key     string `json:"key"`
	Service string `json:"service"`
}

// Agent describes a persona: system prompt plus the context files and
// tool/model hints passed along to Claude Code.
type Agent struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	SystemPrompt string   `json:"system_prompt"`
	ContextFiles []string `json:"context_files,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Task is a reusable prompt template prepended to every question.
type Task struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// MCPServer is a named MCP server registration. Config is kept as raw
// JSON so arbitrary server shapes survive a round trip.
type MCPServer struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

// Run statuses.
const (
	RunOK    = "ok"
	RunError = "error"
)

// Run is one journal entry for a processed trigger.
type Run struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	Kind       string    `json:"kind"`
	Prompt     string    `json:"prompt"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// ValidServices are the recognized profile service types.
var ValidServices = map[string]bool{
	"claude-code": true,
	"codex":       true,
}
