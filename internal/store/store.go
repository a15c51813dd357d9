// Package store persists ecce configuration and the run journal.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/ecce/internal/model"
)

// ErrNotFound is returned when a named profile, agent, task or MCP server
// does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the configuration storage interface.
type Store interface {
	// Profiles.
	PutProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, name string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	// DeleteProfile reports whether the profile existed. Deleting the
	// active or default profile clears that setting.
	DeleteProfile(ctx context.Context, name string) (bool, error)
	SetActiveProfile(ctx context.Context, name string) (bool, error)
	ActiveProfile(ctx context.Context) (*model.Profile, error)
	SetDefaultProfile(ctx context.Context, name string) (bool, error)
	DefaultProfile(ctx context.Context) (*model.Profile, error)
	ClearDefaultProfile(ctx context.Context) error

	// Agents.
	PutAgent(ctx context.Context, a model.Agent) error
	GetAgent(ctx context.Context, name string) (*model.Agent, error)
	ListAgents(ctx context.Context) ([]model.Agent, error)
	DeleteAgent(ctx context.Context, name string) (bool, error)
	SetDefaultAgent(ctx context.Context, name string) (bool, error)
	DefaultAgent(ctx context.Context) (*model.Agent, error)
	ClearDefaultAgent(ctx context.Context) error

	// Tasks.
	PutTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, name string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	DeleteTask(ctx context.Context, name string) (bool, error)

	// MCP servers.
	PutMCPServer(ctx context.Context, s model.MCPServer) error
	GetMCPServer(ctx context.Context, name string) (*model.MCPServer, error)
	ListMCPServers(ctx context.Context) ([]model.MCPServer, error)
	DeleteMCPServer(ctx context.Context, name string) (bool, error)

	// Claude Code executable path, "claude" when unset.
	ClaudeExecutable(ctx context.Context) (string, error)
	SetClaudeExecutable(ctx context.Context, path string) error

	// Run journal.
	RecordRun(ctx context.Context, run model.Run) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	Close() error
}
