package store

import (
	"context"

	"github.com/rcliao/ecce/internal/model"
)

// ConfigDump is the full configuration in portable form, as produced by
// Export and consumed by Import.
type ConfigDump struct {
	Profiles         []model.Profile   `json:"profiles,omitempty"`
	Agents           []model.Agent     `json:"agents,omitempty"`
	Tasks            []model.Task      `json:"tasks,omitempty"`
	MCPServers       []model.MCPServer `json:"mcp_servers,omitempty"`
	ActiveProfile    string            `json:"active_profile,omitempty"`
	DefaultProfile   string            `json:"default_profile,omitempty"`
	DefaultAgent     string            `json:"default_agent,omitempty"`
	ClaudeExecutable string            `json:"claude_executable,omitempty"`
}

// Export returns everything except the run journal.
func (s *SQLiteStore) Export(ctx context.Context) (*ConfigDump, error) {
	dump := &ConfigDump{}
	var err error

	if dump.Profiles, err = s.ListProfiles(ctx); err != nil {
		return nil, err
	}
	if dump.Agents, err = s.ListAgents(ctx); err != nil {
		return nil, err
	}
	if dump.Tasks, err = s.ListTasks(ctx); err != nil {
		return nil, err
	}
	if dump.MCPServers, err = s.ListMCPServers(ctx); err != nil {
		return nil, err
	}

	for key, dst := range map[string]*string{
		settingActiveProfile:    &dump.ActiveProfile,
		settingDefaultProfile:   &dump.DefaultProfile,
		settingDefaultAgent:     &dump.DefaultAgent,
		settingClaudeExecutable: &dump.ClaudeExecutable,
	} {
		if *dst, err = s.getSetting(ctx, key); err != nil {
			return nil, err
		}
	}
	return dump, nil
}

// Import loads a dump, overwriting entries with the same names. Returns
// how many profiles, agents, tasks and MCP servers were written.
func (s *SQLiteStore) Import(ctx context.Context, dump *ConfigDump) (int, error) {
	imported := 0
	for _, p := range dump.Profiles {
		if err := s.PutProfile(ctx, p); err != nil {
			return imported, err
		}
		imported++
	}
	for _, a := range dump.Agents {
		if err := s.PutAgent(ctx, a); err != nil {
			return imported, err
		}
		imported++
	}
	for _, t := range dump.Tasks {
		if err := s.PutTask(ctx, t); err != nil {
			return imported, err
		}
		imported++
	}
	for _, srv := range dump.MCPServers {
		if err := s.PutMCPServer(ctx, srv); err != nil {
			return imported, err
		}
		imported++
	}

	for key, value := range map[string]string{
		settingActiveProfile:    dump.ActiveProfile,
		settingDefaultProfile:   dump.DefaultProfile,
		settingDefaultAgent:     dump.DefaultAgent,
		settingClaudeExecutable: dump.ClaudeExecutable,
	} {
		if value == "" {
			continue
		}
		if err := s.setSetting(ctx, key, value); err != nil {
			return imported, err
		}
	}
	return imported, nil
}
