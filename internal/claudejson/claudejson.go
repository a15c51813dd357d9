// Package claudejson edits the Claude Code configuration file
// (~/.claude.json) to install and remove MCP server entries, either
// globally or per project.
package claudejson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Path returns the location of the Claude Code configuration file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".claude.json"), nil
}

// Load reads the configuration. A missing file yields an empty skeleton
// rather than an error.
func Load(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{"projects": map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration back, pretty-printed.
func Save(path string, cfg map[string]any) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Install adds a server entry. An empty project installs globally under
// the top-level mcpServers key; otherwise the entry goes under
// projects.<project>.mcpServers.
func Install(cfg map[string]any, name string, serverCfg json.RawMessage, project string) error {
	var decoded any
	if err := json.Unmarshal(serverCfg, &decoded); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	serversFor(cfg, project)[name] = decoded
	return nil
}

// Uninstall removes a server entry, reporting whether it existed.
func Uninstall(cfg map[string]any, name, project string) bool {
	servers := existingServers(cfg, project)
	if servers == nil {
		return false
	}
	if _, ok := servers[name]; !ok {
		return false
	}
	delete(servers, name)
	return true
}

// Servers lists installed server names for the global scope (empty
// project) or a project path, sorted.
func Servers(cfg map[string]any, project string) []string {
	servers := existingServers(cfg, project)
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// serversFor returns the mcpServers object for the scope, creating the
// intermediate objects as needed.
func serversFor(cfg map[string]any, project string) map[string]any {
	parent := cfg
	if project != "" {
		projects := ensureObject(cfg, "projects")
		parent = ensureObject(projects, project)
	}
	return ensureObject(parent, "mcpServers")
}

// existingServers is serversFor without creation; nil when the scope has
// no servers object.
func existingServers(cfg map[string]any, project string) map[string]any {
	parent := cfg
	if project != "" {
		projects, ok := cfg["projects"].(map[string]any)
		if !ok {
			return nil
		}
		if parent, ok = projects[project].(map[string]any); !ok {
			return nil
		}
	}
	servers, _ := parent["mcpServers"].(map[string]any)
	return servers
}

func ensureObject(parent map[string]any, key string) map[string]any {
	if obj, ok := parent[key].(map[string]any); ok {
		return obj
	}
	obj := map[string]any{}
	parent[key] = obj
	return obj
}
