package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/ecce/internal/model"
)

// Settings keys.
const (
	settingActiveProfile    = "active_profile"
	settingDefaultProfile   = "default_profile"
	settingDefaultAgent     = "default_agent"
	settingClaudeExecutable = "claude_executable"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		name       TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		key        TEXT NOT NULL,
		service    TEXT NOT NULL DEFAULT 'claude-code',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		name          TEXT PRIMARY KEY,
		description   TEXT,
		system_prompt TEXT NOT NULL,
		context_files TEXT,
		tools         TEXT,
		model         TEXT
	);

	CREATE TABLE IF NOT EXISTS tasks (
		name     TEXT PRIMARY KEY,
		template TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mcp_servers (
		name   TEXT PRIMARY KEY,
		config TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		file        TEXT NOT NULL,
		kind        TEXT NOT NULL,
		prompt      TEXT NOT NULL,
		status      TEXT NOT NULL,
		error       TEXT,
		duration_ms INTEGER NOT NULL,
		started_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- settings helpers ---

func (s *SQLiteStore) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteStore) deleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// --- profiles ---

func (s *SQLiteStore) PutProfile(ctx context.Context, p model.Profile) error {
	service := p.Service
	if service == "" {
		service = "claude-code"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (name, url, key, service, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET url = excluded.url, key = excluded.key, service = excluded.service`,
		p.Name, p.URL, p.Key, service, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, name string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT name, url, key, service FROM profiles WHERE name = ?`, name).
		Scan(&p.Name, &p.URL, &p.Key, &p.Service)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url, key, service FROM profiles ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.Name, &p.URL, &p.Key, &p.Service); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	for _, key := range []string{settingActiveProfile, settingDefaultProfile} {
		if current, err := s.getSetting(ctx, key); err != nil {
			return true, err
		} else if current == name {
			if err := s.deleteSetting(ctx, key); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}

func (s *SQLiteStore) SetActiveProfile(ctx context.Context, name string) (bool, error) {
	return s.setNamedSetting(ctx, settingActiveProfile, `SELECT 1 FROM profiles WHERE name = ?`, name)
}

func (s *SQLiteStore) ActiveProfile(ctx context.Context) (*model.Profile, error) {
	return s.profileFromSetting(ctx, settingActiveProfile)
}

func (s *SQLiteStore) SetDefaultProfile(ctx context.Context, name string) (bool, error) {
	return s.setNamedSetting(ctx, settingDefaultProfile, `SELECT 1 FROM profiles WHERE name = ?`, name)
}

func (s *SQLiteStore) DefaultProfile(ctx context.Context) (*model.Profile, error) {
	return s.profileFromSetting(ctx, settingDefaultProfile)
}

func (s *SQLiteStore) ClearDefaultProfile(ctx context.Context) error {
	return s.deleteSetting(ctx, settingDefaultProfile)
}

// setNamedSetting stores name under key after checking the referenced row
// exists. Returns false when it does not.
func (s *SQLiteStore) setNamedSetting(ctx context.Context, key, existsQuery, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, existsQuery, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.setSetting(ctx, key, name); err != nil {
		return false, err
	}
	return true, nil
}

// profileFromSetting resolves a profile named by a setting; nil when the
// setting is unset.
func (s *SQLiteStore) profileFromSetting(ctx context.Context, key string) (*model.Profile, error) {
	name, err := s.getSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	return s.GetProfile(ctx, name)
}

// --- agents ---

func (s *SQLiteStore) PutAgent(ctx context.Context, a model.Agent) error {
	contextFiles, err := marshalList(a.ContextFiles)
	if err != nil {
		return err
	}
	tools, err := marshalList(a.Tools)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (name, description, system_prompt, context_files, tools, model)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   description = excluded.description,
		   system_prompt = excluded.system_prompt,
		   context_files = excluded.context_files,
		   tools = excluded.tools,
		   model = excluded.model`,
		a.Name, nullable(a.Description), a.SystemPrompt, contextFiles, tools, nullable(a.Model))
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAgent(ctx context.Context, name string) (*model.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, description, system_prompt, context_files, tools, model
		 FROM agents WHERE name = ?`, name)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, system_prompt, context_files, tools, model
		 FROM agents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (s *SQLiteStore) DeleteAgent(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if current, err := s.getSetting(ctx, settingDefaultAgent); err != nil {
		return true, err
	} else if current == name {
		if err := s.deleteSetting(ctx, settingDefaultAgent); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (s *SQLiteStore) SetDefaultAgent(ctx context.Context, name string) (bool, error) {
	return s.setNamedSetting(ctx, settingDefaultAgent, `SELECT 1 FROM agents WHERE name = ?`, name)
}

func (s *SQLiteStore) DefaultAgent(ctx context.Context) (*model.Agent, error) {
	name, err := s.getSetting(ctx, settingDefaultAgent)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	return s.GetAgent(ctx, name)
}

func (s *SQLiteStore) ClearDefaultAgent(ctx context.Context) error {
	return s.deleteSetting(ctx, settingDefaultAgent)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*model.Agent, error) {
	var a model.Agent
	var description, contextFiles, tools, agentModel sql.NullString
	if err := row.Scan(&a.Name, &description, &a.SystemPrompt, &contextFiles, &tools, &agentModel); err != nil {
		return nil, err
	}
	a.Description = description.String
	a.Model = agentModel.String
	if contextFiles.Valid {
		if err := json.Unmarshal([]byte(contextFiles.String), &a.ContextFiles); err != nil {
			return nil, fmt.Errorf("decode context_files: %w", err)
		}
	}
	if tools.Valid {
		if err := json.Unmarshal([]byte(tools.String), &a.Tools); err != nil {
			return nil, fmt.Errorf("decode tools: %w", err)
		}
	}
	return &a, nil
}

// --- tasks ---

func (s *SQLiteStore) PutTask(ctx context.Context, t model.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (name, template) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET template = excluded.template`,
		t.Name, t.Template)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, name string) (*model.Task, error) {
	var t model.Task
	err := s.db.QueryRowContext(ctx,
		`SELECT name, template FROM tasks WHERE name = ?`, name).
		Scan(&t.Name, &t.Template)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, template FROM tasks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.Name, &t.Template); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- MCP servers ---

func (s *SQLiteStore) PutMCPServer(ctx context.Context, srv model.MCPServer) error {
	if !json.Valid(srv.Config) {
		return fmt.Errorf("mcp server %q: config is not valid JSON", srv.Name)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mcp_servers (name, config) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET config = excluded.config`,
		srv.Name, string(srv.Config))
	if err != nil {
		return fmt.Errorf("insert mcp server: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMCPServer(ctx context.Context, name string) (*model.MCPServer, error) {
	var srv model.MCPServer
	var config string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, config FROM mcp_servers WHERE name = ?`, name).
		Scan(&srv.Name, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mcp server %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	srv.Config = json.RawMessage(config)
	return &srv, nil
}

func (s *SQLiteStore) ListMCPServers(ctx context.Context) ([]model.MCPServer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, config FROM mcp_servers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []model.MCPServer
	for rows.Next() {
		var srv model.MCPServer
		var config string
		if err := rows.Scan(&srv.Name, &config); err != nil {
			return nil, err
		}
		srv.Config = json.RawMessage(config)
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}

func (s *SQLiteStore) DeleteMCPServer(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mcp_servers WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- claude executable ---

func (s *SQLiteStore) ClaudeExecutable(ctx context.Context) (string, error) {
	path, err := s.getSetting(ctx, settingClaudeExecutable)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "claude", nil
	}
	return path, nil
}

func (s *SQLiteStore) SetClaudeExecutable(ctx context.Context, path string) error {
	return s.setSetting(ctx, settingClaudeExecutable, path)
}

// --- runs ---

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = s.newID()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, file, kind, prompt, status, error, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.File, run.Kind, run.Prompt, run.Status,
		nullable(run.Error), run.DurationMS, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file, kind, prompt, status, error, duration_ms, started_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var errText sql.NullString
		var startedAt string
		if err := rows.Scan(&r.ID, &r.File, &r.Kind, &r.Prompt, &r.Status,
			&errText, &r.DurationMS, &startedAt); err != nil {
			return nil, err
		}
		r.Error = errText.String
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- helpers ---

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalList(items []string) (*string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	v := string(b)
	return &v, nil
}
