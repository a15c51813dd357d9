package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/ecce/internal/model"
	"github.com/rcliao/ecce/internal/watcher"
)

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) set(response string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.response = response
	g.err = err
}

func (g *fakeGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

type fakeJournal struct {
	runs []model.Run
}

func (j *fakeJournal) RecordRun(ctx context.Context, run model.Run) (*model.Run, error) {
	j.runs = append(j.runs, run)
	return &run, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	return string(b)
}

// waitForContent polls until the file matches want or the deadline passes.
func waitForContent(t *testing.T, path, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(path); err == nil && string(b) == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("file never reached expected content, last: %q", readFile(t, path))
}

func startSession(t *testing.T, path string, gen Generator, j Journal) (context.CancelFunc, chan error) {
	t.Helper()
	w, err := watcher.NewWithInterval(path, 2*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	s := New(path, w, gen, Options{Journal: j, Out: &bytes.Buffer{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func stopSession(t *testing.T, cancel context.CancelFunc, done chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("session ended with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
}

func TestSessionReplacesMarkerWithResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.md")
	writeFile(t, path, "# Title\n")

	gen := &fakeGenerator{response: "Apples are fruit."}
	j := &fakeJournal{}
	cancel, done := startSession(t, path, gen, j)

	writeFile(t, path, "# Title\necce what is apple? ecce\n")
	waitForContent(t, path, "# Title\nApples are fruit.\n")
	stopSession(t, cancel, done)

	if len(gen.calls()) != 1 || gen.calls()[0] != "what is apple?" {
		t.Errorf("unexpected prompts: %v", gen.calls())
	}
	if len(j.runs) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(j.runs))
	}
	run := j.runs[0]
	if run.Status != model.RunOK {
		t.Errorf("expected ok status, got %q", run.Status)
	}
	if run.Prompt != "what is apple?" || run.Kind != "inline" || run.File != path {
		t.Errorf("unexpected run fields: %+v", run)
	}
}

func TestSessionBlockMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.md")
	writeFile(t, path, "start\n")

	gen := &fakeGenerator{response: "- point one\n- point two"}
	cancel, done := startSession(t, path, gen, nil)

	// The payload is replaced inside the fences; the fences themselves
	// are kept, since the bare payload text matches first.
	writeFile(t, path, "start\n```ecce\nsummarize this\n```\n")
	waitForContent(t, path, "start\n```ecce\n- point one\n- point two\n```\n")
	stopSession(t, cancel, done)

	if len(gen.calls()) != 1 || gen.calls()[0] != "summarize this" {
		t.Errorf("unexpected prompts: %v", gen.calls())
	}
}

func TestSessionWritesFailureNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.md")
	writeFile(t, path, "doc\n")

	gen := &fakeGenerator{err: errors.New("model unavailable")}
	j := &fakeJournal{}
	cancel, done := startSession(t, path, gen, j)

	writeFile(t, path, "doc\necce broken ecce\n")
	waitForContent(t, path, "doc\n⚠️ Generation failed: model unavailable\n")
	stopSession(t, cancel, done)

	if len(j.runs) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(j.runs))
	}
	if j.runs[0].Status != model.RunError {
		t.Errorf("expected error status, got %q", j.runs[0].Status)
	}
	if !strings.Contains(j.runs[0].Error, "model unavailable") {
		t.Errorf("expected journaled error, got %q", j.runs[0].Error)
	}
}

func TestSessionRetriesAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.md")
	writeFile(t, path, "doc\n")

	gen := &fakeGenerator{err: errors.New("down")}
	cancel, done := startSession(t, path, gen, nil)

	writeFile(t, path, "doc\necce retry me ecce\n")
	waitForContent(t, path, "doc\n⚠️ Generation failed: down\n")

	// The payload was not marked processed, so retyping the marker
	// triggers a second attempt.
	gen.set("worked", nil)
	writeFile(t, path, "doc\necce retry me ecce\n")
	waitForContent(t, path, "doc\nworked\n")
	stopSession(t, cancel, done)

	if len(gen.calls()) != 2 {
		t.Errorf("expected 2 generation attempts, got %d", len(gen.calls()))
	}
}

func TestSessionProcessesSequentially(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.md")
	writeFile(t, path, "doc\n")

	gen := &fakeGenerator{response: "answer"}
	cancel, done := startSession(t, path, gen, nil)

	writeFile(t, path, "doc\necce one ecce\necce two ecce\n")
	waitForContent(t, path, "doc\nanswer\nanswer\n")
	stopSession(t, cancel, done)

	if len(gen.calls()) != 2 || gen.calls()[0] != "one" || gen.calls()[1] != "two" {
		t.Errorf("expected in-order prompts [one two], got %v", gen.calls())
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short"); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := preview("first line\nsecond"); got != "first line" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("a", 80)
	if got := preview(long); got != strings.Repeat("a", 60)+"..." {
		t.Errorf("got %q", got)
	}
}
