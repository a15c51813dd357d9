package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func newTestWatcher(t *testing.T, content string) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slides.md")
	writeFile(t, path, content)
	w, err := NewWithInterval(path, time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w, path
}

func TestNewReadsInitialContent(t *testing.T) {
	w, _ := newTestWatcher(t, "initial")
	if w.Content() != "initial" {
		t.Errorf("expected initial snapshot, got %q", w.Content())
	}
}

func TestNewMissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.md")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPollUnchanged(t *testing.T) {
	w, path := newTestWatcher(t, "stable")

	triggers, err := w.Poll(context.Background(), path)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(triggers) != 0 {
		t.Errorf("expected no triggers for unchanged file, got %d", len(triggers))
	}
}

func TestPollDetectsNewTrigger(t *testing.T) {
	w, path := newTestWatcher(t, "hello")
	writeFile(t, path, "hello ecce what is apple? ecce")

	triggers, err := w.Poll(context.Background(), path)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if triggers[0].Content != "what is apple?" {
		t.Errorf("unexpected trigger content %q", triggers[0].Content)
	}
	if w.Content() != "hello ecce what is apple? ecce" {
		t.Errorf("snapshot not updated, got %q", w.Content())
	}
}

func TestPollDeduplicatesAcrossPolls(t *testing.T) {
	w, path := newTestWatcher(t, "hello")
	writeFile(t, path, "hello ecce question ecce")

	triggers, err := w.Poll(context.Background(), path)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	w.MarkProcessed(triggers[0].Content)

	// Force another change; the old payload must not resurface.
	writeFile(t, path, "hello ecce question ecce trailing edit")
	triggers, err = w.Poll(context.Background(), path)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(triggers) != 0 {
		t.Errorf("expected processed payload filtered, got %d triggers", len(triggers))
	}
}

func TestResyncSuppressesOwnWrite(t *testing.T) {
	w, path := newTestWatcher(t, "hello")

	// Simulate our own write followed by Resync. The written text still
	// contains a marker; the refreshed snapshot keeps it from being
	// re-scanned on the next poll.
	writeFile(t, path, "hello ecce pending ecce")
	if err := w.Resync(path); err != nil {
		t.Fatalf("resync: %v", err)
	}

	triggers, err := w.Poll(context.Background(), path)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(triggers) != 0 {
		t.Errorf("expected no triggers after resync, got %d", len(triggers))
	}
}

func TestPollCancelled(t *testing.T) {
	w, path := newTestWatcher(t, "hello")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Poll(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPollFileDeleted(t *testing.T) {
	w, path := newTestWatcher(t, "hello")
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := w.Poll(context.Background(), path); err == nil {
		t.Error("expected error when file disappears")
	}
}

func TestIntervalDefaulting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.md")
	writeFile(t, path, "x")

	w, err := NewWithInterval(path, 0)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if w.Interval() != DefaultInterval {
		t.Errorf("expected default interval, got %v", w.Interval())
	}
}
