// Package watcher tracks one document by timed re-reads and surfaces
// trigger markers the user has newly added. No kernel file notification
// is involved; a whole-file compare against the last observed content is
// the change signal.
package watcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rcliao/ecce/internal/pattern"
)

// DefaultInterval is the poll interval used by New.
const DefaultInterval = 500 * time.Millisecond

// Watcher holds the last observed content of a single file and the
// detector with its processed set.
type Watcher struct {
	last     string
	detector *pattern.Detector
	interval time.Duration
}

// New reads the file at path and returns a watcher primed with its
// current content.
func New(path string) (*Watcher, error) {
	return NewWithInterval(path, DefaultInterval)
}

// NewWithInterval is New with an explicit poll interval.
func NewWithInterval(path string, interval time.Duration) (*Watcher, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read initial file content: %w", err)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		last:     string(b),
		detector: pattern.NewDetector(),
		interval: interval,
	}, nil
}

// Poll runs one sleep-then-read-then-compare cycle. If the file is
// unchanged, or changed without introducing unprocessed triggers, the
// result is empty and the caller is expected to poll again. On change the
// whole current content is re-scanned and becomes the new snapshot.
func (w *Watcher) Poll(ctx context.Context, path string) ([]pattern.Trigger, error) {
	t := time.NewTimer(w.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}
	content := string(b)
	if content == w.last {
		return nil, nil
	}

	triggers := w.detector.DetectNew(content)
	w.last = content
	return triggers, nil
}

// Resync refreshes the snapshot from disk without running detection.
// Called after this process writes the file, so its own edit is not
// mistaken for a user edit on the next poll.
func (w *Watcher) Resync(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file content: %w", err)
	}
	w.last = string(b)
	return nil
}

// MarkProcessed records a payload in the detector's processed set.
func (w *Watcher) MarkProcessed(content string) {
	w.detector.MarkProcessed(content)
}

// Content returns the last observed document text.
func (w *Watcher) Content() string {
	return w.last
}

// Interval returns the configured poll interval.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}
