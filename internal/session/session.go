// Package session drives the watch loop: poll the document for new
// triggers, and take each one through marker → placeholder → generated
// response, resyncing the watcher after every write so the session's own
// edits are not re-detected.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rcliao/ecce/internal/model"
	"github.com/rcliao/ecce/internal/pattern"
	"github.com/rcliao/ecce/internal/rewrite"
	"github.com/rcliao/ecce/internal/watcher"
)

// Placeholder is written over a marker the moment it is picked up. It is
// also the handle the final replacement looks for, so it must stay stable
// for the lifetime of one trigger.
const Placeholder = "🤖 Generating response..."

// Generator produces a response for one trigger payload. The call may
// block for an arbitrary time and must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Journal records the outcome of each processed trigger, success or
// failure. It is an audit trail only; dedup state never comes from it.
type Journal interface {
	RecordRun(ctx context.Context, run model.Run) (*model.Run, error)
}

// Options configures a Session.
type Options struct {
	Journal Journal   // optional run journal
	Out     io.Writer // progress output; defaults to io.Discard
}

// Session owns one watcher and one generator for the lifetime of a watch.
// Triggers are processed strictly one at a time: there is exactly one
// writer to the file.
type Session struct {
	path    string
	watcher *watcher.Watcher
	gen     Generator
	journal Journal
	out     io.Writer
}

func New(path string, w *watcher.Watcher, gen Generator, opts Options) *Session {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Session{
		path:    path,
		watcher: w,
		gen:     gen,
		journal: opts.Journal,
		out:     out,
	}
}

// Run polls until ctx is cancelled or a read fails. Per-trigger errors
// are reported and the loop continues; I/O errors terminate the session.
func (s *Session) Run(ctx context.Context) error {
	for {
		triggers, err := s.watcher.Poll(ctx, s.path)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(triggers) == 0 {
			continue
		}

		fmt.Fprintf(s.out, "\n🔍 Found %d new pattern(s)\n", len(triggers))

		for i, tr := range triggers {
			fmt.Fprintf(s.out, "\n▶ Pattern %d/%d [%s]: %s\n",
				i+1, len(triggers), tr.Kind, preview(tr.Content))

			start := time.Now()
			err := s.process(ctx, tr)
			s.record(ctx, tr, start, err)

			if err != nil {
				if ctx.Err() != nil {
					// The placeholder may still be sitting in the file.
					fmt.Fprintf(s.out, "  ⚠️ Interrupted mid-pattern; %s may hold an unfinished placeholder\n", s.path)
					return nil
				}
				fmt.Fprintf(s.out, "  ❌ Error: %v\n", err)
				continue
			}
			fmt.Fprintln(s.out, "  ✅ Success")
		}

		fmt.Fprintln(s.out, "\n👀 Continuing to watch...")
	}
}

// process takes one trigger through the full state sequence:
// placeholder written → generation → replaced with result → marked
// processed. The payload is marked processed only on success so a retyped
// marker retries after a failure.
func (s *Session) process(ctx context.Context, tr pattern.Trigger) error {
	fmt.Fprintln(s.out, "  🤖 Generating response...")

	if err := rewrite.Replace(s.path, tr.Content, Placeholder); err != nil {
		return err
	}
	if err := s.watcher.Resync(s.path); err != nil {
		return err
	}

	response, err := s.gen.Generate(ctx, tr.Content)
	if err != nil {
		// Swap the placeholder for a visible failure note so the document
		// does not look forever pending.
		if ctx.Err() == nil {
			if rerr := rewrite.Replace(s.path, Placeholder, failureNote(err)); rerr == nil {
				s.watcher.Resync(s.path)
			}
		}
		return fmt.Errorf("generate response: %w", err)
	}

	fmt.Fprintln(s.out, "  📝 Replacing with response...")

	if err := rewrite.Replace(s.path, Placeholder, response); err != nil {
		return err
	}
	if err := s.watcher.Resync(s.path); err != nil {
		return err
	}

	s.watcher.MarkProcessed(tr.Content)
	return nil
}

func (s *Session) record(ctx context.Context, tr pattern.Trigger, start time.Time, runErr error) {
	if s.journal == nil {
		return
	}
	run := model.Run{
		File:       s.path,
		Kind:       tr.Kind.String(),
		Prompt:     tr.Content,
		Status:     model.RunOK,
		DurationMS: time.Since(start).Milliseconds(),
		StartedAt:  start.UTC(),
	}
	if runErr != nil {
		run.Status = model.RunError
		run.Error = runErr.Error()
	}
	// Record even when the watch context was just cancelled.
	if _, err := s.journal.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		fmt.Fprintf(s.out, "  ⚠️ Record run: %v\n", err)
	}
}

func failureNote(err error) string {
	return fmt.Sprintf("⚠️ Generation failed: %v", err)
}

// preview returns the first line of s, capped at 60 runes.
func preview(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return s
}
