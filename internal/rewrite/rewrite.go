// Package rewrite replaces trigger markers inside the watched document.
package rewrite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound means no candidate form of the marker text is present in
// the file.
var ErrNotFound = errors.New("pattern not found in file")

// candidates lists the textual forms a marker may take on disk, in the
// order they are tried. Whitespace around the payload varies with how the
// user typed the marker, so several paddings are attempted before falling
// back to the bare text; the bare form is also what matches an injected
// placeholder, whose surrounding markers are already gone. Block fences
// come last.
func candidates(old string) []string {
	trimmed := strings.TrimSpace(old)
	return []string{
		"ecce " + old + " ecce",
		"ecce  " + old + "  ecce",
		"ecce\n" + old + "\necce",
		"ecce " + trimmed + " ecce",
		"ecce  " + trimmed + "  ecce",
		old,
		// The fenced forms sit below the bare text on purpose: a block
		// payload is a substring of its own fenced block, so the bare
		// candidate matches first and only the interior is rewritten.
		// These are reachable only when the payload text itself is no
		// longer present inside the block region.
		"```ecce\n" + old + "\n```",
		"```ecce\n" + trimmed + "\n```",
		"```ecce\n  " + trimmed + "\n```",
	}
}

// Replace substitutes the first occurrence of the first matching
// candidate form of old with new and writes the file back through a temp
// file and rename. Returns ErrNotFound when every candidate misses.
func Replace(path, old, new string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file for replacement: %w", err)
	}
	content := string(b)

	for _, c := range candidates(old) {
		if strings.Contains(content, c) {
			return writeAtomic(path, strings.Replace(content, c, new, 1))
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, old)
}

// writeAtomic writes content to a temp file in the target's directory
// and renames it over the target, keeping the target's mode.
func writeAtomic(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ecce-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
