// Package pattern detects ecce trigger markers embedded in a document.
//
// Two grammars are recognized: inline ("ecce <prompt> ecce") and fenced
// block ("```ecce" ... "```"). Payloads already dispatched are tracked by
// a fingerprint of their trimmed text so the same request is never
// surfaced twice within one process.
package pattern

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Kind identifies which grammar produced a trigger.
type Kind int

const (
	Inline Kind = iota
	Block
)

func (k Kind) String() string {
	if k == Block {
		return "block"
	}
	return "inline"
}

// Trigger is one detected prompt. Start and End are byte offsets into the
// text the trigger was detected in; they are stale as soon as the
// document changes, so replacement locates markers by content instead.
type Trigger struct {
	Content string
	Start   int
	End     int
	Kind    Kind
}

var (
	inlineRe = regexp.MustCompile(`ecce\s+(.*?)\s+ecce`)
	blockRe  = regexp.MustCompile("(?s)```ecce[ \t]*\n(.*?)\n```")
)

// Fingerprint returns the dedup key for a payload: the SHA-256 hex digest
// of its trimmed text. Identical payloads fingerprint identically no
// matter which grammar or document position they came from.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}

// Detector finds triggers and owns the set of processed fingerprints.
// The set lives only as long as the process.
type Detector struct {
	processed map[string]struct{}
}

func NewDetector() *Detector {
	return &Detector{processed: make(map[string]struct{})}
}

// Processed reports whether a payload has been marked processed.
func (d *Detector) Processed(content string) bool {
	_, ok := d.processed[Fingerprint(content)]
	return ok
}

// MarkProcessed records a payload so DetectNew stops returning it.
func (d *Detector) MarkProcessed(content string) {
	d.processed[Fingerprint(content)] = struct{}{}
}

// Detect returns every trigger in text, both grammars merged and ordered
// by ascending start offset, regardless of processed state. Identical
// input yields identical output.
func (d *Detector) Detect(text string) []Trigger {
	var triggers []Trigger

	for _, m := range inlineRe.FindAllStringSubmatchIndex(text, -1) {
		triggers = append(triggers, Trigger{
			Content: strings.TrimSpace(text[m[2]:m[3]]),
			Start:   m[0],
			End:     m[1],
			Kind:    Inline,
		})
	}

	// Block payloads keep their interior newlines verbatim.
	for _, m := range blockRe.FindAllStringSubmatchIndex(text, -1) {
		triggers = append(triggers, Trigger{
			Content: text[m[2]:m[3]],
			Start:   m[0],
			End:     m[1],
			Kind:    Block,
		})
	}

	sort.SliceStable(triggers, func(i, j int) bool {
		return triggers[i].Start < triggers[j].Start
	})
	return triggers
}

// DetectNew returns the triggers whose payloads have not been marked
// processed.
func (d *Detector) DetectNew(text string) []Trigger {
	var fresh []Trigger
	for _, t := range d.Detect(text) {
		if !d.Processed(t.Content) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
