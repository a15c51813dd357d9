package pattern

import "testing"

func TestInlinePattern(t *testing.T) {
	d := NewDetector()
	text := "Some text ecce what is apple? ecce more text"

	triggers := d.Detect(text)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if triggers[0].Content != "what is apple?" {
		t.Errorf("expected 'what is apple?', got %q", triggers[0].Content)
	}
	if triggers[0].Kind != Inline {
		t.Errorf("expected inline kind, got %v", triggers[0].Kind)
	}
}

func TestBlockPattern(t *testing.T) {
	d := NewDetector()
	text := "Some text\n```ecce\nwhat is apple?\n```\nmore text"

	triggers := d.Detect(text)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if triggers[0].Content != "what is apple?" {
		t.Errorf("expected 'what is apple?', got %q", triggers[0].Content)
	}
	if triggers[0].Kind != Block {
		t.Errorf("expected block kind, got %v", triggers[0].Kind)
	}
}

func TestBlockPatternKeepsInteriorNewlines(t *testing.T) {
	d := NewDetector()
	text := "```ecce\nline one\n\nline three\n```"

	triggers := d.Detect(text)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if triggers[0].Content != "line one\n\nline three" {
		t.Errorf("interior text not preserved, got %q", triggers[0].Content)
	}
}

func TestMultiplePatternsOrdered(t *testing.T) {
	d := NewDetector()
	text := "ecce first question? ecce and ```ecce\nsecond question?\n```"

	triggers := d.Detect(text)
	if len(triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(triggers))
	}
	if triggers[0].Content != "first question?" {
		t.Errorf("expected 'first question?' first, got %q", triggers[0].Content)
	}
	if triggers[1].Content != "second question?" {
		t.Errorf("expected 'second question?' second, got %q", triggers[1].Content)
	}
	if triggers[0].Start >= triggers[1].Start {
		t.Errorf("triggers out of order: %d >= %d", triggers[0].Start, triggers[1].Start)
	}
}

func TestDetectNewFiltersProcessed(t *testing.T) {
	d := NewDetector()
	text := "ecce what is apple? ecce"

	triggers := d.DetectNew(text)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}

	d.MarkProcessed(triggers[0].Content)

	// Idempotent across repeated calls on the same text.
	for i := 0; i < 3; i++ {
		if again := d.DetectNew(text); len(again) != 0 {
			t.Fatalf("call %d: expected 0 triggers after mark, got %d", i, len(again))
		}
	}

	// Detect still returns everything.
	if all := d.Detect(text); len(all) != 1 {
		t.Errorf("expected Detect to ignore processed state, got %d", len(all))
	}
}

func TestProcessedIndependentOfGrammar(t *testing.T) {
	d := NewDetector()

	// Same payload via the block grammar counts as processed once the
	// inline form was handled.
	d.MarkProcessed("what is apple?")
	triggers := d.DetectNew("```ecce\nwhat is apple?\n```")
	if len(triggers) != 0 {
		t.Errorf("expected payload to count as processed across grammars, got %d", len(triggers))
	}
}

func TestFingerprintConsistency(t *testing.T) {
	a := NewDetector()
	b := NewDetector()

	a.MarkProcessed("same text")
	b.MarkProcessed("same text")

	if !a.Processed("same text") || !b.Processed("same text") {
		t.Error("independently constructed detectors disagree on processed state")
	}
	if Fingerprint("same text") != Fingerprint("  same text  ") {
		t.Error("fingerprint should trim before hashing")
	}
	if Fingerprint("same text") == Fingerprint("other text") {
		t.Error("distinct payloads should not collide")
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := NewDetector()
	text := "ecce one ecce middle ecce two ecce\n```ecce\nthree\n```"

	first := d.Detect(text)
	second := d.Detect(text)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("trigger %d differs between calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}
