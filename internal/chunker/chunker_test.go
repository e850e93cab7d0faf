package chunker

import (
	"strings"
	"testing"
)

func joinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func TestSplitEmptyInput(t *testing.T) {
	if segs := Split("", 50); len(segs) != 0 {
		t.Fatalf("expected no segments for empty input, got %d", len(segs))
	}
	if segs := Split("   \n\t ", 50); len(segs) != 0 {
		t.Fatalf("expected no segments for whitespace input, got %d", len(segs))
	}
}

func TestSplitShortInput(t *testing.T) {
	segs := Split("Hi.", 50)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "Hi." {
		t.Fatalf("expected %q, got %q", "Hi.", segs[0].Text)
	}
	if !segs[0].IsLast {
		t.Fatal("single segment must be flagged last")
	}
}

func TestSplitSentenceGrouping(t *testing.T) {
	text := "Yes. No. Maybe so. This is a much longer sentence that will not fit."
	segs := Split(text, 50)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}
	// Short sentences group together under the limit.
	if segs[0].Text != "Yes. No. Maybe so." {
		t.Fatalf("expected grouped short sentences, got %q", segs[0].Text)
	}
	for i, s := range segs {
		last := i == len(segs)-1
		if s.IsLast != last {
			t.Fatalf("segment %d IsLast=%v, want %v", i, s.IsLast, last)
		}
	}
}

func TestSplitHardCuts(t *testing.T) {
	text := strings.Repeat("x", 200)
	segs := Split(text, 50)
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if len(s.Text) != 50 {
			t.Fatalf("segment %d has length %d, want 50", i, len(s.Text))
		}
	}
}

func TestSplitCommaBreak(t *testing.T) {
	// One long sentence with a comma past the midpoint.
	text := "The quick brown fox jumps over the fence, then it runs far away into the woods."
	segs := Split(text, 50)
	if len(segs) < 2 {
		t.Fatalf("expected a comma split, got %d segments: %v", len(segs), segs)
	}
	if !strings.HasSuffix(segs[0].Text, ",") {
		t.Fatalf("comma should stay with the head segment, got %q", segs[0].Text)
	}
}

func TestSplitPreservesText(t *testing.T) {
	inputs := []string{
		"Hi.",
		"Hello there! How are you today? I am doing fine; thanks for asking. Let me tell you a long story about a dog and a cat that lived together in a tiny house by the river.",
		"one two three four five six seven eight nine ten eleven twelve thirteen fourteen",
		strings.Repeat("abcde ", 40),
		"No terminators here just a stream of words that keeps going and going and going until it finally stops",
	}
	for _, in := range inputs {
		segs := Split(in, 50)
		want := strings.Join(strings.Fields(in), " ")
		got := joinSegments(segs)
		if got != want {
			t.Errorf("reassembled text mismatch:\n want %q\n  got %q", want, got)
		}
		for i, s := range segs {
			if s.Text == "" {
				t.Errorf("input %q: segment %d is empty", in, i)
			}
			if len(s.Text) > 50 {
				t.Errorf("input %q: segment %d exceeds max: %q (%d)", in, i, s.Text, len(s.Text))
			}
		}
		if n := len(segs); n > 0 && !segs[n-1].IsLast {
			t.Errorf("input %q: final segment not flagged last", in)
		}
	}
}

func TestSplitNoBoundaryIsOneSentence(t *testing.T) {
	segs := Split("short and sweet", 50)
	if len(segs) != 1 || segs[0].Text != "short and sweet" {
		t.Fatalf("expected single segment, got %v", segs)
	}
}
