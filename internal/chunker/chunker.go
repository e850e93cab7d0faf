// Package chunker splits a reply into bounded segments for progressive
// speech synthesis. Segments break at sentence boundaries where possible,
// then at natural pauses, and only as a last resort mid-word.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars bounds a segment when no explicit limit is configured.
const DefaultMaxChars = 50

// Segment is one synthesizable span of the reply, in order. IsLast marks
// the final segment of the reply.
type Segment struct {
	Text   string
	IsLast bool
}

// sentenceBoundary matches a terminator followed by whitespace and a capital
// letter; the split point is immediately after the terminator.
var sentenceBoundary = regexp.MustCompile(`[.!;?]\s+[A-Z]`)

// Natural break candidates for oversize segments, in priority order. The
// comma stays with the head; connective words stay with the remainder.
var breakSeps = []string{", ", " and ", " or ", " but ", " - ", " "}

// Split chunks text into ordered segments of at most max characters.
// Empty or whitespace-only input yields no segments.
func Split(text string, max int) []Segment {
	if max <= 0 {
		max = DefaultMaxChars
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	groups := group(sentences(text), max)

	var parts []string
	for _, g := range groups {
		parts = append(parts, splitLong(g, max)...)
	}

	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segs = append(segs, Segment{Text: p})
	}
	if len(segs) > 0 {
		segs[len(segs)-1].IsLast = true
	}
	return segs
}

// sentences splits text after each terminator that precedes a capital
// letter. Text with no boundary is one sentence.
func sentences(text string) []string {
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var out []string
	prev := 0
	for _, loc := range locs {
		cut := loc[0] + 1 // just past the terminator
		out = append(out, strings.TrimSpace(text[prev:cut]))
		prev = cut
	}
	out = append(out, strings.TrimSpace(text[prev:]))
	return out
}

// group greedily merges sentences into segments, sealing the current one
// whenever adding the next sentence would overflow max.
func group(sents []string, max int) []string {
	var out []string
	cur := ""
	for _, s := range sents {
		switch {
		case cur == "":
			cur = s
		case len(cur)+1+len(s) > max:
			out = append(out, cur)
			cur = s
		default:
			cur = cur + " " + s
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// splitLong cuts a segment exceeding max at the best natural break, forcing
// a hard cut at max when no qualifying break exists.
func splitLong(s string, max int) []string {
	var out []string
	for len(s) > max {
		head, rest, ok := bestBreak(s, max)
		if !ok {
			n := hardCut(s, max)
			head, rest = s[:n], s[n:]
		}
		out = append(out, head)
		s = strings.TrimSpace(rest)
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// bestBreak finds the rightmost candidate break whose head is at most max
// characters and at least half of max, trying separators in priority order.
func bestBreak(s string, max int) (head, rest string, ok bool) {
	half := max / 2
	for _, sep := range breakSeps {
		window := s
		if limit := max + len(sep); len(window) > limit {
			window = window[:limit]
		}
		idx := strings.LastIndex(window, sep)
		for idx >= 0 {
			headLen := idx
			if sep == ", " {
				headLen = idx + 1
			}
			if headLen <= max {
				if headLen < half {
					break // rightmost fit is degenerate; try next separator
				}
				if sep == ", " {
					return s[:idx+1], s[idx+2:], true
				}
				return s[:idx], s[idx+1:], true
			}
			idx = strings.LastIndex(window[:idx], sep)
		}
	}
	return "", "", false
}

// hardCut returns the byte offset for a forced cut at max characters,
// backing up so a multi-byte rune is never split.
func hardCut(s string, max int) int {
	n := max
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		n = max
	}
	return n
}
