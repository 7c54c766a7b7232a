// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"strings"
	"testing"
)

func TestScanWholeWordMatching(t *testing.T) {
	lexicon := []string{"fast", "easy"}

	cases := []struct {
		name string
		text string
		want []Hit
	}{
		{
			name: "simple match",
			text: "The system should be fast.",
			want: []Hit{{Term: "fast", Start: 21, End: 25}},
		},
		{
			name: "case preserved from text",
			text: "It must be FAST.",
			want: []Hit{{Term: "FAST", Start: 11, End: 15}},
		},
		{
			name: "no match inside larger word",
			text: "We serve breakfast while fasting.",
			want: []Hit{},
		},
		{
			name: "no match inside hyphenated compound",
			text: "Use the fast-track process.",
			want: []Hit{},
		},
		{
			name: "punctuation adjacent still matches",
			text: "Make it fast, easy!",
			want: []Hit{
				{Term: "fast", Start: 8, End: 12},
				{Term: "easy", Start: 14, End: 18},
			},
		},
		{
			name: "empty text",
			text: "   ",
			want: []Hit{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Scan(tc.text, lexicon)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d hits %v, want %d", len(got), got, len(tc.want))
			}
			for i, w := range tc.want {
				if got[i].Term != w.Term || got[i].Start != w.Start || got[i].End != w.End {
					t.Errorf("hit[%d] = {%q %d %d}, want {%q %d %d}",
						i, got[i].Term, got[i].Start, got[i].End, w.Term, w.Start, w.End)
				}
			}
		})
	}
}

// The canonical mixed scenario: uppercase occurrence, hyphenated compound
// to skip, and two distinct terms across two sentences.
func TestScanMixedOccurrences(t *testing.T) {
	text := "The system must be FAST and easy to use. Avoid fast-track hacks; keep it fast."
	lexicon := []string{"fast", "easy"}

	got := Scan(text, lexicon)

	want := []Hit{
		{Term: "FAST", Start: 19, End: 23},
		{Term: "easy", Start: 28, End: 32},
		{Term: "fast", Start: 73, End: 77},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d hits %v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		if got[i].Term != w.Term || got[i].Start != w.Start || got[i].End != w.End {
			t.Errorf("hit[%d] = {%q %d %d}, want {%q %d %d}",
				i, got[i].Term, got[i].Start, got[i].End, w.Term, w.Start, w.End)
		}
	}

	if got[0].Sentence != "The system must be FAST and easy to use." {
		t.Errorf("hit[0].Sentence = %q", got[0].Sentence)
	}
	if got[2].Sentence != "Avoid fast-track hacks; keep it fast." {
		t.Errorf("hit[2].Sentence = %q", got[2].Sentence)
	}
}

func TestScanSortsByPosition(t *testing.T) {
	// "easy" precedes "fast" in the text but follows it in the lexicon.
	text := "An easy and fast setup."
	got := Scan(text, []string{"fast", "easy"})

	if len(got) != 2 {
		t.Fatalf("got %d hits, want 2", len(got))
	}
	if got[0].Term != "easy" || got[1].Term != "fast" {
		t.Errorf("hits out of order: %v", got)
	}
}

func TestScanMultiWordTerm(t *testing.T) {
	got := Scan("The UI should be user-friendly.", []string{"user-friendly"})
	if len(got) != 1 {
		t.Fatalf("got %d hits, want 1", len(got))
	}
	if got[0].Term != "user-friendly" || got[0].Start != 17 {
		t.Errorf("hit = %+v", got[0])
	}
}

func TestSegment(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminated sentences",
			text: "First one. Second one! Third one?",
			want: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name: "trailing fragment",
			text: "Complete sentence. Trailing fragment",
			want: []string{"Complete sentence.", "Trailing fragment"},
		},
		{
			name: "no terminator at all",
			text: "just a fragment",
			want: []string{"just a fragment"},
		},
		{
			name: "newline terminates",
			text: "line one\nline two",
			want: []string{"line one", "line two"},
		},
		{
			name: "blank text",
			text: "   ",
			want: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Segment(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d sentences %v, want %d", len(got), got, len(tc.want))
			}
			for i, w := range tc.want {
				if got[i].Text != w {
					t.Errorf("sentence[%d] = %q, want %q", i, got[i].Text, w)
				}
			}
		})
	}
}

func TestSegmentOffsetsCoverText(t *testing.T) {
	text := "Alpha beta. Gamma delta! Tail"
	for _, s := range Segment(text) {
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			t.Errorf("bad span [%d, %d) for %q", s.Start, s.End, s.Text)
		}
		if !strings.Contains(text[s.Start:s.End], s.Text) {
			t.Errorf("span [%d, %d) does not contain %q", s.Start, s.End, s.Text)
		}
	}
}

func TestFocusWindow(t *testing.T) {
	focus := "The checkout must be fast."
	context := strings.Repeat("x", 500) + " " + focus + " " + strings.Repeat("y", 500)

	got := FocusWindow(context, focus, 200)
	if !strings.Contains(got, focus) {
		t.Errorf("window lost the focus sentence: %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("truncation markers missing: %q", got)
	}
	if len(got) > 200+len(focus)+6 {
		t.Errorf("window too large: %d bytes", len(got))
	}

	// Within budget: untouched.
	if got := FocusWindow("short context", "short", 100); got != "short context" {
		t.Errorf("got %q, want input unchanged", got)
	}

	// Focus absent: front truncation with a marker.
	long := strings.Repeat("z", 300)
	got = FocusWindow(long, "missing", 100)
	if got != long[:100]+"..." {
		t.Errorf("front truncation wrong: %q", got)
	}
}

func TestContextWindow(t *testing.T) {
	text := strings.Repeat("a", 300) + " fast " + strings.Repeat("b", 300)
	start := strings.Index(text, "fast")
	end := start + len("fast")

	got := ContextWindow(text, start, end, 50)
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("interior window missing ellipses: %q", got)
	}
	if !strings.Contains(got, "fast") {
		t.Errorf("window dropped the term: %q", got)
	}

	// A window at the start of short text needs no markers.
	short := "be fast here"
	got = ContextWindow(short, 3, 7, 50)
	if got != short {
		t.Errorf("got %q, want %q", got, short)
	}

	// Truncated on the right only.
	got = ContextWindow(text, 0, 4, 20)
	if strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("leading window markers wrong: %q", got)
	}
}
