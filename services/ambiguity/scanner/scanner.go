// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scanner performs the lexical pass of the ambiguity pipeline:
// sentence segmentation and whole-word lexicon matching over raw text.
//
// Everything here is pure computation — no I/O, no model calls — so a
// scan is cheap enough to run on every keystroke-sized request and its
// output is fully deterministic for a given (text, lexicon) pair.
package scanner

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultWindowSize is the per-side character budget for ContextWindow.
const DefaultWindowSize = 100

// Hit is one lexicon term occurrence in the scanned text.
//
// Description:
//
//	Term preserves the casing found in the text ("FAST", not "fast").
//	Start and End are byte offsets into the original text, End exclusive.
//	Sentence is the full sentence containing the occurrence, trimmed.
type Hit struct {
	Term     string `json:"term"`
	Start    int    `json:"position_start"`
	End      int    `json:"position_end"`
	Sentence string `json:"sentence_context"`
}

// Sentence is one segmented sentence with its position in the text.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// sentencePattern matches a run of non-terminator characters followed by
// one or more terminators. Newlines terminate sentences the same as
// punctuation so list items segment individually.
var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?\n]+`)

// Scan finds every whole-word occurrence of every lexicon term in text.
//
// Description:
//
//	Matching is case-insensitive and whole-word: "fast" matches "FAST"
//	and "fast," but not "breakfast", "fasting", or the "fast" inside
//	"fast-track" — a hyphen joins its compound into a single word for
//	matching purposes. Hits are sorted by start offset; equal offsets
//	keep lexicon order, so the output is stable.
//
// Inputs:
//   - text: The text to scan. Empty or whitespace-only yields no hits.
//   - lexicon: Canonical (lowercased) terms to search for.
//
// Outputs:
//   - []Hit: All occurrences, sorted by Start. Never nil.
//
// Thread Safety: This function is safe for concurrent use.
func Scan(text string, lexicon []string) []Hit {
	hits := []Hit{}
	if strings.TrimSpace(text) == "" || len(lexicon) == 0 {
		return hits
	}

	sentences := Segment(text)
	// ASCII-only lowercasing keeps byte offsets aligned with the original
	// text (full Unicode folding can change byte length). Lexicon terms
	// are canonical lowercase ASCII, so nothing is lost.
	lower := asciiLower(text)

	for _, term := range lexicon {
		if term == "" {
			continue
		}
		for _, span := range wholeWordMatches(lower, asciiLower(term)) {
			hits = append(hits, Hit{
				Term:     text[span[0]:span[1]],
				Start:    span[0],
				End:      span[1],
				Sentence: sentenceAt(span[0], sentences),
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Start < hits[j].Start
	})
	return hits
}

// Segment splits text into sentences with byte offsets.
//
// Description:
//
//	Sentences end at '.', '!', '?', or a newline. A trailing fragment
//	with no terminator becomes a final sentence of its own, and text
//	with no terminators at all is one sentence. Offsets cover the
//	untrimmed match; Text is trimmed.
//
// Outputs:
//   - []Sentence: Segments in order. Never nil; empty for blank text.
func Segment(text string) []Sentence {
	var sentences []Sentence
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		trimmed := strings.TrimSpace(text[loc[0]:loc[1]])
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, Sentence{Text: trimmed, Start: loc[0], End: loc[1]})
	}

	if len(sentences) > 0 {
		lastEnd := sentences[len(sentences)-1].End
		if lastEnd < len(text) {
			if tail := strings.TrimSpace(text[lastEnd:]); tail != "" {
				sentences = append(sentences, Sentence{Text: tail, Start: lastEnd, End: len(text)})
			}
		}
	} else if strings.TrimSpace(text) != "" {
		sentences = append(sentences, Sentence{Text: strings.TrimSpace(text), Start: 0, End: len(text)})
	}

	if sentences == nil {
		sentences = []Sentence{}
	}
	return sentences
}

// ContextWindow extracts text around a term occurrence for prompt use.
//
// Description:
//
//	Takes windowSize bytes on each side of [start, end) and marks
//	truncation with an ellipsis on whichever sides were cut.
//
// Inputs:
//   - text: The full text.
//   - start, end: Byte offsets of the term occurrence.
//   - windowSize: Per-side budget. Pass 0 for DefaultWindowSize.
//
// Outputs:
//   - string: The trimmed context window.
func ContextWindow(text string, start, end, windowSize int) string {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}

	from := start - windowSize
	if from < 0 {
		from = 0
	}
	to := end + windowSize
	if to > len(text) {
		to = len(text)
	}

	context := text[from:to]
	if from > 0 {
		context = "..." + context
	}
	if to < len(text) {
		context = context + "..."
	}
	return strings.TrimSpace(context)
}

// FocusWindow trims context to at most budget bytes, centered on the
// first occurrence of focus.
//
// Description:
//
//	Half the remaining budget goes before the focus, half after, with
//	ellipses marking cuts. When focus is absent (or empty) the context
//	is truncated from the front instead — losing the tail beats losing
//	the focus sentence, but with no focus to anchor on there is nothing
//	better to do. Context already within budget passes through.
//
// Inputs:
//   - context: The full surrounding text.
//   - focus: The substring the window should center on.
//   - budget: Maximum content bytes (ellipses excluded).
//
// Outputs:
//   - string: The windowed context.
func FocusWindow(context, focus string, budget int) string {
	if budget <= 0 || len(context) <= budget {
		return context
	}

	pos := -1
	if focus != "" {
		pos = strings.Index(context, focus)
	}
	if pos < 0 {
		return context[:budget] + "..."
	}

	half := (budget - len(focus)) / 2
	if half < 0 {
		half = 0
	}
	from := pos - half
	if from < 0 {
		from = 0
	}
	to := pos + len(focus) + half
	if to > len(context) {
		to = len(context)
	}

	windowed := context[from:to]
	if from > 0 {
		windowed = "..." + windowed
	}
	if to < len(context) {
		windowed = windowed + "..."
	}
	return windowed
}

// wholeWordMatches returns [start, end) spans where term occurs as a
// whole word in lower (both already lowercased).
//
// A word character is a letter, digit, or underscore. A hyphen adjacent
// to the match also disqualifies it: "fast-track" is one compound word,
// not an occurrence of "fast".
func wholeWordMatches(lower, term string) [][2]int {
	var spans [][2]int
	for from := 0; ; {
		i := strings.Index(lower[from:], term)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(term)
		if standalone(lower, start, end) {
			spans = append(spans, [2]int{start, end})
		}
		from = start + 1
	}
	return spans
}

// standalone reports whether lower[start:end] has no word character or
// hyphen touching either edge.
func standalone(lower string, start, end int) bool {
	if start > 0 && joinsWord(lower[start-1]) {
		return false
	}
	if end < len(lower) && joinsWord(lower[end]) {
		return false
	}
	return true
}

// asciiLower lowercases ASCII letters only, leaving every other byte
// untouched so byte offsets stay aligned with the input.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// joinsWord reports whether byte b glues adjacent text into one word.
// ASCII-only on purpose: lexicon terms are ASCII and multibyte runes
// never collide with ASCII bytes in UTF-8.
func joinsWord(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	}
	return false
}

// sentenceAt returns the sentence whose span contains pos, falling back
// to the first sentence.
func sentenceAt(pos int, sentences []Sentence) string {
	for _, s := range sentences {
		if s.Start <= pos && pos < s.End {
			return s.Text
		}
	}
	if len(sentences) > 0 {
		return sentences[0].Text
	}
	return ""
}
