// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/clarity/services/ambiguity/sanitize"
)

// Validation bounds for model-produced suggestion content.
const (
	minSuggestions      = 2
	maxSuggestions      = 5
	keepSuggestions     = 3 // callers receive at most this many
	minSuggestionLength = 5
	maxSuggestionLength = 500
	minQuestionLength   = 10
	maxQuestionLength   = 500
)

// validateSuggestions filters a raw suggestion list down to clean
// entries, requiring at least minSuggestions to survive.
func validateSuggestions(raw []string) ([]string, error) {
	if len(raw) < minSuggestions || len(raw) > maxSuggestions {
		return nil, fmt.Errorf("expected %d-%d suggestions, got %d", minSuggestions, maxSuggestions, len(raw))
	}

	var valid []string
	for _, s := range raw {
		cleaned, err := sanitize.Text(s, maxSuggestionLength)
		if err != nil {
			continue
		}
		if len(cleaned) >= minSuggestionLength {
			valid = append(valid, cleaned)
		}
	}
	if len(valid) < minSuggestions {
		return nil, fmt.Errorf("only %d usable suggestions after filtering, need %d", len(valid), minSuggestions)
	}
	if len(valid) > keepSuggestions {
		valid = valid[:keepSuggestions]
	}
	return valid, nil
}

// validateQuestion cleans a clarification question, stripping one layer
// of surrounding quotes.
func validateQuestion(raw string) (string, error) {
	cleaned, err := sanitize.Text(raw, maxQuestionLength)
	if err != nil {
		return "", fmt.Errorf("cleaning clarification question: %w", err)
	}
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(cleaned, q) && strings.HasSuffix(cleaned, q) && len(cleaned) > 1 {
			cleaned = strings.TrimSpace(cleaned[1 : len(cleaned)-1])
		}
	}
	if len(cleaned) < minQuestionLength {
		return "", fmt.Errorf("clarification question too short: %d chars", len(cleaned))
	}
	return cleaned, nil
}

// suggestionsSchema parses a JSON array of replacement phrases.
type suggestionsSchema struct {
	term string
}

func (s suggestionsSchema) Parse(raw string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("parsing suggestion array: %w", err)
	}
	return validateSuggestions(list)
}

func (s suggestionsSchema) Empty() []string {
	return FallbackSuggestions(s.term)
}

// questionSchema accepts the clarification reply, which is plain text
// rather than JSON.
type questionSchema struct {
	term string
}

func (s questionSchema) Parse(raw string) (string, error) {
	return validateQuestion(raw)
}

func (s questionSchema) Empty() string {
	return FallbackQuestion(s.term)
}

// bundleWire is the combined-analysis reply object.
type bundleWire struct {
	Suggestions         []string `json:"suggestions"`
	ClarificationPrompt string   `json:"clarification_prompt"`
}

// bundleSchema parses the combined reply. The object itself must parse;
// each half then degrades independently to its deterministic fallback,
// so one bad field does not waste a correction round trip on the other.
type bundleSchema struct {
	term string
}

func (s bundleSchema) Parse(raw string) (Bundle, error) {
	var w bundleWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Bundle{}, fmt.Errorf("parsing analysis object: %w", err)
	}
	return s.fromWire(w), nil
}

func (s bundleSchema) fromWire(w bundleWire) Bundle {
	bundle := Bundle{}
	if valid, err := validateSuggestions(w.Suggestions); err == nil {
		bundle.Suggestions = valid
	} else {
		bundle.Suggestions = FallbackSuggestions(s.term)
	}
	if question, err := validateQuestion(w.ClarificationPrompt); err == nil {
		bundle.ClarificationPrompt = question
	} else {
		bundle.ClarificationPrompt = FallbackQuestion(s.term)
	}
	return bundle
}

func (s bundleSchema) Empty() Bundle {
	return FallbackBundle(s.term)
}

// batchBundleWire is one element of the batched combined reply.
// Elements are placed by the echoed id when the reply carries a full
// set of distinct in-range ids, and by array order otherwise.
type batchBundleWire struct {
	ID int `json:"id"`
	bundleWire
}

// batchBundleSchema parses the batched combined reply for a known input
// order. Terms supply per-position fallback templates.
type batchBundleSchema struct {
	terms []string
}

func (s batchBundleSchema) Parse(raw string) ([]Bundle, error) {
	var elems []batchBundleWire
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("parsing analysis array: %w", err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("analysis array is empty, expected %d elements", len(s.terms))
	}

	bundles := make([]Bundle, len(s.terms))
	filled := make([]bool, len(s.terms))
	byID := usableBundleIDs(elems, len(s.terms))
	for pos, e := range elems {
		slot := pos
		if byID {
			slot = e.ID
		}
		if slot >= len(s.terms) {
			break
		}
		bundles[slot] = bundleSchema{term: s.terms[slot]}.fromWire(e.bundleWire)
		filled[slot] = true
	}
	for i, ok := range filled {
		if !ok {
			bundles[i] = FallbackBundle(s.terms[i])
		}
	}
	return bundles, nil
}

// usableBundleIDs reports whether every element carries a distinct
// in-range id. Replies that omit ids decode them all to zero, failing
// the distinctness check for any batch larger than one.
func usableBundleIDs(elems []batchBundleWire, expected int) bool {
	seen := make(map[int]bool, len(elems))
	for _, e := range elems {
		if e.ID < 0 || e.ID >= expected || seen[e.ID] {
			return false
		}
		seen[e.ID] = true
	}
	return true
}

func (s batchBundleSchema) Empty() []Bundle {
	bundles := make([]Bundle, len(s.terms))
	for i, term := range s.terms {
		bundles[i] = FallbackBundle(term)
	}
	return bundles
}
