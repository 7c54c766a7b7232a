// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/clarity/services/ambiguity/invoke"
)

// evaluationWire is the JSON shape the model must return for one term.
// Pointer fields distinguish a missing key from a legitimate zero value
// (confidence 0.0 and is_ambiguous false are both valid answers).
type evaluationWire struct {
	IsAmbiguous *bool    `json:"is_ambiguous" validate:"required"`
	Confidence  *float64 `json:"confidence" validate:"required,min=0,max=1"`
	Reasoning   string   `json:"reasoning" validate:"required,max=1000"`
}

func (w evaluationWire) toEvaluation() Evaluation {
	return Evaluation{
		IsAmbiguous: *w.IsAmbiguous,
		Confidence:  *w.Confidence,
		Reasoning:   w.Reasoning,
	}
}

// evaluationSchema parses a single-term evaluation object.
type evaluationSchema struct{}

func (evaluationSchema) Parse(raw string) (Evaluation, error) {
	var w evaluationWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Evaluation{}, fmt.Errorf("parsing evaluation object: %w", err)
	}
	if err := invoke.ValidateStruct(w); err != nil {
		return Evaluation{}, fmt.Errorf("validating evaluation object: %w", err)
	}
	return w.toEvaluation(), nil
}

func (evaluationSchema) Empty() Evaluation {
	return Fallback("no validated reply from the model")
}

// batchWire is one element of the batch reply array. The id echoes the
// input tag; elements are placed by id when the reply carries a full
// set of distinct in-range ids, and by array order otherwise.
type batchWire struct {
	ID int `json:"id"`
	evaluationWire
}

// batchSchema parses a JSON array of evaluations for an expected batch
// size.
//
// A malformed array (bad JSON, not an array, empty) fails the parse and
// triggers the correction-retry path. A structurally valid array with
// some invalid elements does not: each bad element individually becomes
// a fallback entry, the array is padded if short and truncated if long,
// so one mangled element cannot burn a whole retry round trip.
type batchSchema struct {
	expected int
}

func (s batchSchema) Parse(raw string) ([]Evaluation, error) {
	var elems []batchWire
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("parsing evaluation array: %w", err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("evaluation array is empty, expected %d elements", s.expected)
	}

	results := make([]Evaluation, s.expected)
	for i := range results {
		results[i] = Fallback("missing element in batch reply")
	}
	byID := usableIDs(elems, s.expected)
	for pos, e := range elems {
		slot := pos
		if byID {
			slot = e.ID
		}
		if slot >= s.expected {
			break
		}
		if err := invoke.ValidateStruct(e.evaluationWire); err != nil {
			results[slot] = Fallback("invalid element in batch reply")
			continue
		}
		results[slot] = e.toEvaluation()
	}
	return results, nil
}

// usableIDs reports whether every element carries a distinct in-range
// id. A reply that omits ids decodes them all to zero, which fails the
// distinctness check for any batch larger than one.
func usableIDs(elems []batchWire, expected int) bool {
	seen := make(map[int]bool, len(elems))
	for _, e := range elems {
		if e.ID < 0 || e.ID >= expected || seen[e.ID] {
			return false
		}
		seen[e.ID] = true
	}
	return true
}

func (s batchSchema) Empty() []Evaluation {
	results := make([]Evaluation, s.expected)
	for i := range results {
		results[i] = Fallback("no validated reply from the model")
	}
	return results
}
