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
)

// singleEvaluationPrompt asks whether one term is ambiguous in context.
func singleEvaluationPrompt(term, context string) string {
	return fmt.Sprintf(`You are an expert in software requirements engineering. Determine whether a term is ambiguous in its specific context.

AMBIGUOUS: subjective, unmeasurable, open to interpretation.
CLEAR: specific, measurable, well-defined, or a domain-specific technical term.

Term: %q

Context:
%s

Respond with a JSON object:
{"is_ambiguous": true/false, "confidence": 0.0-1.0, "reasoning": "1-2 sentences"}

Only JSON, no extra text.`, term, context)
}

// batchItem is one entry in the batch prompt payload.
type batchItem struct {
	ID      int    `json:"id"`
	Term    string `json:"term"`
	Context string `json:"context"`
}

// batchEvaluationPrompt asks for evaluations of several terms at once.
// Items are tagged by index so replies map back to input positions, and
// the payload is compact JSON to keep token cost down.
func batchEvaluationPrompt(items []batchItem) (string, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding batch payload: %w", err)
	}

	return fmt.Sprintf(`Evaluate if terms are ambiguous in context.

AMBIGUOUS: subjective, unmeasurable, open to interpretation.
CLEAR: specific, measurable, well-defined, domain-specific technical term.

Terms:
%s

Respond with a JSON array (same order):
[{"id":0,"is_ambiguous":true/false,"confidence":0.0-1.0,"reasoning":"1-2 sentences"}]

Only JSON, no extra text.`, payload), nil
}
