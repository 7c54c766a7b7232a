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
)

// suggestionPrompt asks for 2-3 quantifiable replacements.
func suggestionPrompt(term, context, sentence string) string {
	return fmt.Sprintf(`You are an expert in software requirements engineering. Your task is to suggest specific, quantifiable replacements for an ambiguous term.

Ambiguous term: %q

Full context:
%s

Sentence containing the term:
%s

Generate 2-3 specific, measurable alternatives that could replace the ambiguous term %q in this context.

Requirements for suggestions:
- Each suggestion must be specific and quantifiable
- Include concrete metrics, numbers, or measurable criteria
- Be realistic and appropriate for the context
- Each suggestion should be a complete phrase that can replace the term

Examples:
- Instead of "fast": "response time under 200ms", "load time under 2 seconds"
- Instead of "secure": "encrypted with AES-256", "compliant with OWASP Top 10"
- Instead of "user-friendly": "learnable within 30 minutes", "requires no more than 3 clicks"

Respond ONLY with a JSON array of strings, no additional text.`, term, context, sentence, term)
}

// clarificationPrompt asks for one friendly question about the term.
func clarificationPrompt(term, context, sentence string) string {
	return fmt.Sprintf(`You are an expert in software requirements engineering. Your task is to create a user-friendly question that helps clarify an ambiguous term.

Ambiguous term: %q

Full context:
%s

Sentence containing the term:
%s

Generate a clear, friendly question that asks the user to specify what they mean by %q in this context.

Requirements for the question:
- Use simple, non-technical language
- Be specific to the context
- Guide the user toward providing measurable criteria
- Keep it concise (1-2 sentences)

Examples:
- "What specific response time do you consider 'fast' for this feature?"
- "What security standards or certifications should the system meet?"

Respond with ONLY the question text, no quotes or additional formatting.`, term, context, sentence, term)
}

// analysisPrompt asks for suggestions and a clarification question in
// one call, halving request volume versus asking separately.
func analysisPrompt(term, context, sentence string) string {
	return fmt.Sprintf(`You are an expert in software requirements engineering. Your task is to help clarify an ambiguous term by providing both specific suggestions and a clarification question.

Ambiguous term: %q

Full context:
%s

Sentence containing the term:
%s

Provide:
1. 2-3 specific, measurable alternatives for %q
2. A user-friendly question to help clarify what they mean

Respond with a JSON object:
{"suggestions": ["suggestion 1 with specific metrics", "suggestion 2 with specific metrics"], "clarification_prompt": "Your friendly question here"}

Requirements:
- Suggestions must be specific and quantifiable
- The question should be conversational and guide toward measurable criteria

Respond ONLY with the JSON object, no additional text.`, term, context, sentence, term)
}

// batchRequestItem is one entry in the batched analysis payload.
type batchRequestItem struct {
	ID       int    `json:"id"`
	Term     string `json:"term"`
	Context  string `json:"context"`
	Sentence string `json:"sentence"`
}

// batchAnalysisPrompt asks for combined analyses of several terms in one
// call, tagged by index.
func batchAnalysisPrompt(items []batchRequestItem) (string, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding batch payload: %w", err)
	}

	return fmt.Sprintf(`Generate suggestions and clarification questions for ambiguous terms.

Terms:
%s

For each term, provide 2-3 specific, measurable alternatives and a friendly question.

Respond with a JSON array (same order):
[{"id":0,"suggestions":["specific metric 1","specific metric 2"],"clarification_prompt":"Your question?"}]

Only JSON, no extra text.`, payload), nil
}
