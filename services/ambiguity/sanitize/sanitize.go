// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sanitize validates and neutralizes user-supplied text before it
// reaches an LLM prompt or the lexicon store.
//
// Input errors are rejected synchronously here and never reach the model.
// Injection phrases are neutralized rather than rejected — requirement
// documents legitimately contain words like "system:" in prose, so a hard
// reject would be too aggressive for prompt text, but the known
// take-over phrasings are masked.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxTextLength bounds a single analysis input. Matches the upload
// cap of the document ingestion collaborator.
const DefaultMaxTextLength = 50000

// maxTermLength bounds a single lexicon term.
const maxTermLength = 100

// ErrEmptyText is returned when the input is empty or whitespace-only.
var ErrEmptyText = errors.New("sanitize: text cannot be empty")

// ErrSuspiciousContent is returned when the input matches a known
// script/markup injection pattern.
var ErrSuspiciousContent = errors.New("sanitize: text contains potentially malicious content")

// suspiciousPatterns match script/markup injection attempts. Any hit
// rejects the whole input — these have no legitimate place in
// requirements prose.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe[^>]*>`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
}

// injectionPatterns match known prompt-takeover phrasings. Matches are
// masked, not rejected (see package comment).
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+all\s+previous`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)new\s+instructions:`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
}

// collapseNewlines squashes runs of 3+ newlines down to a paragraph break.
var collapseNewlines = regexp.MustCompile(`\n{3,}`)

// injectionMask replaces neutralized prompt-injection phrases.
const injectionMask = "[REDACTED]"

// Text sanitizes free text for safe processing.
//
// Description:
//
//	Strips null bytes and non-printable runes (newlines, carriage
//	returns, and tabs survive), enforces the length cap, and rejects
//	script/markup injection patterns. This is the precondition gate for
//	every piece of user text entering the pipeline.
//
// Inputs:
//   - text: The input text.
//   - maxLength: Maximum allowed length after stripping. Pass 0 to use
//     DefaultMaxTextLength.
//
// Outputs:
//   - string: The sanitized, trimmed text.
//   - error: ErrEmptyText, ErrSuspiciousContent, or a length error.
//
// Thread Safety: This function is safe for concurrent use.
func Text(text string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}
	if text == "" {
		return "", ErrEmptyText
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if len(cleaned) > maxLength {
		return "", fmt.Errorf("sanitize: text exceeds maximum length of %d characters", maxLength)
	}

	for _, p := range suspiciousPatterns {
		if p.MatchString(cleaned) {
			return "", ErrSuspiciousContent
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if trimmed == "" {
		return "", ErrEmptyText
	}
	return trimmed, nil
}

// PromptInput sanitizes text specifically for inclusion in an LLM prompt.
//
// Description:
//
//	Applies Text, collapses excessive newlines, and masks known
//	prompt-injection phrasings with [REDACTED]. The output is safe to
//	interpolate into any prompt template in this module.
//
// Inputs:
//   - text: The text destined for a prompt.
//
// Outputs:
//   - string: The sanitized text.
//   - error: Non-nil if Text rejects the input.
//
// Thread Safety: This function is safe for concurrent use.
func PromptInput(text string) (string, error) {
	cleaned, err := Text(text, 0)
	if err != nil {
		return "", err
	}

	cleaned = collapseNewlines.ReplaceAllString(cleaned, "\n\n")
	for _, p := range injectionPatterns {
		cleaned = p.ReplaceAllString(cleaned, injectionMask)
	}
	return cleaned, nil
}

// Term normalizes a lexicon term.
//
// Description:
//
//	Keeps only letters, digits, spaces, hyphens, and underscores, then
//	trims and lowercases. The result is the canonical storage form for
//	lexicon entries — "User-Friendly " and "user-friendly" normalize to
//	the same term.
//
// Inputs:
//   - term: The raw term.
//
// Outputs:
//   - string: The normalized term.
//   - error: Non-nil if nothing normalizable remains or the term is too long.
//
// Thread Safety: This function is safe for concurrent use.
func Term(term string) (string, error) {
	if strings.TrimSpace(term) == "" {
		return "", errors.New("sanitize: term cannot be empty")
	}

	var b strings.Builder
	b.Grow(len(term))
	for _, r := range term {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(b.String()))
	if normalized == "" {
		return "", errors.New("sanitize: term must contain at least one alphanumeric character")
	}
	if len(normalized) > maxTermLength {
		return "", fmt.Errorf("sanitize: term exceeds maximum length of %d characters", maxTermLength)
	}
	return normalized, nil
}
