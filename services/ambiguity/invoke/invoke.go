// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package invoke implements the validated-retry protocol shared by every
// LLM-backed operation in the pipeline: send a prompt, strip code fences,
// parse and validate the reply against a schema, and on validation
// failure retry with a correction prompt that shows the model its own
// invalid output and the validation error. Transport failures never
// retry — the schema's empty default comes back immediately.
//
// Callers receive a Result, never an error: silent degradation to the
// empty default is a first-class outcome here, and the stages above
// substitute their own fallback values when Fallback is set.
package invoke

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/clarity/services/ambiguity/metrics"
	"github.com/AleutianAI/clarity/services/ambiguity/pace"
	"github.com/AleutianAI/clarity/services/llm"
)

// DefaultMaxRetries is the number of correction retries after the first
// attempt (total attempts = 1 + DefaultMaxRetries).
const DefaultMaxRetries = 2

// Fallback reasons reported in Result.Reason.
const (
	ReasonTransport = "transport"
	ReasonExhausted = "exhausted"
)

// Schema parses and validates one reply shape.
//
// Description:
//
//	Parse receives the fence-stripped reply text and must return a fully
//	validated value — a nil error from Parse means the value is usable
//	as-is. Empty returns the safe default handed to callers when the
//	protocol gives up.
type Schema[T any] interface {
	Parse(raw string) (T, error)
	Empty() T
}

// Result is the outcome of a validated invocation.
//
// Description:
//
//	Fallback is false exactly when Value came from a validated model
//	reply. When Fallback is true, Value is the schema's empty default
//	and Reason says what went wrong (transport, exhausted). Attempts
//	counts outgoing model calls actually made.
type Result[T any] struct {
	Value    T
	Fallback bool
	Reason   string
	Attempts int
}

// Options tunes one invocation.
type Options struct {
	// MaxRetries is the number of correction retries after the first
	// attempt. Negative means DefaultMaxRetries; zero means no retries.
	MaxRetries int

	// Params are forwarded to the completion client.
	Params llm.GenerationParams

	// Pacer, when set, is waited on before every outgoing call so
	// retries count against the shared inter-request budget too.
	Pacer *pace.Pacer

	// Stage is the metrics label for this call site. Empty defaults to
	// the generic invoke stage.
	Stage string
}

// Run executes the validated-retry protocol for one prompt.
//
// Description:
//
//	Attempt loop, 1 + MaxRetries tries total. A validated parse returns
//	immediately. A validation failure builds a correction prompt from
//	the invalid output and the error, and the next attempt sends that
//	prompt instead of the original. A transport failure (including
//	context timeout) aborts the loop and returns the empty default —
//	resending the same request at an unhealthy provider burns latency
//	for nothing.
//
// Inputs:
//   - ctx: Cancellation context; also bounds pacer waits.
//   - client: The completion client. Must not be nil.
//   - prompt: The initial prompt.
//   - schema: Parse/validate/empty-default for the expected reply shape.
//   - opts: Tuning. The zero value means no retries, no pacing.
//
// Outputs:
//   - Result[T]: Either a validated value or the schema's empty default.
//     Never an error.
//
// Thread Safety: Safe for concurrent use.
func Run[T any](ctx context.Context, client llm.CompletionClient, prompt string, schema Schema[T], opts Options) Result[T] {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	stage := opts.Stage
	if stage == "" {
		stage = metrics.StageInvoke
	}
	log := slog.Default().With("component", "invoke", "stage", stage)

	current := prompt
	attempts := 0
	for try := 0; try <= opts.MaxRetries; try++ {
		if opts.Pacer != nil {
			if err := opts.Pacer.Wait(ctx); err != nil {
				metrics.RecordFallback(stage, ReasonTransport)
				return Result[T]{Value: schema.Empty(), Fallback: true, Reason: ReasonTransport, Attempts: attempts}
			}
		}

		attempts++
		start := time.Now()
		reply, err := client.Complete(ctx, current, opts.Params)
		metrics.RecordModelCall(stage, time.Since(start).Seconds(), err)
		if err != nil {
			log.Warn("model call failed, returning empty default",
				"attempt", attempts, "error", llm.SafeLogString(err.Error()))
			metrics.RecordFallback(stage, ReasonTransport)
			return Result[T]{Value: schema.Empty(), Fallback: true, Reason: ReasonTransport, Attempts: attempts}
		}

		stripped := StripFences(reply)
		value, parseErr := schema.Parse(stripped)
		if parseErr == nil {
			return Result[T]{Value: value, Attempts: attempts}
		}

		log.Debug("reply failed validation",
			"attempt", attempts, "error", parseErr.Error())
		current = correctionPrompt(prompt, stripped, parseErr)
	}

	log.Warn("validation retries exhausted, returning empty default", "attempts", attempts)
	metrics.RecordFallback(stage, ReasonExhausted)
	return Result[T]{Value: schema.Empty(), Fallback: true, Reason: ReasonExhausted, Attempts: attempts}
}

// correctionPrompt builds the retry prompt: the model sees its own
// invalid output and the specific validation error alongside the
// original instructions.
func correctionPrompt(original, invalidOutput string, validationErr error) string {
	const maxEcho = 2000
	if len(invalidOutput) > maxEcho {
		invalidOutput = invalidOutput[:maxEcho] + "..."
	}

	var b strings.Builder
	b.WriteString("Your previous reply was rejected and must be corrected.\n\n")
	b.WriteString("Validation error: ")
	b.WriteString(validationErr.Error())
	b.WriteString("\n\nYour previous reply:\n")
	b.WriteString(invalidOutput)
	b.WriteString("\n\nRespond again. Output only the requested structure, with no commentary. Original instructions follow.\n\n")
	b.WriteString(original)
	return b.String()
}

// StripFences removes a surrounding markdown code fence (```json ... ```
// or plain ``` ... ```) from a reply, if present.
//
// Outputs:
//   - string: The inner text, trimmed. Unfenced input comes back
//     trimmed but otherwise untouched.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	var inner []string
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			inner = append(inner, line)
		}
	}
	return strings.TrimSpace(strings.Join(inner, "\n"))
}

// structValidator is the shared validator instance behind ValidateStruct.
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs struct-tag validation for schema implementations.
//
// Description:
//
//	Schemas in this module declare their field constraints with
//	validator tags (required, min, max) on pointer fields so a missing
//	JSON key is distinguishable from a zero value. This helper shares
//	one validator instance across all of them.
//
// Thread Safety: This function is safe for concurrent use.
func ValidateStruct(v any) error {
	return structValidator.Struct(v)
}
