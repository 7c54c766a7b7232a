// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer is the classification stage: it asks the model
// whether each lexicon hit is truly ambiguous in its context and scores
// the answer with a confidence.
//
// The stage is total — it never returns an error for a model problem.
// Every failure mode degrades to the conservative fallback evaluation
// (ambiguous, confidence 0.5) so the pipeline above always has one
// result per input term.
package analyzer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/clarity/services/ambiguity/invoke"
	"github.com/AleutianAI/clarity/services/ambiguity/metrics"
	"github.com/AleutianAI/clarity/services/ambiguity/pace"
	"github.com/AleutianAI/clarity/services/ambiguity/sanitize"
	"github.com/AleutianAI/clarity/services/ambiguity/scanner"
	"github.com/AleutianAI/clarity/services/llm"
)

// Stage defaults.
const (
	// DefaultBatchSize is the number of terms sent per model call.
	DefaultBatchSize = 10

	// DefaultMaxParallel bounds concurrent chunk calls for oversize
	// batches.
	DefaultMaxParallel = 3

	// DefaultMaxPromptLength caps the context bytes placed in a prompt.
	DefaultMaxPromptLength = 4000

	// FallbackConfidence is the confidence attached to fallback results.
	FallbackConfidence = 0.5
)

// classifyTemperature keeps classification answers near-deterministic.
var classifyTemperature = float32(0.1)

// Item is one term occurrence to classify.
type Item struct {
	Term     string
	Sentence string
	Context  string // optional wider context; Sentence is used when empty
}

// Evaluation is the classification verdict for one term occurrence.
type Evaluation struct {
	IsAmbiguous bool    `json:"is_ambiguous"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// Fallback builds the conservative default evaluation: assume ambiguous
// at half confidence, so the term is surfaced to the user rather than
// silently dropped.
func Fallback(reason string) Evaluation {
	return Evaluation{IsAmbiguous: true, Confidence: FallbackConfidence, Reasoning: reason}
}

// Config tunes an Analyzer. Zero values select the defaults.
type Config struct {
	BatchSize       int
	MaxParallel     int
	MaxPromptLength int
	MaxRetries      int // correction retries per model call; negative disables retries
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	if c.MaxPromptLength <= 0 {
		c.MaxPromptLength = DefaultMaxPromptLength
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = invoke.DefaultMaxRetries
	} else if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Analyzer classifies term occurrences with a shared pacer and bounded
// parallelism.
//
// Thread Safety: Safe for concurrent use.
type Analyzer struct {
	client   llm.CompletionClient
	pacer    *pace.Pacer
	cfg      Config
	requests atomic.Int64
	log      *slog.Logger
}

// New creates an Analyzer.
//
// Inputs:
//   - client: The completion client. Must not be nil.
//   - pacer: The shared inter-request pacer. Must not be nil — every
//     stage talking to the model shares one.
//   - cfg: Tuning. The zero value selects all defaults.
//
// Outputs:
//   - *Analyzer: Ready-to-use stage. Never nil.
func New(client llm.CompletionClient, pacer *pace.Pacer, cfg Config) *Analyzer {
	if client == nil {
		panic("analyzer.New: client must not be nil")
	}
	if pacer == nil {
		panic("analyzer.New: pacer must not be nil")
	}
	return &Analyzer{
		client: client,
		pacer:  pacer,
		cfg:    cfg.withDefaults(),
		log:    slog.Default().With("component", "analyzer"),
	}
}

// Evaluate classifies a single term occurrence.
//
// Description:
//
//	Sanitizes the inputs, builds a single-term prompt, and runs the
//	validated-retry protocol. Sanitization failure and every model
//	failure mode return the fallback evaluation — never an error.
//
// Outputs:
//   - Evaluation: The verdict, possibly the fallback.
func (a *Analyzer) Evaluate(ctx context.Context, item Item) Evaluation {
	term, evalContext, ok := a.sanitizeItem(item)
	if !ok {
		metrics.RecordFallback(metrics.StageClassify, "sanitize")
		return Fallback("invalid input detected")
	}

	prompt := singleEvaluationPrompt(term, evalContext)
	res := invoke.Run[Evaluation](ctx, a.client, prompt, evaluationSchema{}, invoke.Options{
		MaxRetries: a.cfg.MaxRetries,
		Params:     llm.GenerationParams{Temperature: &classifyTemperature},
		Pacer:      a.pacer,
		Stage:      metrics.StageClassify,
	})
	a.requests.Add(int64(res.Attempts))
	return res.Value
}

// EvaluateBatch classifies many term occurrences.
//
// Description:
//
//	Three-tier ladder. Empty input returns an empty slice. At most
//	BatchSize items go out as one batched call. Anything larger splits
//	into BatchSize chunks that run concurrently, at most MaxParallel in
//	flight, and land back in input order via their chunk offsets. The
//	result always has exactly len(items) elements.
//
// Outputs:
//   - []Evaluation: One verdict per input item, in input order. Never
//     nil.
func (a *Analyzer) EvaluateBatch(ctx context.Context, items []Item) []Evaluation {
	if len(items) == 0 {
		return []Evaluation{}
	}
	if len(items) <= a.cfg.BatchSize {
		return a.evaluateChunk(ctx, items)
	}

	results := make([]Evaluation, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxParallel)

	for start := 0; start < len(items); start += a.cfg.BatchSize {
		start := start
		end := start + a.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		g.Go(func() error {
			chunk := a.evaluateChunk(gctx, items[start:end])
			copy(results[start:end], chunk)
			return nil
		})
	}
	// Workers only write disjoint slices and never return errors.
	_ = g.Wait()
	return results
}

// evaluateChunk runs one batched model call for up to BatchSize items.
//
// Items that fail sanitization never reach the prompt: they take the
// fallback evaluation directly, exactly as on the single-item path, and
// only the sanitized survivors go out in the payload.
//
// A validation-exhausted batch degrades to sequential single-item
// evaluation — individual prompts sometimes parse where the batch did
// not. A transport failure does not: the provider is unhealthy, and N
// more calls at it would compound the damage, so the chunk fills with
// fallbacks immediately.
func (a *Analyzer) evaluateChunk(ctx context.Context, items []Item) []Evaluation {
	results := make([]Evaluation, len(items))
	var batch []batchItem
	var positions []int // batch index -> input index
	for i, item := range items {
		term, evalContext, ok := a.sanitizeItem(item)
		if !ok {
			metrics.RecordFallback(metrics.StageClassify, "sanitize")
			results[i] = Fallback("invalid input detected")
			continue
		}
		batch = append(batch, batchItem{ID: len(batch), Term: term, Context: evalContext})
		positions = append(positions, i)
	}
	if len(batch) == 0 {
		return results
	}

	prompt, err := batchEvaluationPrompt(batch)
	if err != nil {
		a.log.Error("building batch prompt failed", "error", err)
		fill := batchSchema{expected: len(batch)}.Empty()
		for j, i := range positions {
			results[i] = fill[j]
		}
		return results
	}

	res := invoke.Run[[]Evaluation](ctx, a.client, prompt, batchSchema{expected: len(batch)}, invoke.Options{
		MaxRetries: a.cfg.MaxRetries,
		Params:     llm.GenerationParams{Temperature: &classifyTemperature},
		Pacer:      a.pacer,
		Stage:      metrics.StageClassify,
	})
	a.requests.Add(int64(res.Attempts))

	if res.Fallback && res.Reason == invoke.ReasonExhausted {
		a.log.Warn("batch evaluation exhausted retries, degrading to sequential",
			"items", len(batch))
		for _, i := range positions {
			results[i] = a.Evaluate(ctx, items[i])
		}
		return results
	}
	for j, i := range positions {
		results[i] = res.Value[j]
	}
	return results
}

// sanitizeItem prepares a prompt-safe (term, context) pair. The context
// string is the focus sentence, preceded by the wider context when one
// exists, trimmed to the prompt budget centered on the sentence.
func (a *Analyzer) sanitizeItem(item Item) (term, evalContext string, ok bool) {
	term, err := sanitize.PromptInput(item.Term)
	if err != nil {
		a.log.Warn("term failed sanitization", "error", err)
		return "", "", false
	}
	sentence, err := sanitize.PromptInput(item.Sentence)
	if err != nil {
		a.log.Warn("sentence failed sanitization", "error", err)
		return "", "", false
	}

	evalContext = sentence
	if item.Context != "" && item.Context != item.Sentence {
		wider, err := sanitize.PromptInput(item.Context)
		if err == nil {
			wider = scanner.FocusWindow(wider, sentence, a.cfg.MaxPromptLength)
			evalContext = wider + "\n\nFocus sentence: " + sentence
		}
	}
	return term, evalContext, true
}

// RequestStats reports how many model calls this stage has made.
type RequestStats struct {
	TotalRequests int64 `json:"total_requests"`
	BatchSize     int   `json:"batch_size"`
	MaxParallel   int   `json:"max_parallel"`
}

// Stats returns a snapshot of the stage's request counters.
func (a *Analyzer) Stats() RequestStats {
	return RequestStats{
		TotalRequests: a.requests.Load(),
		BatchSize:     a.cfg.BatchSize,
		MaxParallel:   a.cfg.MaxParallel,
	}
}
