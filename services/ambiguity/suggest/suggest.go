// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suggest is the suggestion stage: for a confirmed-ambiguous
// term it produces quantifiable replacement phrases and a plain-language
// clarification question.
//
// Like the classification stage, it is total — every failure mode
// degrades to deterministic template fallbacks, so callers never
// receive an empty result or an error for a model problem.
package suggest

import (
	"context"
	"fmt"
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
	// Lower than the classification stage's: suggestion replies are
	// much larger per term.
	DefaultBatchSize = 8

	// DefaultMaxParallel bounds concurrent chunk calls.
	DefaultMaxParallel = 3

	// DefaultMaxContextLength caps the context bytes placed in a prompt.
	DefaultMaxContextLength = 3000
)

// suggestTemperature allows some phrasing variety in suggestions.
var suggestTemperature = float32(0.3)

// Request is one suggestion-generation input.
type Request struct {
	Term     string
	Context  string
	Sentence string // optional; Context stands in when empty
}

// Bundle is the combined suggestion output for one term.
type Bundle struct {
	Suggestions         []string `json:"suggestions"`
	ClarificationPrompt string   `json:"clarification_prompt"`
}

// FallbackSuggestions returns the deterministic template replacements
// used when the model cannot produce validated ones.
func FallbackSuggestions(term string) []string {
	return []string{
		fmt.Sprintf("Define specific metrics or thresholds for '%s'", term),
		fmt.Sprintf("Specify measurable criteria for '%s'", term),
		fmt.Sprintf("Provide quantifiable requirements for '%s'", term),
	}
}

// FallbackQuestion returns the deterministic template clarification
// question.
func FallbackQuestion(term string) string {
	return fmt.Sprintf("What specific, measurable criteria do you mean by '%s'?", term)
}

// FallbackBundle combines both template fallbacks.
func FallbackBundle(term string) Bundle {
	return Bundle{
		Suggestions:         FallbackSuggestions(term),
		ClarificationPrompt: FallbackQuestion(term),
	}
}

// Config tunes a Generator. Zero values select the defaults.
type Config struct {
	BatchSize        int
	MaxParallel      int
	MaxContextLength int
	MaxRetries       int // correction retries per model call; negative disables retries
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	if c.MaxContextLength <= 0 {
		c.MaxContextLength = DefaultMaxContextLength
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = invoke.DefaultMaxRetries
	} else if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Generator produces suggestions and clarification questions.
//
// Thread Safety: Safe for concurrent use.
type Generator struct {
	client   llm.CompletionClient
	pacer    *pace.Pacer
	cfg      Config
	requests atomic.Int64
	log      *slog.Logger
}

// New creates a Generator.
//
// Inputs:
//   - client: The completion client. Must not be nil.
//   - pacer: The shared inter-request pacer. Must not be nil.
//   - cfg: Tuning. The zero value selects all defaults.
func New(client llm.CompletionClient, pacer *pace.Pacer, cfg Config) *Generator {
	if client == nil {
		panic("suggest.New: client must not be nil")
	}
	if pacer == nil {
		panic("suggest.New: pacer must not be nil")
	}
	return &Generator{
		client: client,
		pacer:  pacer,
		cfg:    cfg.withDefaults(),
		log:    slog.Default().With("component", "suggest"),
	}
}

// Suggest generates 2-3 quantifiable replacement phrases for a term.
//
// Outputs:
//   - []string: Validated suggestions, or the template fallbacks. Never
//     empty.
func (g *Generator) Suggest(ctx context.Context, req Request) []string {
	term, evalContext, sentence, ok := g.sanitizeRequest(req)
	if !ok {
		metrics.RecordFallback(metrics.StageSuggest, "sanitize")
		return FallbackSuggestions(req.Term)
	}

	res := invoke.Run[[]string](ctx, g.client, suggestionPrompt(term, evalContext, sentence),
		suggestionsSchema{term: req.Term}, g.options())
	g.requests.Add(int64(res.Attempts))
	return res.Value
}

// Clarify generates one plain-language clarification question.
//
// Outputs:
//   - string: The validated question, or the template fallback. Never
//     empty.
func (g *Generator) Clarify(ctx context.Context, req Request) string {
	term, evalContext, sentence, ok := g.sanitizeRequest(req)
	if !ok {
		metrics.RecordFallback(metrics.StageSuggest, "sanitize")
		return FallbackQuestion(req.Term)
	}

	res := invoke.Run[string](ctx, g.client, clarificationPrompt(term, evalContext, sentence),
		questionSchema{term: req.Term}, g.options())
	g.requests.Add(int64(res.Attempts))
	return res.Value
}

// Analyze generates suggestions and the clarification question from one
// model call.
//
// Outputs:
//   - Bundle: Both outputs, each independently degraded to its template
//     fallback if invalid. Never empty.
func (g *Generator) Analyze(ctx context.Context, req Request) Bundle {
	term, evalContext, sentence, ok := g.sanitizeRequest(req)
	if !ok {
		metrics.RecordFallback(metrics.StageSuggest, "sanitize")
		return FallbackBundle(req.Term)
	}

	res := invoke.Run[Bundle](ctx, g.client, analysisPrompt(term, evalContext, sentence),
		bundleSchema{term: req.Term}, g.options())
	g.requests.Add(int64(res.Attempts))
	return res.Value
}

// AnalyzeBatch generates combined analyses for many terms.
//
// Description:
//
//	Same three-tier ladder as the classification stage: empty input,
//	one batched call up to BatchSize, or concurrent BatchSize chunks
//	capped at MaxParallel and reassembled in input order. The result
//	always has exactly len(reqs) elements.
//
// Outputs:
//   - []Bundle: One bundle per request, in input order. Never nil.
func (g *Generator) AnalyzeBatch(ctx context.Context, reqs []Request) []Bundle {
	if len(reqs) == 0 {
		return []Bundle{}
	}
	if len(reqs) <= g.cfg.BatchSize {
		return g.analyzeChunk(ctx, reqs)
	}

	results := make([]Bundle, len(reqs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.MaxParallel)

	for start := 0; start < len(reqs); start += g.cfg.BatchSize {
		start := start
		end := start + g.cfg.BatchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		eg.Go(func() error {
			chunk := g.analyzeChunk(gctx, reqs[start:end])
			copy(results[start:end], chunk)
			return nil
		})
	}
	// Workers only write disjoint slices and never return errors.
	_ = eg.Wait()
	return results
}

// analyzeChunk runs one batched model call. Requests that fail
// sanitization never reach the prompt — they take their template
// fallback bundle directly and only sanitized survivors go out.
// Validation exhaustion degrades to sequential single-term calls;
// transport failure fills the chunk with template fallbacks immediately.
func (g *Generator) analyzeChunk(ctx context.Context, reqs []Request) []Bundle {
	results := make([]Bundle, len(reqs))
	var items []batchRequestItem
	var terms []string
	var positions []int // batch index -> input index
	for i, req := range reqs {
		term, evalContext, sentence, ok := g.sanitizeRequest(req)
		if !ok {
			metrics.RecordFallback(metrics.StageSuggest, "sanitize")
			results[i] = FallbackBundle(req.Term)
			continue
		}
		items = append(items, batchRequestItem{ID: len(items), Term: term, Context: evalContext, Sentence: sentence})
		terms = append(terms, req.Term)
		positions = append(positions, i)
	}
	if len(items) == 0 {
		return results
	}

	prompt, err := batchAnalysisPrompt(items)
	if err != nil {
		g.log.Error("building batch prompt failed", "error", err)
		fill := batchBundleSchema{terms: terms}.Empty()
		for j, i := range positions {
			results[i] = fill[j]
		}
		return results
	}

	res := invoke.Run[[]Bundle](ctx, g.client, prompt, batchBundleSchema{terms: terms}, g.options())
	g.requests.Add(int64(res.Attempts))

	if res.Fallback && res.Reason == invoke.ReasonExhausted {
		g.log.Warn("batch analysis exhausted retries, degrading to sequential",
			"items", len(items))
		for _, i := range positions {
			results[i] = g.Analyze(ctx, reqs[i])
		}
		return results
	}
	for j, i := range positions {
		results[i] = res.Value[j]
	}
	return results
}

func (g *Generator) options() invoke.Options {
	return invoke.Options{
		MaxRetries: g.cfg.MaxRetries,
		Params:     llm.GenerationParams{Temperature: &suggestTemperature},
		Pacer:      g.pacer,
		Stage:      metrics.StageSuggest,
	}
}

// sanitizeRequest prepares prompt-safe inputs. The context is trimmed to
// the budget centered on the sentence when one is known.
func (g *Generator) sanitizeRequest(req Request) (term, evalContext, sentence string, ok bool) {
	term, err := sanitize.PromptInput(req.Term)
	if err != nil {
		g.log.Warn("term failed sanitization", "error", err)
		return "", "", "", false
	}
	evalContext, err = sanitize.PromptInput(req.Context)
	if err != nil {
		g.log.Warn("context failed sanitization", "error", err)
		return "", "", "", false
	}

	sentence = evalContext
	if req.Sentence != "" {
		s, err := sanitize.PromptInput(req.Sentence)
		if err != nil {
			g.log.Warn("sentence failed sanitization", "error", err)
			return "", "", "", false
		}
		sentence = s
	}

	evalContext = scanner.FocusWindow(evalContext, sentence, g.cfg.MaxContextLength)
	return term, evalContext, sentence, true
}

// RequestStats reports how many model calls this stage has made.
type RequestStats struct {
	TotalRequests int64 `json:"total_requests"`
	BatchSize     int   `json:"batch_size"`
	MaxParallel   int   `json:"max_parallel"`
}

// Stats returns a snapshot of the stage's request counters.
func (g *Generator) Stats() RequestStats {
	return RequestStats{
		TotalRequests: g.requests.Load(),
		BatchSize:     g.cfg.BatchSize,
		MaxParallel:   g.cfg.MaxParallel,
	}
}
