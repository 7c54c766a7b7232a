// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ambiguity orchestrates the full clarity pipeline: lexicon
// lookup, lexical scan, model classification, and suggestion
// generation, assembled into one analysis result per input text.
//
// The service has two operating modes. With a completion client it runs
// the full pipeline; without one (or with CLARITY_USE_MODEL=false) it
// degrades to lexicon-only analyses where every hit is flagged at a
// fixed confidence. Callers see the same result shape either way.
package ambiguity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/clarity/services/ambiguity/analyzer"
	"github.com/AleutianAI/clarity/services/ambiguity/lexicon"
	"github.com/AleutianAI/clarity/services/ambiguity/pace"
	"github.com/AleutianAI/clarity/services/ambiguity/sanitize"
	"github.com/AleutianAI/clarity/services/ambiguity/scanner"
	"github.com/AleutianAI/clarity/services/ambiguity/suggest"
	"github.com/AleutianAI/clarity/services/llm"
)

// Analysis statuses. An analysis with flagged terms is pending until the
// user resolves them; one with no flagged terms is complete on arrival.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// LexiconOnlyConfidence is the fixed confidence attached to hits when no
// model is available to score them.
const LexiconOnlyConfidence = 0.7

// lexiconOnlyReasoning explains lexicon-only verdicts to the user.
const lexiconOnlyReasoning = "Flagged by lexicon match; model analysis not available"

// AnalyzedTerm is one confirmed-ambiguous term occurrence with its
// classification verdict and remediation outputs.
type AnalyzedTerm struct {
	Term                string   `json:"term"`
	Start               int      `json:"position_start"`
	End                 int      `json:"position_end"`
	Sentence            string   `json:"sentence_context"`
	IsAmbiguous         bool     `json:"is_ambiguous"`
	Confidence          float64  `json:"confidence"`
	Reasoning           string   `json:"reasoning"`
	Suggestions         []string `json:"suggestions"`
	ClarificationPrompt string   `json:"clarification_prompt"`
}

// Analysis is the result of one AnalyzeText run.
//
// Description:
//
//	Terms holds only the occurrences confirmed ambiguous, in position
//	order. TotalFlagged equals len(Terms). ModelUsed records whether
//	the verdicts came from the model or the lexicon-only path.
type Analysis struct {
	AnalysisID   string         `json:"analysis_id"`
	OwnerID      string         `json:"owner_id,omitempty"`
	OriginalText string         `json:"original_text"`
	AnalyzedAt   time.Time      `json:"analyzed_at"`
	Terms        []AnalyzedTerm `json:"ambiguous_terms"`
	TotalFlagged int            `json:"total_flagged"`
	ModelUsed    bool           `json:"model_used"`
	Status       string         `json:"status"`
}

// PerformanceStats aggregates per-stage request counters.
type PerformanceStats struct {
	ModelAvailable bool                  `json:"model_available"`
	Classifier     analyzer.RequestStats `json:"classifier"`
	Suggester      suggest.RequestStats  `json:"suggester"`
}

// Service runs the ambiguity-detection pipeline.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	lexicon   *lexicon.Manager
	analyzer  *analyzer.Analyzer
	suggester *suggest.Generator
	cfg       Config
	log       *slog.Logger
}

// NewService creates the pipeline orchestrator.
//
// Inputs:
//   - mgr: The lexicon manager. Must not be nil.
//   - client: The completion client. May be nil — the service then runs
//     lexicon-only analyses. Also forced off by cfg.UseModel=false.
//   - cfg: Pipeline tuning, typically from LoadConfig().
//
// Outputs:
//   - *Service: Ready-to-use service. Never nil.
func NewService(mgr *lexicon.Manager, client llm.CompletionClient, cfg Config) *Service {
	if mgr == nil {
		panic("ambiguity.NewService: lexicon manager must not be nil")
	}

	s := &Service{
		lexicon: mgr,
		cfg:     cfg,
		log:     slog.Default().With("component", "ambiguity"),
	}

	if client != nil && cfg.UseModel {
		interval := cfg.MinRequestInterval
		if interval <= 0 {
			interval = pace.DefaultMinInterval
		}
		// One pacer across both stages: the provider sees a single
		// request stream regardless of which stage is calling.
		pacer := pace.New(interval)
		s.analyzer = analyzer.New(client, pacer, analyzer.Config{
			BatchSize:   cfg.ClassifyBatchSize,
			MaxParallel: cfg.MaxParallel,
			MaxRetries:  cfg.MaxRetries,
		})
		s.suggester = suggest.New(client, pacer, suggest.Config{
			BatchSize:   cfg.SuggestBatchSize,
			MaxParallel: cfg.MaxParallel,
			MaxRetries:  cfg.MaxRetries,
		})
	} else {
		s.log.Warn("no completion client configured, running lexicon-only analyses")
	}
	return s
}

// ModelAvailable reports whether the service can make model calls.
func (s *Service) ModelAvailable() bool {
	return s.analyzer != nil
}

// AnalyzeText runs the full pipeline over one text.
//
// Description:
//
//	Sanitizes the input, resolves the owner's effective lexicon, scans
//	for whole-word hits, classifies every hit in batches, and generates
//	suggestions plus a clarification question for each hit the model
//	confirmed ambiguous. Hits the model rejects as clear are dropped
//	from the result. Without a model, every hit is kept at
//	LexiconOnlyConfidence with template remediation.
//
// Inputs:
//   - ctx: Cancellation context.
//   - text: The requirements text to analyze.
//   - ownerID: Selects the custom lexicon scopes. Empty uses the global
//     lexicon only.
//
// Outputs:
//   - Analysis: The assembled result. Model failures degrade per-term
//     and never surface here.
//   - error: Input rejection or lexicon store failure only.
func (s *Service) AnalyzeText(ctx context.Context, text, ownerID string) (Analysis, error) {
	started := time.Now()

	clean, err := sanitize.Text(text, s.cfg.MaxTextLength)
	if err != nil {
		return Analysis{}, fmt.Errorf("ambiguity: %w", err)
	}

	lex, err := s.lexicon.EffectiveLexicon(ctx, ownerID)
	if err != nil {
		return Analysis{}, fmt.Errorf("ambiguity: resolving lexicon: %w", err)
	}

	hits := scanner.Scan(clean, lex)

	var terms []AnalyzedTerm
	if s.analyzer != nil {
		terms = s.analyzeWithModel(ctx, clean, hits)
	} else {
		terms = s.analyzeLexiconOnly(hits)
	}

	analysis := Analysis{
		AnalysisID:   uuid.NewString(),
		OwnerID:      ownerID,
		OriginalText: clean,
		AnalyzedAt:   time.Now().UTC(),
		Terms:        terms,
		TotalFlagged: len(terms),
		ModelUsed:    s.analyzer != nil,
		Status:       StatusCompleted,
	}
	if len(terms) > 0 {
		analysis.Status = StatusPending
	}

	s.log.Info("analysis finished",
		"analysis_id", analysis.AnalysisID,
		"lexicon_terms", len(lex),
		"hits", len(hits),
		"flagged", analysis.TotalFlagged,
		"model_used", analysis.ModelUsed,
		"duration", time.Since(started))
	return analysis, nil
}

// analyzeWithModel classifies every hit, then generates remediation for
// the confirmed-ambiguous subset only. Suggestion requests are mapped
// back to their hits by index, so the output stays in position order.
func (s *Service) analyzeWithModel(ctx context.Context, text string, hits []scanner.Hit) []AnalyzedTerm {
	if len(hits) == 0 {
		return []AnalyzedTerm{}
	}

	items := make([]analyzer.Item, len(hits))
	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = scanner.ContextWindow(text, h.Start, h.End, 0)
		items[i] = analyzer.Item{
			Term:     h.Term,
			Sentence: h.Sentence,
			Context:  contexts[i],
		}
	}
	evals := s.analyzer.EvaluateBatch(ctx, items)

	var ambiguousIdx []int
	var reqs []suggest.Request
	for i, eval := range evals {
		if !eval.IsAmbiguous {
			continue
		}
		ambiguousIdx = append(ambiguousIdx, i)
		reqs = append(reqs, suggest.Request{
			Term:     hits[i].Term,
			Context:  contexts[i],
			Sentence: hits[i].Sentence,
		})
	}
	bundles := s.suggester.AnalyzeBatch(ctx, reqs)

	terms := make([]AnalyzedTerm, 0, len(ambiguousIdx))
	for j, i := range ambiguousIdx {
		terms = append(terms, AnalyzedTerm{
			Term:                hits[i].Term,
			Start:               hits[i].Start,
			End:                 hits[i].End,
			Sentence:            hits[i].Sentence,
			IsAmbiguous:         true,
			Confidence:          evals[i].Confidence,
			Reasoning:           evals[i].Reasoning,
			Suggestions:         bundles[j].Suggestions,
			ClarificationPrompt: bundles[j].ClarificationPrompt,
		})
	}
	return terms
}

// analyzeLexiconOnly keeps every hit at a fixed confidence with template
// remediation. No model calls are made.
func (s *Service) analyzeLexiconOnly(hits []scanner.Hit) []AnalyzedTerm {
	terms := make([]AnalyzedTerm, 0, len(hits))
	for _, h := range hits {
		fallback := suggest.FallbackBundle(h.Term)
		terms = append(terms, AnalyzedTerm{
			Term:                h.Term,
			Start:               h.Start,
			End:                 h.End,
			Sentence:            h.Sentence,
			IsAmbiguous:         true,
			Confidence:          LexiconOnlyConfidence,
			Reasoning:           lexiconOnlyReasoning,
			Suggestions:         fallback.Suggestions,
			ClarificationPrompt: fallback.ClarificationPrompt,
		})
	}
	return terms
}

// Stats returns a snapshot of per-stage request counters. Stage stats
// are zero-valued when no model is configured.
func (s *Service) Stats() PerformanceStats {
	stats := PerformanceStats{ModelAvailable: s.analyzer != nil}
	if s.analyzer != nil {
		stats.Classifier = s.analyzer.Stats()
		stats.Suggester = s.suggester.Stats()
	}
	return stats
}
