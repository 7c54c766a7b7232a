// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics exposes Prometheus instrumentation shared by the clarity
// pipeline stages. Stages record outcomes through the helper functions; the
// process exposes them through whatever registry endpoint the embedding
// application configures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Clarity Pipeline
// =============================================================================

var (
	// modelCallsTotal counts outgoing model calls by stage and status.
	// Labels: stage (classify, suggest, invoke), status (ok, error)
	modelCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clarity",
		Subsystem: "pipeline",
		Name:      "model_calls_total",
		Help:      "Total outgoing model calls by stage and status",
	}, []string{"stage", "status"})

	// fallbackResultsTotal counts fallback results handed to callers in
	// place of validated model output.
	// Labels: stage, reason (transport, parse, validation, exhausted)
	fallbackResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clarity",
		Subsystem: "pipeline",
		Name:      "fallback_results_total",
		Help:      "Total fallback results substituted for model output",
	}, []string{"stage", "reason"})

	// modelCallSeconds measures outgoing model call latency by stage.
	// Labels: stage
	modelCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clarity",
		Subsystem: "pipeline",
		Name:      "model_call_seconds",
		Help:      "Outgoing model call latency by stage",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	// lexiconCacheTotal counts effective-lexicon cache lookups.
	// Labels: result (hit, miss)
	lexiconCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clarity",
		Subsystem: "lexicon",
		Name:      "cache_total",
		Help:      "Effective-lexicon cache lookups by result",
	}, []string{"result"})
)

// Stage label values used by the pipeline.
const (
	StageClassify = "classify"
	StageSuggest  = "suggest"
	StageInvoke   = "invoke"
)

// RecordModelCall records an outgoing model call outcome.
//
// Inputs:
//   - stage: The pipeline stage label.
//   - durationSec: Call duration in seconds.
//   - err: The call error, nil on success.
func RecordModelCall(stage string, durationSec float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	modelCallsTotal.WithLabelValues(stage, status).Inc()
	modelCallSeconds.WithLabelValues(stage).Observe(durationSec)
}

// RecordFallback records a fallback result substituted for model output.
//
// Inputs:
//   - stage: The pipeline stage label.
//   - reason: What forced the fallback ("transport", "parse", "validation",
//     "exhausted").
func RecordFallback(stage, reason string) {
	fallbackResultsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordLexiconCacheHit records an effective-lexicon cache hit.
func RecordLexiconCacheHit() {
	lexiconCacheTotal.WithLabelValues("hit").Inc()
}

// RecordLexiconCacheMiss records an effective-lexicon cache miss.
func RecordLexiconCacheMiss() {
	lexiconCacheTotal.WithLabelValues("miss").Inc()
}
