// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package contradiction finds logically conflicting pairs within a set
// of requirements. It is a thin call site over the validated-retry
// invocation protocol: one prompt, one schema, degraded empty report
// when the model cannot answer.
package contradiction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/clarity/services/ambiguity/invoke"
	"github.com/AleutianAI/clarity/services/ambiguity/pace"
	"github.com/AleutianAI/clarity/services/llm"
)

// Report statuses.
const (
	StatusComplete    = "complete"
	StatusNoConflicts = "no_conflicts"
	StatusDegraded    = "degraded" // the model produced no validated reply
)

// analysisTemperature keeps conflict detection near-deterministic.
var analysisTemperature = float32(0.1)

// ErrNoRequirements is returned when the input set is empty.
var ErrNoRequirements = errors.New("contradiction: no requirements to analyze")

// Requirement is one requirement handed to the analysis. How these are
// fetched (database, document ingestion) is the caller's concern.
type Requirement struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "Requirement" or "UserStory"
	Text string `json:"text"`
}

// RequirementSource supplies requirements for a document. Implemented by
// the persistence collaborator outside this module.
type RequirementSource interface {
	Requirements(ctx context.Context, documentID string) ([]Requirement, error)
}

// Conflict is one detected contradiction between requirements.
type Conflict struct {
	ConflictID     string   `json:"conflict_id"`
	Reason         string   `json:"reason"`
	RequirementIDs []string `json:"conflicting_requirement_ids"`
}

// Report is the outcome of one analysis run.
type Report struct {
	AnalysisID string     `json:"analysis_id"`
	AnalyzedAt time.Time  `json:"analyzed_at"`
	Status     string     `json:"status"`
	Conflicts  []Conflict `json:"conflicts"`
}

// conflictWire mirrors Conflict with validation tags.
type conflictWire struct {
	ConflictID     string   `json:"conflict_id" validate:"required"`
	Reason         string   `json:"reason" validate:"required,max=1000"`
	RequirementIDs []string `json:"conflicting_requirement_ids" validate:"required,min=2,dive,required"`
}

// reportWire is the JSON shape the model must return.
type reportWire struct {
	Contradictions []conflictWire `json:"contradictions"`
}

// reportSchema parses and validates the contradiction reply. An empty
// contradictions array is a valid answer — many requirement sets simply
// have no conflicts.
type reportSchema struct{}

func (reportSchema) Parse(raw string) ([]Conflict, error) {
	var w reportWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("parsing contradiction report: %w", err)
	}
	conflicts := make([]Conflict, 0, len(w.Contradictions))
	for i, c := range w.Contradictions {
		if err := invoke.ValidateStruct(c); err != nil {
			return nil, fmt.Errorf("validating conflict %d: %w", i, err)
		}
		conflicts = append(conflicts, Conflict{
			ConflictID:     c.ConflictID,
			Reason:         c.Reason,
			RequirementIDs: c.RequirementIDs,
		})
	}
	return conflicts, nil
}

func (reportSchema) Empty() []Conflict { return nil }

// Service runs contradiction analyses.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	client     llm.CompletionClient
	pacer      *pace.Pacer
	maxRetries int
	log        *slog.Logger
}

// New creates a Service.
//
// Inputs:
//   - client: The completion client. Must not be nil.
//   - pacer: The shared inter-request pacer. Must not be nil.
//   - maxRetries: Correction retries per call. Pass 0 for the protocol
//     default.
func New(client llm.CompletionClient, pacer *pace.Pacer, maxRetries int) *Service {
	if client == nil {
		panic("contradiction.New: client must not be nil")
	}
	if pacer == nil {
		panic("contradiction.New: pacer must not be nil")
	}
	if maxRetries <= 0 {
		maxRetries = invoke.DefaultMaxRetries
	}
	return &Service{
		client:     client,
		pacer:      pacer,
		maxRetries: maxRetries,
		log:        slog.Default().With("component", "contradiction"),
	}
}

// RunAnalysis asks the model for conflicting pairs among requirements.
//
// Description:
//
//	The requirements are serialized into one prompt together with the
//	optional project context, and the reply runs through the
//	validated-retry protocol. A model failure does not error: the
//	report comes back with StatusDegraded and no conflicts, which
//	callers must treat as "analysis unavailable", not "no conflicts".
//
// Inputs:
//   - ctx: Cancellation context.
//   - requirements: The set to analyze. Must be non-empty.
//   - projectContext: Optional prose describing the project.
//
// Outputs:
//   - Report: The analysis outcome. AnalysisID is a fresh UUID.
//   - error: ErrNoRequirements only; model failures degrade instead.
func (s *Service) RunAnalysis(ctx context.Context, requirements []Requirement, projectContext string) (Report, error) {
	if len(requirements) == 0 {
		return Report{}, ErrNoRequirements
	}

	prompt, err := analysisPrompt(requirements, projectContext)
	if err != nil {
		return Report{}, err
	}

	res := invoke.Run[[]Conflict](ctx, s.client, prompt, reportSchema{}, invoke.Options{
		MaxRetries: s.maxRetries,
		Params:     llm.GenerationParams{Temperature: &analysisTemperature},
		Pacer:      s.pacer,
		Stage:      "contradiction",
	})

	report := Report{
		AnalysisID: uuid.NewString(),
		AnalyzedAt: time.Now().UTC(),
		Conflicts:  res.Value,
	}
	switch {
	case res.Fallback:
		report.Status = StatusDegraded
	case len(res.Value) == 0:
		report.Status = StatusNoConflicts
	default:
		report.Status = StatusComplete
	}

	s.log.Info("contradiction analysis finished",
		"analysis_id", report.AnalysisID,
		"requirements", len(requirements),
		"conflicts", len(report.Conflicts),
		"status", report.Status)
	return report, nil
}

// AnalyzeDocument loads a document's requirements from source and runs
// the contradiction analysis over them.
//
// Inputs:
//   - ctx: Cancellation context.
//   - source: The requirement supplier. Must not be nil.
//   - documentID: The document whose requirements to analyze.
//   - projectContext: Optional prose describing the project.
//
// Outputs:
//   - Report: The analysis outcome.
//   - error: Source failure, ErrNoRequirements for an empty document.
func (s *Service) AnalyzeDocument(ctx context.Context, source RequirementSource, documentID, projectContext string) (Report, error) {
	requirements, err := source.Requirements(ctx, documentID)
	if err != nil {
		return Report{}, fmt.Errorf("contradiction: loading requirements for document %s: %w", documentID, err)
	}
	return s.RunAnalysis(ctx, requirements, projectContext)
}

// analysisPrompt builds the contradiction-detection prompt.
func analysisPrompt(requirements []Requirement, projectContext string) (string, error) {
	payload, err := json.Marshal(requirements)
	if err != nil {
		return "", fmt.Errorf("contradiction: encoding requirements: %w", err)
	}

	contextSection := ""
	if projectContext != "" {
		contextSection = fmt.Sprintf("\nProject context:\n%s\n", projectContext)
	}

	return fmt.Sprintf(`You are an expert Requirements Analyst. Your task is to find pairs or groups of requirements that logically contradict each other.
%s
Requirements (JSON):
%s

INSTRUCTIONS:
1. Compare the requirements against each other and identify genuine logical contradictions, mutually exclusive constraints, or incompatible goals.
2. Do not report vague wording or overlap as a contradiction — only requirements that cannot both be satisfied.
3. The final output MUST be a single, valid JSON object with this schema:
{"contradictions": [{"conflict_id": "C1", "reason": "Why these requirements conflict.", "conflicting_requirement_ids": ["R1", "R2"]}]}
4. If there are no contradictions, return {"contradictions": []}.
5. Do not include any text outside the JSON object.`, contextSection, payload), nil
}
