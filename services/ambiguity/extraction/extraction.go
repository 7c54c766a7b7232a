// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extraction turns unstructured discussion text into structured
// requirement artifacts: epics with user stories, or a meeting summary
// with decisions and action items. Both are call sites over the
// validated-retry invocation protocol.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/clarity/services/ambiguity/invoke"
	"github.com/AleutianAI/clarity/services/ambiguity/pace"
	"github.com/AleutianAI/clarity/services/ambiguity/sanitize"
	"github.com/AleutianAI/clarity/services/llm"
)

// extractionTemperature keeps structured extraction near-deterministic.
var extractionTemperature = float32(0.2)

// ErrEmptyContext is returned when no discussion text is supplied.
var ErrEmptyContext = errors.New("extraction: context text is empty")

// UserStory is one extracted story with its acceptance criteria.
type UserStory struct {
	Story              string   `json:"story" validate:"required"`
	AcceptanceCriteria []string `json:"acceptance_criteria" validate:"required,min=1,dive,required"`
}

// Epic groups related user stories under one feature.
type Epic struct {
	EpicName    string      `json:"epic_name" validate:"required"`
	UserStories []UserStory `json:"user_stories" validate:"required,min=1,dive"`
}

// RequirementSet is the structured output of requirements generation.
// Degraded marks a set produced by the fallback path — no validated
// model reply — which callers must not confuse with "no epics found".
type RequirementSet struct {
	Epics    []Epic `json:"epics"`
	Degraded bool   `json:"-"`
}

// ActionItem is one task extracted from a discussion.
type ActionItem struct {
	Task     string `json:"task" validate:"required"`
	Assignee string `json:"assignee"`
}

// Summary is the structured output of discussion summarization.
type Summary struct {
	Summary       string       `json:"summary"`
	KeyDecisions  []string     `json:"key_decisions"`
	OpenQuestions []string     `json:"open_questions"`
	ActionItems   []ActionItem `json:"action_items"`
	Degraded      bool         `json:"-"`
}

// requirementSetSchema validates the epic/story reply.
type requirementSetSchema struct{}

func (requirementSetSchema) Parse(raw string) (RequirementSet, error) {
	var set RequirementSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return RequirementSet{}, fmt.Errorf("parsing requirements object: %w", err)
	}
	if len(set.Epics) == 0 {
		return RequirementSet{}, errors.New("requirements object contains no epics")
	}
	for i, epic := range set.Epics {
		if err := invoke.ValidateStruct(epic); err != nil {
			return RequirementSet{}, fmt.Errorf("validating epic %d: %w", i, err)
		}
	}
	return set, nil
}

func (requirementSetSchema) Empty() RequirementSet {
	return RequirementSet{Degraded: true}
}

// summaryWire mirrors Summary with validation tags.
type summaryWire struct {
	Summary       string       `json:"summary" validate:"required"`
	KeyDecisions  []string     `json:"key_decisions"`
	OpenQuestions []string     `json:"open_questions"`
	ActionItems   []ActionItem `json:"action_items" validate:"dive"`
}

// summarySchema validates the meeting-summary reply.
type summarySchema struct{}

func (summarySchema) Parse(raw string) (Summary, error) {
	var w summaryWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Summary{}, fmt.Errorf("parsing summary object: %w", err)
	}
	if err := invoke.ValidateStruct(w); err != nil {
		return Summary{}, fmt.Errorf("validating summary object: %w", err)
	}
	return Summary{
		Summary:       w.Summary,
		KeyDecisions:  w.KeyDecisions,
		OpenQuestions: w.OpenQuestions,
		ActionItems:   w.ActionItems,
	}, nil
}

func (summarySchema) Empty() Summary {
	return Summary{Degraded: true}
}

// Service runs extraction calls.
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
		panic("extraction.New: client must not be nil")
	}
	if pacer == nil {
		panic("extraction.New: pacer must not be nil")
	}
	if maxRetries <= 0 {
		maxRetries = invoke.DefaultMaxRetries
	}
	return &Service{
		client:     client,
		pacer:      pacer,
		maxRetries: maxRetries,
		log:        slog.Default().With("component", "extraction"),
	}
}

// GenerateRequirements extracts epics and user stories from discussion
// text.
//
// Inputs:
//   - ctx: Cancellation context.
//   - contextText: The discussion/transcript to analyze.
//   - userQuery: What the user wants extracted.
//
// Outputs:
//   - RequirementSet: Validated epics, or a Degraded empty set when the
//     model could not produce one.
//   - error: Input validation only; model failures degrade instead.
func (s *Service) GenerateRequirements(ctx context.Context, contextText, userQuery string) (RequirementSet, error) {
	cleanContext, err := sanitize.PromptInput(contextText)
	if err != nil {
		return RequirementSet{}, fmt.Errorf("extraction: %w", err)
	}
	cleanQuery, err := sanitize.PromptInput(userQuery)
	if err != nil {
		return RequirementSet{}, fmt.Errorf("extraction: %w", err)
	}

	res := invoke.Run[RequirementSet](ctx, s.client, requirementsPrompt(cleanContext, cleanQuery),
		requirementSetSchema{}, s.options())
	if res.Fallback {
		s.log.Warn("requirements generation degraded", "reason", res.Reason)
	}
	return res.Value, nil
}

// SummarizeDiscussion extracts a summary, decisions, open questions, and
// action items from discussion text.
//
// Outputs:
//   - Summary: The validated summary, or a Degraded empty one.
//   - error: Input validation only; model failures degrade instead.
func (s *Service) SummarizeDiscussion(ctx context.Context, contextText string) (Summary, error) {
	cleanContext, err := sanitize.PromptInput(contextText)
	if err != nil {
		return Summary{}, fmt.Errorf("extraction: %w", err)
	}

	res := invoke.Run[Summary](ctx, s.client, summaryPrompt(cleanContext), summarySchema{}, s.options())
	if res.Fallback {
		s.log.Warn("discussion summarization degraded", "reason", res.Reason)
	}
	return res.Value, nil
}

func (s *Service) options() invoke.Options {
	return invoke.Options{
		MaxRetries: s.maxRetries,
		Params:     llm.GenerationParams{Temperature: &extractionTemperature},
		Pacer:      s.pacer,
		Stage:      "extraction",
	}
}

// requirementsPrompt builds the epic/story extraction prompt.
func requirementsPrompt(contextText, userQuery string) string {
	return fmt.Sprintf(`You are an expert Senior Product Manager and Software Architect, renowned for your ability to distill complex discussions into clear, actionable requirements.

Analyze the following context carefully:
--- CONTEXT ---
%s
--- END CONTEXT ---

Based on the context and the user's request, perform the following task:
--- USER REQUEST ---
%s
--- END USER REQUEST ---

INSTRUCTIONS:
1. Identify the main features or epics discussed in the context.
2. For each epic, generate 3-5 clear, concise user stories in the format: "As a [persona], I want [action], so that [benefit]."
3. For each user story, generate 2-4 specific, testable acceptance criteria.
4. The final output MUST be a single, valid JSON object with no text outside it, strictly adhering to this schema:
{"epics": [{"epic_name": "Name of the Epic/Feature", "user_stories": [{"story": "As a [persona], I want [action], so that [benefit].", "acceptance_criteria": ["Criteria 1", "Criteria 2"]}]}]}`,
		contextText, userQuery)
}

// summaryPrompt builds the meeting-summary extraction prompt.
func summaryPrompt(contextText string) string {
	return fmt.Sprintf(`You are an expert Meeting Analyst. Your task is to process the following meeting transcript/notes and extract key structural information.

Analyze the following transcript carefully:
--- CONTEXT ---
%s
--- END CONTEXT ---

INSTRUCTIONS:
1. Provide a concise summary of the entire discussion.
2. Identify all final, critical decisions made.
3. Identify all outstanding questions, dependencies, or unresolved debates.
4. Extract all explicit action items, assigning the person's name where possible.
5. The final output MUST be a single, valid JSON object with no text outside it, strictly adhering to this schema:
{"summary": "A concise summary of the meeting.", "key_decisions": ["Decision 1"], "open_questions": ["Question 1 or unresolved topic"], "action_items": [{"task": "Task assigned to a person.", "assignee": "Name"}]}`,
		contextText)
}
