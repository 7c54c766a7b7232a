// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package contradiction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/clarity/services/ambiguity/pace"
	"github.com/AleutianAI/clarity/services/llm"
)

type scriptedClient struct {
	replies []string
	errs    []error
	prompts []string
}

func (c *scriptedClient) Complete(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	c.prompts = append(c.prompts, prompt)
	i := len(c.prompts) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "", errors.New("scripted client exhausted")
}

func testRequirements() []Requirement {
	return []Requirement{
		{ID: "R1", Type: "Requirement", Text: "All data must be stored on-premises."},
		{ID: "R2", Type: "Requirement", Text: "Backups must use the managed cloud backup service."},
		{ID: "R3", Type: "UserStory", Text: "As an admin, I want audit logs, so that access is traceable."},
	}
}

func TestRunAnalysisFindsConflicts(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"contradictions": [{"conflict_id": "C1", "reason": "On-premises storage excludes cloud backups.", "conflicting_requirement_ids": ["R1", "R2"]}]}`,
	}}
	s := New(client, pace.New(time.Microsecond), 0)

	report, err := s.RunAnalysis(context.Background(), testRequirements(), "Regulated healthcare deployment.")
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	if report.Status != StatusComplete {
		t.Errorf("status = %q, want %q", report.Status, StatusComplete)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].ConflictID != "C1" {
		t.Errorf("conflicts = %+v", report.Conflicts)
	}
	if report.AnalysisID == "" {
		t.Error("missing analysis id")
	}

	prompt := client.prompts[0]
	for _, needle := range []string{"R1", "on-premises", "Regulated healthcare deployment."} {
		if !strings.Contains(prompt, needle) {
			t.Errorf("prompt missing %q", needle)
		}
	}
}

func TestRunAnalysisNoConflicts(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"contradictions": []}`}}
	s := New(client, pace.New(time.Microsecond), 0)

	report, err := s.RunAnalysis(context.Background(), testRequirements(), "")
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if report.Status != StatusNoConflicts || len(report.Conflicts) != 0 {
		t.Errorf("report = %+v, want no conflicts", report)
	}
}

func TestRunAnalysisDegradesOnTransportFailure(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("gateway timeout")}}
	s := New(client, pace.New(time.Microsecond), 3)

	report, err := s.RunAnalysis(context.Background(), testRequirements(), "")
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("status = %q, want %q", report.Status, StatusDegraded)
	}
	if len(client.prompts) != 1 {
		t.Errorf("calls = %d, want 1 (no retry on transport failure)", len(client.prompts))
	}
}

func TestRunAnalysisRetriesInvalidConflict(t *testing.T) {
	// First reply misses the minimum of two requirement ids; the retry
	// must carry the validation feedback and succeed.
	client := &scriptedClient{replies: []string{
		`{"contradictions": [{"conflict_id": "C1", "reason": "Bad pair.", "conflicting_requirement_ids": ["R1"]}]}`,
		`{"contradictions": [{"conflict_id": "C1", "reason": "Bad pair.", "conflicting_requirement_ids": ["R1", "R2"]}]}`,
	}}
	s := New(client, pace.New(time.Microsecond), 2)

	report, err := s.RunAnalysis(context.Background(), testRequirements(), "")
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if report.Status != StatusComplete || len(report.Conflicts) != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(client.prompts) != 2 {
		t.Fatalf("calls = %d, want 2", len(client.prompts))
	}
	if !strings.Contains(client.prompts[1], "conflict 0") {
		t.Errorf("correction prompt missing validation feedback:\n%s", client.prompts[1])
	}
}

type stubSource struct {
	requirements map[string][]Requirement
	err          error
}

func (s *stubSource) Requirements(_ context.Context, documentID string) ([]Requirement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.requirements[documentID], nil
}

func TestAnalyzeDocument(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"contradictions": []}`}}
	s := New(client, pace.New(time.Microsecond), 0)
	source := &stubSource{requirements: map[string][]Requirement{
		"doc-1": testRequirements(),
	}}

	report, err := s.AnalyzeDocument(context.Background(), source, "doc-1", "")
	if err != nil {
		t.Fatalf("AnalyzeDocument: %v", err)
	}
	if report.Status != StatusNoConflicts {
		t.Errorf("status = %q, want %q", report.Status, StatusNoConflicts)
	}
	if !strings.Contains(client.prompts[0], "R1") {
		t.Errorf("prompt missing sourced requirements:\n%s", client.prompts[0])
	}
}

func TestAnalyzeDocumentSourceFailure(t *testing.T) {
	s := New(&scriptedClient{}, pace.New(time.Microsecond), 0)
	source := &stubSource{err: errors.New("connection reset")}

	if _, err := s.AnalyzeDocument(context.Background(), source, "doc-1", ""); err == nil {
		t.Error("expected error when the source fails")
	}
}

func TestAnalyzeDocumentEmptyDocument(t *testing.T) {
	s := New(&scriptedClient{}, pace.New(time.Microsecond), 0)
	source := &stubSource{requirements: map[string][]Requirement{}}

	if _, err := s.AnalyzeDocument(context.Background(), source, "doc-unknown", ""); !errors.Is(err, ErrNoRequirements) {
		t.Errorf("err = %v, want ErrNoRequirements", err)
	}
}

func TestRunAnalysisRejectsEmptyInput(t *testing.T) {
	client := &scriptedClient{}
	s := New(client, pace.New(time.Microsecond), 0)

	if _, err := s.RunAnalysis(context.Background(), nil, ""); !errors.Is(err, ErrNoRequirements) {
		t.Errorf("err = %v, want ErrNoRequirements", err)
	}
}
