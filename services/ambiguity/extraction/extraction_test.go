// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extraction

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

const validRequirementsReply = `{
  "epics": [
    {
      "epic_name": "Checkout",
      "user_stories": [
        {
          "story": "As a shopper, I want to pay with one click, so that checkout is quick.",
          "acceptance_criteria": ["Payment completes in a single confirmation step", "Saved cards are selectable"]
        }
      ]
    }
  ]
}`

func TestGenerateRequirements(t *testing.T) {
	client := &scriptedClient{replies: []string{validRequirementsReply}}
	s := New(client, pace.New(time.Microsecond), 0)

	set, err := s.GenerateRequirements(context.Background(),
		"The team discussed simplifying checkout.", "Extract the checkout requirements.")
	if err != nil {
		t.Fatalf("GenerateRequirements: %v", err)
	}

	if set.Degraded {
		t.Fatal("unexpected degraded set")
	}
	if len(set.Epics) != 1 || set.Epics[0].EpicName != "Checkout" {
		t.Errorf("epics = %+v", set.Epics)
	}
	if len(set.Epics[0].UserStories[0].AcceptanceCriteria) != 2 {
		t.Errorf("criteria = %+v", set.Epics[0].UserStories[0])
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "simplifying checkout") || !strings.Contains(prompt, "Extract the checkout requirements.") {
		t.Errorf("prompt missing inputs:\n%s", prompt)
	}
}

func TestGenerateRequirementsRetriesOnMissingStories(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"epics": [{"epic_name": "Checkout", "user_stories": []}]}`,
		validRequirementsReply,
	}}
	s := New(client, pace.New(time.Microsecond), 2)

	set, err := s.GenerateRequirements(context.Background(), "Notes.", "Extract requirements.")
	if err != nil {
		t.Fatalf("GenerateRequirements: %v", err)
	}
	if set.Degraded || len(set.Epics) != 1 {
		t.Errorf("set = %+v", set)
	}
	if len(client.prompts) != 2 {
		t.Fatalf("calls = %d, want 2", len(client.prompts))
	}
	if !strings.Contains(client.prompts[1], "epic 0") {
		t.Errorf("correction prompt missing validation feedback:\n%s", client.prompts[1])
	}
}

func TestGenerateRequirementsDegradesOnTransportFailure(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("gateway timeout")}}
	s := New(client, pace.New(time.Microsecond), 2)

	set, err := s.GenerateRequirements(context.Background(), "Notes.", "Extract requirements.")
	if err != nil {
		t.Fatalf("GenerateRequirements: %v", err)
	}
	if !set.Degraded || len(set.Epics) != 0 {
		t.Errorf("set = %+v, want degraded empty set", set)
	}
	if len(client.prompts) != 1 {
		t.Errorf("calls = %d, want 1", len(client.prompts))
	}
}

func TestGenerateRequirementsRejectsEmptyInput(t *testing.T) {
	s := New(&scriptedClient{}, pace.New(time.Microsecond), 0)

	if _, err := s.GenerateRequirements(context.Background(), "   ", "query"); err == nil {
		t.Error("expected error for empty context")
	}
}

func TestSummarizeDiscussion(t *testing.T) {
	client := &scriptedClient{replies: []string{`{
		"summary": "The team agreed on a V1 checkout scope.",
		"key_decisions": ["For V1, a simple link is agreed."],
		"open_questions": ["Guest checkout vs. hard login"],
		"action_items": [{"task": "Draft the payment API contract.", "assignee": "Sarah"}]
	}`}}
	s := New(client, pace.New(time.Microsecond), 0)

	sum, err := s.SummarizeDiscussion(context.Background(), "Long meeting notes here.")
	if err != nil {
		t.Fatalf("SummarizeDiscussion: %v", err)
	}

	if sum.Degraded {
		t.Fatal("unexpected degraded summary")
	}
	if sum.Summary == "" || len(sum.KeyDecisions) != 1 || len(sum.ActionItems) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ActionItems[0].Assignee != "Sarah" {
		t.Errorf("action item = %+v", sum.ActionItems[0])
	}
}

func TestSummarizeDiscussionDegradesWhenExhausted(t *testing.T) {
	client := &scriptedClient{replies: []string{"not json", "{}", `{"summary": ""}`}}
	s := New(client, pace.New(time.Microsecond), 2)

	sum, err := s.SummarizeDiscussion(context.Background(), "Notes.")
	if err != nil {
		t.Fatalf("SummarizeDiscussion: %v", err)
	}
	if !sum.Degraded {
		t.Errorf("summary = %+v, want degraded", sum)
	}
	if len(client.prompts) != 3 {
		t.Errorf("calls = %d, want 3", len(client.prompts))
	}
}
