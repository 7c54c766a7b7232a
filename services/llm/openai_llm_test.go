// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAICompleteSuccess(t *testing.T) {
	var captured openaiRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(openaiResponse{
			ID: "chatcmpl-1",
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "the answer"}, FinishReason: "stop"},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("sk-test-key", "gpt-4o-mini", server.URL)
	temp := float32(0.1)

	got, err := client.Complete(context.Background(), "classify this", GenerationParams{Temperature: &temp})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "the answer" {
		t.Errorf("response = %q, want %q", got, "the answer")
	}

	if authHeader != "Bearer sk-test-key" {
		t.Errorf("Authorization = %q", authHeader)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "classify this" {
		t.Errorf("messages = %+v", captured.Messages)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", captured.Temperature)
	}
}

func TestOpenAICompleteModelOverride(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("sk-test-key", "gpt-4o-mini", server.URL)
	if _, err := client.Complete(context.Background(), "p", GenerationParams{ModelOverride: "gpt-4o"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if captured.Model != "gpt-4o" {
		t.Errorf("model = %q, want override", captured.Model)
	}
}

func TestOpenAICompleteNon200RedactsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key sk-abcdefghijklmnopqrstuvwxyz123456"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("sk-test-key", "gpt-4o-mini", server.URL)
	_, err := client.Complete(context.Background(), "p", GenerationParams{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("err = %v, want status in message", err)
	}
	if strings.Contains(err.Error(), "sk-abcdefghijklmnopqrstuvwxyz123456") {
		t.Errorf("error leaks the key: %v", err)
	}
	if !strings.Contains(err.Error(), "[REDACTED:openai_key]") {
		t.Errorf("err = %v, want redaction label", err)
	}
}

func TestOpenAICompleteEmbeddedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(openaiResponse{
			Error: &openaiError{Type: "invalid_request_error", Message: "context length exceeded"},
		})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("sk-test-key", "gpt-4o-mini", server.URL)
	_, err := client.Complete(context.Background(), "p", GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "invalid_request_error") {
		t.Errorf("err = %v, want embedded API error", err)
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(openaiResponse{ID: "chatcmpl-2"})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("sk-test-key", "gpt-4o-mini", server.URL)
	_, err := client.Complete(context.Background(), "p", GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("err = %v, want no-choices error", err)
	}
}

func TestNewOpenAIClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewOpenAIClient(); err == nil {
		t.Error("expected error when OPENAI_API_KEY is unset")
	}
}
