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

func TestOllamaCompleteSuccess(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    "llama3.1",
			Response: "the answer",
			Done:     true,
		})
	}))
	defer server.Close()

	client := NewOllamaClientWithConfig("llama3.1", server.URL)
	temp := float32(0.3)
	maxTokens := 256

	got, err := client.Complete(context.Background(), "suggest replacements",
		GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "the answer" {
		t.Errorf("response = %q, want %q", got, "the answer")
	}

	if captured.Model != "llama3.1" || captured.Prompt != "suggest replacements" {
		t.Errorf("request = %+v", captured)
	}
	if captured.Stream {
		t.Error("stream = true, want non-streaming request")
	}
	if captured.Options == nil || *captured.Options.Temperature != 0.3 || *captured.Options.NumPredict != 256 {
		t.Errorf("options = %+v", captured.Options)
	}
}

func TestOllamaCompleteOmitsOptionsWhenUnset(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "ok", Done: true})
	}))
	defer server.Close()

	client := NewOllamaClientWithConfig("llama3.1", server.URL)
	if _, err := client.Complete(context.Background(), "p", GenerationParams{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if captured.Options != nil {
		t.Errorf("options = %+v, want omitted", captured.Options)
	}
}

func TestOllamaCompleteNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model runner crashed"))
	}))
	defer server.Close()

	client := NewOllamaClientWithConfig("llama3.1", server.URL)
	_, err := client.Complete(context.Background(), "p", GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("err = %v, want status error", err)
	}
}

func TestOllamaCompleteEmbeddedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Error: "model 'missing' not found"})
	}))
	defer server.Close()

	client := NewOllamaClientWithConfig("llama3.1", server.URL)
	_, err := client.Complete(context.Background(), "p", GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want embedded API error", err)
	}
}

func TestOllamaCompleteContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewOllamaClientWithConfig("llama3.1", server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Complete(ctx, "p", GenerationParams{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
