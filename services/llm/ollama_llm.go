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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// =============================================================================
// Ollama Wire Types
// =============================================================================

const defaultOllamaBaseURL = "http://localhost:11434/api/generate"

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// OllamaClient implements CompletionClient against a local Ollama instance.
//
// Description:
//
//	Uses the Ollama /api/generate endpoint in non-streaming mode. Ollama
//	is the local-inference fallback: no API key, no egress, and no
//	provider-side rate limit, so it is the default when no cloud key is
//	configured.
//
// Thread Safety: OllamaClient is safe for concurrent use.
type OllamaClient struct {
	httpClient *http.Client
	model      string
	baseURL    string
}

// NewOllamaClientWithConfig creates an OllamaClient with explicit configuration.
//
// Inputs:
//   - model: The model name (e.g., "llama3.1").
//   - baseURL: The /api/generate endpoint URL.
//
// Outputs:
//   - *OllamaClient: The configured client.
func NewOllamaClientWithConfig(model, baseURL string) *OllamaClient {
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		model:      model,
		baseURL:    baseURL,
	}
}

// NewOllamaClient creates a new OllamaClient from environment variables.
//
// Description:
//
//	Reads OLLAMA_BASE_URL and OLLAMA_MODEL from the environment.
//	Defaults to localhost:11434 and "llama3.1" when unset.
//
// Outputs:
//   - *OllamaClient: The configured client.
func NewOllamaClient() *OllamaClient {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.1"
		slog.Warn("OLLAMA_MODEL not set, defaulting to llama3.1")
	}
	slog.Info("Initializing Ollama client", "model", model, "base_url", baseURL)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		model:      model,
		baseURL:    baseURL,
	}
}

// Complete implements the CompletionClient interface.
//
// Thread Safety: This method is safe for concurrent use.
func (o *OllamaClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	model := o.model
	if params.ModelOverride != "" {
		model = params.ModelOverride
	}

	slog.Debug("Completion via Ollama", slog.String("model", model), slog.Int("prompt_len", len(prompt)))

	reqPayload := ollamaRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}
	if params.Temperature != nil || params.MaxTokens != nil || params.TopP != nil || len(params.Stop) > 0 {
		reqPayload.Options = &ollamaOptions{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
			TopP:        params.TopP,
			Stop:        params.Stop,
		}
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("ollama: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("ollama: parsing response JSON: %w", err)
	}

	if apiResp.Error != "" {
		return "", fmt.Errorf("ollama: API error: %s", SafeLogString(apiResp.Error))
	}

	slog.Debug("Received Ollama completion",
		slog.Bool("done", apiResp.Done),
		slog.Int("response_len", len(apiResp.Response)),
	)

	return apiResp.Response, nil
}
