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
	"fmt"
	"log/slog"
	"os"
)

// NewClientFromEnv creates the CompletionClient selected by the environment.
//
// Description:
//
//	Reads CLARITY_LLM_PROVIDER ("openai" or "ollama"). When unset, picks
//	OpenAI if OPENAI_API_KEY is present and falls back to Ollama
//	otherwise, so a fresh checkout works against a local model with zero
//	configuration.
//
// Outputs:
//   - CompletionClient: The configured client. Never nil on success.
//   - error: Non-nil for an unknown provider name or a misconfigured
//     cloud client.
func NewClientFromEnv() (CompletionClient, error) {
	provider := os.Getenv("CLARITY_LLM_PROVIDER")
	if provider == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			provider = ProviderOpenAI
		} else {
			provider = ProviderOllama
		}
		slog.Debug("CLARITY_LLM_PROVIDER not set, auto-selected provider", "provider", provider)
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient()
	case ProviderOllama:
		return NewOllamaClient(), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q (expected %q or %q)",
			provider, ProviderOpenAI, ProviderOllama)
	}
}
