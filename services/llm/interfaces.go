// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides provider clients for large-language-model backends
// used by the clarity engine. Clients speak the provider REST APIs directly
// via net/http — no third-party SDKs — and expose a single minimal
// completion interface that the analysis stages depend on.
//
// Thread Safety:
//
//	All interfaces in this package must be implemented as safe for
//	concurrent use. The analysis stages fan batches out to parallel
//	workers sharing one client instance.
package llm

import "context"

// CompletionClient is the single outbound contract of the clarity core.
//
// Description:
//
//	Every LLM-backed stage (classification, suggestion, contradiction,
//	extraction) sends a fully rendered prompt and receives the raw
//	response text. Parsing, schema validation, and fallback handling are
//	the caller's responsibility — a client only reports transport-level
//	failures through its error return.
//
// Thread Safety: Implementations must be safe for concurrent use.
type CompletionClient interface {
	// Complete sends a prompt and returns the model's response text.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout.
	//   - prompt: The fully rendered prompt text.
	//   - params: Generation parameters.
	//
	// Outputs:
	//   - string: The raw response text.
	//   - error: Non-nil on transport or provider failure.
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GenerationParams holds provider-agnostic generation parameters.
//
// Description:
//
//	Pointer fields are omitted from the outgoing request when nil so the
//	provider's own defaults apply. ModelOverride selects a model for a
//	single request without reconfiguring the client.
type GenerationParams struct {
	Temperature   *float32
	MaxTokens     *int
	TopP          *float32
	Stop          []string
	ModelOverride string
}

// Provider names accepted by the factory and reported in metrics.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)
