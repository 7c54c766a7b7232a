// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ambiguity

import (
	"os"
	"strconv"
	"time"
)

// Config holds all tuning for the clarity pipeline.
//
// Description:
//
//	Loaded from environment variables at startup via LoadConfig(). All
//	fields have safe defaults; an empty environment yields a working
//	pipeline.
//
// Thread Safety: Config is a value type. Safe to copy and share after
// loading.
type Config struct {
	// DataDir is the BadgerDB directory for lexicon persistence.
	// Env: CLARITY_DATA_DIR (default: "./clarity-data")
	DataDir string

	// LexiconTTL is how long a merged effective lexicon stays cached.
	// Env: CLARITY_LEXICON_CACHE_TTL (default: "1h")
	LexiconTTL time.Duration

	// MinRequestInterval spaces outgoing model calls across all stages.
	// Env: CLARITY_MIN_REQUEST_INTERVAL (default: "100ms")
	MinRequestInterval time.Duration

	// ClassifyBatchSize is the classification stage's terms-per-call.
	// Env: CLARITY_CLASSIFY_BATCH_SIZE (default: 10)
	ClassifyBatchSize int

	// SuggestBatchSize is the suggestion stage's terms-per-call.
	// Env: CLARITY_SUGGEST_BATCH_SIZE (default: 8)
	SuggestBatchSize int

	// MaxParallel bounds concurrent chunk calls in both stages.
	// Env: CLARITY_MAX_PARALLEL (default: 3)
	MaxParallel int

	// MaxRetries is the correction-retry count per model call.
	// Env: CLARITY_MAX_RETRIES (default: 2)
	MaxRetries int

	// MaxTextLength bounds a single analysis input in bytes.
	// Env: CLARITY_MAX_TEXT_LENGTH (default: 50000)
	MaxTextLength int

	// UseModel disables all model calls when false, forcing lexicon-only
	// analyses. Env: CLARITY_USE_MODEL (default: "true")
	UseModel bool
}

// LoadConfig reads pipeline configuration from environment variables.
//
// Outputs:
//   - Config: Fully populated configuration with defaults applied.
func LoadConfig() Config {
	return Config{
		DataDir:            envString("CLARITY_DATA_DIR", "./clarity-data"),
		LexiconTTL:         envDuration("CLARITY_LEXICON_CACHE_TTL", time.Hour),
		MinRequestInterval: envDuration("CLARITY_MIN_REQUEST_INTERVAL", 100*time.Millisecond),
		ClassifyBatchSize:  envInt("CLARITY_CLASSIFY_BATCH_SIZE", 10),
		SuggestBatchSize:   envInt("CLARITY_SUGGEST_BATCH_SIZE", 8),
		MaxParallel:        envInt("CLARITY_MAX_PARALLEL", 3),
		MaxRetries:         envInt("CLARITY_MAX_RETRIES", 2),
		MaxTextLength:      envInt("CLARITY_MAX_TEXT_LENGTH", 50000),
		UseModel:           envBool("CLARITY_USE_MODEL", true),
	}
}

// envString reads a string environment variable with a default value.
func envString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envBool reads a boolean environment variable with a default value.
func envBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// envInt reads an integer environment variable with a default value.
func envInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// envDuration reads a duration environment variable with a default value.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
