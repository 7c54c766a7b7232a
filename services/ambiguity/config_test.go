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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "./clarity-data", cfg.DataDir)
	assert.Equal(t, time.Hour, cfg.LexiconTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.MinRequestInterval)
	assert.Equal(t, 10, cfg.ClassifyBatchSize)
	assert.Equal(t, 8, cfg.SuggestBatchSize)
	assert.Equal(t, 3, cfg.MaxParallel)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 50000, cfg.MaxTextLength)
	assert.True(t, cfg.UseModel)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CLARITY_DATA_DIR", "/var/lib/clarity")
	t.Setenv("CLARITY_LEXICON_CACHE_TTL", "30m")
	t.Setenv("CLARITY_MIN_REQUEST_INTERVAL", "250ms")
	t.Setenv("CLARITY_CLASSIFY_BATCH_SIZE", "5")
	t.Setenv("CLARITY_MAX_RETRIES", "4")
	t.Setenv("CLARITY_USE_MODEL", "false")

	cfg := LoadConfig()

	require.Equal(t, "/var/lib/clarity", cfg.DataDir)
	assert.Equal(t, 30*time.Minute, cfg.LexiconTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.MinRequestInterval)
	assert.Equal(t, 5, cfg.ClassifyBatchSize)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.False(t, cfg.UseModel)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CLARITY_LEXICON_CACHE_TTL", "not-a-duration")
	t.Setenv("CLARITY_CLASSIFY_BATCH_SIZE", "lots")
	t.Setenv("CLARITY_USE_MODEL", "maybe")

	cfg := LoadConfig()

	assert.Equal(t, time.Hour, cfg.LexiconTTL)
	assert.Equal(t, 10, cfg.ClassifyBatchSize)
	assert.True(t, cfg.UseModel)
}

func TestLoadConfigRejectsNonPositiveDuration(t *testing.T) {
	t.Setenv("CLARITY_MIN_REQUEST_INTERVAL", "-5ms")

	cfg := LoadConfig()
	assert.Equal(t, 100*time.Millisecond, cfg.MinRequestInterval)
}
