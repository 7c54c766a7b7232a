// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/clarity/services/ambiguity/metrics"
	"github.com/AleutianAI/clarity/services/ambiguity/sanitize"
)

// DefaultCacheTTL is how long a merged effective lexicon stays cached.
const DefaultCacheTTL = time.Hour

// Manager merges global and per-owner terms into the effective lexicon
// consumed by the scanner, with a TTL cache in front of the store.
//
// Description:
//
//	The effective lexicon for an owner is:
//
//	    global ∪ include(owner) − exclude(owner)
//
//	sorted lexicographically. Any mutation through the Manager invalidates
//	the affected cache keys; mutations performed behind its back (directly
//	against the store) become visible when the TTL lapses.
//
// Thread Safety: Safe for concurrent use.
type Manager struct {
	store TermStore
	cache *ttlCache
	log   *slog.Logger
}

// NewManager creates a Manager over the given store.
//
// Inputs:
//   - store: Term persistence. Must not be nil.
//   - ttl: Cache TTL. Pass 0 for DefaultCacheTTL.
//
// Outputs:
//   - *Manager: Ready-to-use manager. Never nil.
func NewManager(store TermStore, ttl time.Duration) *Manager {
	if store == nil {
		panic("NewManager: store must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Manager{
		store: store,
		cache: newTTLCache(ttl),
		log:   slog.Default().With("component", "lexicon"),
	}
}

// cacheKey maps an owner ID to its cache key. The global lexicon lives
// under the empty key.
func cacheKey(ownerID string) string {
	return ownerID
}

// EffectiveLexicon returns the merged, sorted lexicon for an owner.
//
// Inputs:
//   - ctx: Cancellation context for the store reads.
//   - ownerID: Owner whose overrides apply. Empty returns the global
//     lexicon alone.
//
// Outputs:
//   - []string: Sorted canonical terms. Never nil; may be empty when the
//     store has not been seeded.
//   - error: Non-nil only on a store failure. The cache is never the
//     source of an error.
func (m *Manager) EffectiveLexicon(ctx context.Context, ownerID string) ([]string, error) {
	key := cacheKey(ownerID)
	if terms, ok := m.cache.Get(key); ok {
		metrics.RecordLexiconCacheHit()
		return terms, nil
	}
	metrics.RecordLexiconCacheMiss()

	gen := m.cache.Begin(key)

	merged := make(map[string]struct{})

	global, err := m.store.List(ctx, ScopeGlobal, "")
	if err != nil {
		return nil, fmt.Errorf("lexicon: loading global terms: %w", err)
	}
	for _, t := range global {
		merged[t.Text] = struct{}{}
	}

	if ownerID != "" {
		include, err := m.store.List(ctx, ScopeInclude, ownerID)
		if err != nil {
			return nil, fmt.Errorf("lexicon: loading include terms: %w", err)
		}
		for _, t := range include {
			merged[t.Text] = struct{}{}
		}

		exclude, err := m.store.List(ctx, ScopeExclude, ownerID)
		if err != nil {
			return nil, fmt.Errorf("lexicon: loading exclude terms: %w", err)
		}
		for _, t := range exclude {
			delete(merged, t.Text)
		}
	}

	terms := make([]string, 0, len(merged))
	for t := range merged {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	if !m.cache.Commit(key, gen, terms) {
		m.log.Debug("discarded stale lexicon cache fill", "owner_id", ownerID)
	}
	return terms, nil
}

// AddTerm normalizes and persists a term, invalidating affected caches.
//
// Inputs:
//   - ctx: Cancellation context.
//   - text: Raw term text. Normalized via sanitize.Term before storage.
//   - scope: Which lexicon layer receives the term.
//   - ownerID: Required for include/exclude scopes, must be empty for
//     global.
//   - category: Optional grouping label ("performance", "security", ...).
//
// Outputs:
//   - bool: True if the term was added, false if it already existed.
//   - error: Non-nil on invalid input or store failure.
func (m *Manager) AddTerm(ctx context.Context, text string, scope Scope, ownerID, category string) (bool, error) {
	if err := validateScopeOwner(scope, ownerID); err != nil {
		return false, err
	}

	normalized, err := sanitize.Term(text)
	if err != nil {
		return false, err
	}

	added, err := m.store.Put(ctx, Term{
		Text:     normalized,
		Scope:    scope,
		OwnerID:  ownerID,
		Category: category,
		AddedAt:  time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if added {
		m.invalidateFor(ownerID)
		m.log.Info("lexicon term added",
			"term", normalized, "scope", scope, "owner_id", ownerID)
	}
	return added, nil
}

// RemoveTerm deletes a term, invalidating affected caches.
//
// Outputs:
//   - bool: True if a term was removed, false if none matched.
//   - error: Non-nil on invalid input or store failure.
func (m *Manager) RemoveTerm(ctx context.Context, text string, scope Scope, ownerID string) (bool, error) {
	if err := validateScopeOwner(scope, ownerID); err != nil {
		return false, err
	}

	normalized, err := sanitize.Term(text)
	if err != nil {
		return false, err
	}

	removed, err := m.store.Delete(ctx, normalized, scope, ownerID)
	if err != nil {
		return false, err
	}
	if removed {
		m.invalidateFor(ownerID)
		m.log.Info("lexicon term removed",
			"term", normalized, "scope", scope, "owner_id", ownerID)
	}
	return removed, nil
}

// CustomTerms lists an owner's include and exclude overrides.
//
// Outputs:
//   - include: The owner's custom_include terms, sorted.
//   - exclude: The owner's custom_exclude terms, sorted.
//   - error: Non-nil on a store failure.
func (m *Manager) CustomTerms(ctx context.Context, ownerID string) (include, exclude []string, err error) {
	if ownerID == "" {
		return nil, nil, fmt.Errorf("lexicon: owner id required for custom term listing")
	}

	inc, err := m.store.List(ctx, ScopeInclude, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("lexicon: listing include terms: %w", err)
	}
	exc, err := m.store.List(ctx, ScopeExclude, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("lexicon: listing exclude terms: %w", err)
	}

	include = termTexts(inc)
	exclude = termTexts(exc)
	return include, exclude, nil
}

// SeedDefaults loads the built-in global lexicon into the store.
//
// Description:
//
//	Idempotent: terms already present are skipped. Intended for first
//	boot and for the CLI seed command.
//
// Outputs:
//   - int: Number of terms actually added.
//   - error: Non-nil on a store failure; seeding stops at the first one.
func (m *Manager) SeedDefaults(ctx context.Context) (int, error) {
	return m.seed(ctx, defaultTerms)
}

// SeedFromYAML loads global terms from a YAML seed file (see loadSeedFile
// for the shape).
//
// Outputs:
//   - int: Number of terms actually added.
//   - error: Non-nil on a parse or store failure.
func (m *Manager) SeedFromYAML(ctx context.Context, path string) (int, error) {
	terms, err := loadSeedFile(path)
	if err != nil {
		return 0, err
	}
	return m.seed(ctx, terms)
}

func (m *Manager) seed(ctx context.Context, terms []seedTerm) (int, error) {
	added := 0
	for _, t := range terms {
		ok, err := m.AddTerm(ctx, t.Text, ScopeGlobal, "", t.Category)
		if err != nil {
			return added, fmt.Errorf("lexicon: seeding term %q: %w", t.Text, err)
		}
		if ok {
			added++
		}
	}
	m.log.Info("lexicon seeded", "added", added, "total", len(terms))
	return added, nil
}

// InvalidateCache drops every cached effective lexicon.
func (m *Manager) InvalidateCache() {
	m.cache.InvalidateAll()
}

// invalidateFor drops the cache keys a mutation can affect. A global
// mutation changes every owner's effective lexicon, so the whole cache
// goes; an owner mutation drops that owner plus the global key.
func (m *Manager) invalidateFor(ownerID string) {
	if ownerID == "" {
		m.cache.InvalidateAll()
		return
	}
	m.cache.Invalidate(cacheKey(ownerID), cacheKey(""))
}

// validateScopeOwner enforces the scope/owner pairing rules.
func validateScopeOwner(scope Scope, ownerID string) error {
	if !scope.Valid() {
		return fmt.Errorf("lexicon: invalid scope %q", scope)
	}
	if scope == ScopeGlobal && ownerID != "" {
		return fmt.Errorf("lexicon: global terms cannot have an owner")
	}
	if scope != ScopeGlobal && ownerID == "" {
		return fmt.Errorf("lexicon: %s terms require an owner id", scope)
	}
	return nil
}

func termTexts(terms []Term) []string {
	texts := make([]string, 0, len(terms))
	for _, t := range terms {
		texts = append(texts, t.Text)
	}
	sort.Strings(texts)
	return texts
}
