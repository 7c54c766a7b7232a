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
	"sync"
	"time"
)

// =============================================================================
// Effective-Lexicon TTL Cache
// =============================================================================
//
// The effective lexicon for an owner is recomputed from three store reads
// (global, include, exclude). The cache keeps the merged result per owner
// key for a TTL so the scanner hot path stays off the store.
//
// Repopulation races invalidation: a goroutine can read the store, then a
// term is added (invalidating the key), then the stale read is committed.
// Each key carries a generation counter to close that window — Begin
// snapshots the generation, Invalidate bumps it, and Commit refuses the
// fill if the snapshot is out of date.

// cacheEntry is one cached effective lexicon.
type cacheEntry struct {
	terms   []string
	expires time.Time
}

// ttlCache is a generation-checked TTL cache keyed by owner ID ("" for
// the global-only lexicon).
//
// Thread Safety: Safe for concurrent use.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	gens    map[string]uint64
	now     func() time.Time // injectable for tests
}

// newTTLCache creates a cache with the given TTL.
func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
}

// Get returns the cached terms for key, or ok=false on a miss or an
// expired entry.
func (c *ttlCache) Get(key string) (terms []string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, present := c.entries[key]
	if !present || c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.terms, true
}

// Begin snapshots the key's generation ahead of a store read. Pass the
// returned value to Commit.
func (c *ttlCache) Begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// Commit stores a freshly computed lexicon unless the key was invalidated
// after Begin. Returns whether the fill was accepted. A discarded fill is
// harmless — the caller already has the terms it computed; only the cache
// stays cold until the next read.
func (c *ttlCache) Commit(key string, gen uint64, terms []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return false
	}
	c.entries[key] = cacheEntry{terms: terms, expires: c.now().Add(c.ttl)}
	return true
}

// Invalidate drops the keys' entries and bumps their generations so
// in-flight repopulations are discarded.
func (c *ttlCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
		c.gens[key]++
	}
}

// InvalidateAll drops every entry and bumps every known generation.
func (c *ttlCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.gens[key]++
		delete(c.entries, key)
	}
	for key := range c.gens {
		c.gens[key]++
	}
}
