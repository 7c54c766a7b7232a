// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lexicon manages the set of terms the scanner flags as potentially
// ambiguous: a global default lexicon plus per-owner include/exclude
// overrides, merged on demand and cached with a TTL.
package lexicon

// =============================================================================
// TermStore — Lexicon Persistence
// =============================================================================
//
// Lexicon terms are service infrastructure, not user documents: a few
// hundred small records read on every analysis and written rarely. BadgerDB
// is embedded — no network call, no availability dependency — which keeps
// the effective-lexicon read path entirely local.
//
// Storage layout:
//
//	lexicon/v1/{scope}/{owner}/{text}  →  JSON-encoded Term
//
// The owner segment is "-" for global terms so key prefixes stay
// unambiguous (owner IDs are UUIDs and never collide with "-").

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Scope identifies which lexicon layer a term belongs to.
type Scope string

// Lexicon scopes. Global terms apply to everyone; include/exclude terms
// are per-owner overrides layered on top of the global set.
const (
	ScopeGlobal  Scope = "global"
	ScopeInclude Scope = "custom_include"
	ScopeExclude Scope = "custom_exclude"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeInclude, ScopeExclude:
		return true
	}
	return false
}

// Term is one persisted lexicon entry.
//
// Description:
//
//	Text is stored in canonical form (trimmed, lowercased — see
//	sanitize.Term). Within a scope, Text is unique per owner. OwnerID is
//	empty for global terms.
type Term struct {
	Text     string    `json:"text"`
	Scope    Scope     `json:"scope"`
	OwnerID  string    `json:"owner_id,omitempty"`
	Category string    `json:"category,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// TermStore persists lexicon terms.
//
// Description:
//
//	The store is a dumb record holder: normalization, uniqueness
//	semantics beyond the (text, scope, owner) key, and cache coherence
//	all live in the Manager.
//
// Thread Safety: Implementations must be safe for concurrent use.
type TermStore interface {
	// Put persists a term. Returns false with a nil error when an entry
	// with the same (text, scope, owner) already exists — the existing
	// entry is left untouched.
	Put(ctx context.Context, term Term) (bool, error)

	// Delete removes a term. Returns false with a nil error when no
	// matching entry exists.
	Delete(ctx context.Context, text string, scope Scope, ownerID string) (bool, error)

	// List returns all terms in a scope for an owner (empty ownerID for
	// global), in unspecified order.
	List(ctx context.Context, scope Scope, ownerID string) ([]Term, error)
}

// =============================================================================
// BadgerTermStore
// =============================================================================

// termKeyPrefix is the versioned key namespace for lexicon entries.
const termKeyPrefix = "lexicon/v1/"

// BadgerTermStore implements TermStore backed by a BadgerDB instance.
//
// Description:
//
//	The DB is expected to be opened at startup by the caller (typically
//	main) with its own path. The store does not own the DB lifecycle.
//
// Thread Safety: Safe for concurrent use. BadgerDB transactions are
// per-goroutine.
type BadgerTermStore struct {
	db *dgbadger.DB
}

// NewBadgerTermStore creates a BadgerTermStore backed by the given DB.
//
// Inputs:
//   - db: Opened BadgerDB handle. Must not be nil.
//
// Outputs:
//   - *BadgerTermStore: Ready-to-use store. Never nil.
func NewBadgerTermStore(db *dgbadger.DB) *BadgerTermStore {
	if db == nil {
		panic("NewBadgerTermStore: db must not be nil")
	}
	return &BadgerTermStore{db: db}
}

// Put persists a term unless an identical (text, scope, owner) entry exists.
func (s *BadgerTermStore) Put(ctx context.Context, term Term) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !term.Scope.Valid() {
		return false, fmt.Errorf("lexicon: invalid scope %q", term.Scope)
	}

	key := termKey(term.Text, term.Scope, term.OwnerID)
	raw, err := json.Marshal(term)
	if err != nil {
		return false, fmt.Errorf("lexicon: encoding term: %w", err)
	}

	added := false
	err = s.db.Update(func(txn *dgbadger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil // already present, leave untouched
		}
		if !errors.Is(err, dgbadger.ErrKeyNotFound) {
			return fmt.Errorf("get existing term: %w", err)
		}
		added = true
		return txn.Set(key, raw)
	})
	if err != nil {
		return false, fmt.Errorf("lexicon: putting term %q: %w", term.Text, err)
	}
	return added, nil
}

// Delete removes a term if present.
func (s *BadgerTermStore) Delete(ctx context.Context, text string, scope Scope, ownerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := termKey(text, scope, ownerID)
	removed := false
	err := s.db.Update(func(txn *dgbadger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get existing term: %w", err)
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("lexicon: deleting term %q: %w", text, err)
	}
	return removed, nil
}

// List returns all terms under a (scope, owner) prefix.
func (s *BadgerTermStore) List(ctx context.Context, scope Scope, ownerID string) ([]Term, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := scopePrefix(scope, ownerID)
	var terms []Term
	err := s.db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var term Term
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &term)
			})
			if err != nil {
				return fmt.Errorf("decoding term at %s: %w", it.Item().Key(), err)
			}
			terms = append(terms, term)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lexicon: listing %s terms: %w", scope, err)
	}
	return terms, nil
}

// termKey builds the BadgerDB key for one term.
func termKey(text string, scope Scope, ownerID string) []byte {
	return append(scopePrefix(scope, ownerID), []byte(text)...)
}

// scopePrefix builds the key prefix shared by all terms in a (scope, owner).
func scopePrefix(scope Scope, ownerID string) []byte {
	owner := ownerID
	if owner == "" {
		owner = "-"
	}
	var b strings.Builder
	b.WriteString(termKeyPrefix)
	b.WriteString(string(scope))
	b.WriteByte('/')
	b.WriteString(owner)
	b.WriteByte('/')
	return []byte(b.String())
}
