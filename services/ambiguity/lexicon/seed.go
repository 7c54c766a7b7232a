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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedTerm is one default lexicon entry with its category.
type seedTerm struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

// defaultTerms is the built-in global lexicon: vague qualifiers that show
// up in requirements text without a measurable definition.
var defaultTerms = []seedTerm{
	// Performance
	{"fast", "performance"},
	{"slow", "performance"},
	{"quick", "performance"},
	{"efficient", "performance"},
	{"responsive", "performance"},
	{"performant", "performance"},
	{"optimized", "performance"},

	// Security
	{"secure", "security"},
	{"safe", "security"},
	{"protected", "security"},

	// Usability
	{"user-friendly", "usability"},
	{"easy", "usability"},
	{"simple", "usability"},
	{"intuitive", "usability"},
	{"convenient", "usability"},
	{"straightforward", "usability"},

	// Quality
	{"robust", "quality"},
	{"reliable", "quality"},
	{"stable", "quality"},
	{"scalable", "quality"},
	{"maintainable", "quality"},
	{"flexible", "quality"},
	{"modular", "quality"},

	// Appearance
	{"modern", "appearance"},
	{"clean", "appearance"},
	{"professional", "appearance"},
	{"attractive", "appearance"},

	// General vagueness
	{"good", "general"},
	{"better", "general"},
	{"best", "general"},
	{"appropriate", "general"},
	{"adequate", "general"},
	{"reasonable", "general"},
	{"sufficient", "general"},
	{"acceptable", "general"},
	{"normal", "general"},
	{"typical", "general"},
	{"standard", "general"},
	{"regular", "general"},
	{"common", "general"},
	{"usual", "general"},
}

// seedFile is the YAML shape accepted by SeedFromYAML.
type seedFile struct {
	Terms []seedTerm `yaml:"terms"`
}

// loadSeedFile parses a YAML seed file into seed terms.
//
// The expected shape:
//
//	terms:
//	  - text: fast
//	    category: performance
//	  - text: lightweight
func loadSeedFile(path string) ([]seedTerm, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: reading seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("lexicon: parsing seed file %s: %w", path, err)
	}
	if len(f.Terms) == 0 {
		return nil, fmt.Errorf("lexicon: seed file %s contains no terms", path)
	}
	return f.Terms, nil
}
