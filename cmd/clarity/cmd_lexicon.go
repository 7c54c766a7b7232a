// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/clarity/services/ambiguity"
	"github.com/AleutianAI/clarity/services/ambiguity/lexicon"
)

// Flag values for the lexicon subcommands.
var (
	lexiconScope    string
	lexiconCategory string
	seedFile        string
)

func newLexiconCommand() *cobra.Command {
	lexiconCmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Manage the ambiguous-term lexicon",
		Long: `The lexicon holds the terms the scanner flags. Global terms apply to
everyone; custom_include and custom_exclude terms extend or suppress the
global set for a single owner (use --owner).`,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in default terms, or terms from a YAML file",
		Args:  cobra.NoArgs,
		Run:   runLexiconSeedCommand,
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file of terms to seed instead of the built-in defaults")
	lexiconCmd.AddCommand(seedCmd)

	addCmd := &cobra.Command{
		Use:   "add <term>",
		Short: "Add a term to the lexicon",
		Args:  cobra.MinimumNArgs(1),
		Run:   runLexiconAddCommand,
	}
	addCmd.Flags().StringVar(&lexiconScope, "scope", string(lexicon.ScopeGlobal),
		"Scope: global, custom_include, or custom_exclude")
	addCmd.Flags().StringVar(&lexiconCategory, "category", "", "Optional category label")
	lexiconCmd.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove <term>",
		Short: "Remove a term from the lexicon",
		Args:  cobra.MinimumNArgs(1),
		Run:   runLexiconRemoveCommand,
	}
	removeCmd.Flags().StringVar(&lexiconScope, "scope", string(lexicon.ScopeGlobal),
		"Scope: global, custom_include, or custom_exclude")
	lexiconCmd.AddCommand(removeCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the effective lexicon for an owner",
		Args:  cobra.NoArgs,
		Run:   runLexiconListCommand,
	}
	lexiconCmd.AddCommand(listCmd)

	return lexiconCmd
}

func runLexiconSeedCommand(_ *cobra.Command, _ []string) {
	cfg := ambiguity.LoadConfig()
	mgr, closeDB := openLexiconManager(cfg)
	defer closeDB()

	ctx, stop := signalContext()
	defer stop()

	var (
		added int
		err   error
	)
	if seedFile != "" {
		added, err = mgr.SeedFromYAML(ctx, seedFile)
	} else {
		added, err = mgr.SeedDefaults(ctx)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	fmt.Printf("Added %d new term(s).\n", added)
}

func runLexiconAddCommand(_ *cobra.Command, args []string) {
	cfg := ambiguity.LoadConfig()
	mgr, closeDB := openLexiconManager(cfg)
	defer closeDB()

	ctx, stop := signalContext()
	defer stop()

	term := joinArgs(args)
	added, err := mgr.AddTerm(ctx, term, lexicon.Scope(lexiconScope), ownerID, lexiconCategory)
	if err != nil {
		log.Fatalf("Failed to add term: %v", err)
	}
	if !added {
		fmt.Printf("Term %q already present in scope %s.\n", term, lexiconScope)
		return
	}
	fmt.Printf("Added %q to scope %s.\n", term, lexiconScope)
}

func runLexiconRemoveCommand(_ *cobra.Command, args []string) {
	cfg := ambiguity.LoadConfig()
	mgr, closeDB := openLexiconManager(cfg)
	defer closeDB()

	ctx, stop := signalContext()
	defer stop()

	term := joinArgs(args)
	removed, err := mgr.RemoveTerm(ctx, term, lexicon.Scope(lexiconScope), ownerID)
	if err != nil {
		log.Fatalf("Failed to remove term: %v", err)
	}
	if !removed {
		fmt.Printf("Term %q not found in scope %s.\n", term, lexiconScope)
		return
	}
	fmt.Printf("Removed %q from scope %s.\n", term, lexiconScope)
}

func runLexiconListCommand(_ *cobra.Command, _ []string) {
	cfg := ambiguity.LoadConfig()
	mgr, closeDB := openLexiconManager(cfg)
	defer closeDB()

	ctx, stop := signalContext()
	defer stop()

	terms, err := mgr.EffectiveLexicon(ctx, ownerID)
	if err != nil {
		log.Fatalf("Failed to resolve lexicon: %v", err)
	}

	if jsonOutput {
		printJSON(terms)
		return
	}
	if len(terms) == 0 {
		fmt.Println("Lexicon is empty. Run 'clarity lexicon seed' to load the defaults.")
		return
	}
	for _, term := range terms {
		fmt.Println(term)
	}
}
