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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/clarity/services/ambiguity"
	"github.com/AleutianAI/clarity/services/ambiguity/lexicon"
	"github.com/AleutianAI/clarity/services/llm"
)

// Flag values shared across commands.
var (
	ownerID    string
	jsonOutput bool
	noModel    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clarity",
		Short: "Detect and resolve ambiguity in software requirements text",
		Long: `clarity scans requirements text for vague terms ("fast", "user-friendly"),
asks a language model whether each occurrence is genuinely ambiguous in
context, and proposes quantifiable replacements plus clarification
questions for the ones that are.

Without a reachable model (or with --no-model) it still flags lexicon
matches, just without contextual filtering.`,
	}
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "Owner id selecting custom lexicon scopes")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of human-readable output")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze requirements text for ambiguous terms",
		Long: `Analyze reads requirements text from the given file, or from stdin when
the argument is omitted or "-", and prints every term confirmed
ambiguous with its confidence, suggested replacements, and a
clarification question.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runAnalyzeCommand,
	}
	analyzeCmd.Flags().BoolVar(&noModel, "no-model", false, "Skip model calls and report raw lexicon matches")
	rootCmd.AddCommand(analyzeCmd)

	rootCmd.AddCommand(newLexiconCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openLexiconManager opens the Badger-backed lexicon at the configured
// data directory. The returned close function must run before exit.
func openLexiconManager(cfg ambiguity.Config) (*lexicon.Manager, func()) {
	opts := dgbadger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open lexicon database at %s: %v", cfg.DataDir, err)
	}
	return lexicon.NewManager(lexicon.NewBadgerTermStore(db), cfg.LexiconTTL), func() { _ = db.Close() }
}

// readInputText reads the analysis input from the file argument or stdin.
func readInputText(args []string) string {
	if len(args) == 1 && args[0] != "-" {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read %s: %v", args[0], err)
		}
		return string(raw)
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("Failed to read stdin: %v", err)
	}
	return string(raw)
}

func runAnalyzeCommand(_ *cobra.Command, args []string) {
	cfg := ambiguity.LoadConfig()
	mgr, closeDB := openLexiconManager(cfg)
	defer closeDB()

	var client llm.CompletionClient
	if !noModel && cfg.UseModel {
		c, err := llm.NewClientFromEnv()
		if err != nil {
			log.Fatalf("Failed to configure model client: %v", err)
		}
		client = c
	}

	ctx, stop := signalContext()
	defer stop()

	service := ambiguity.NewService(mgr, client, cfg)
	analysis, err := service.AnalyzeText(ctx, readInputText(args), ownerID)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	if jsonOutput {
		printJSON(analysis)
		return
	}
	printAnalysis(analysis)
}

// printAnalysis renders one analysis for a terminal reader.
func printAnalysis(analysis ambiguity.Analysis) {
	if analysis.TotalFlagged == 0 {
		fmt.Println("No ambiguous terms found.")
		return
	}

	mode := "model-reviewed"
	if !analysis.ModelUsed {
		mode = "lexicon-only"
	}
	fmt.Printf("Found %d ambiguous term(s) (%s):\n\n", analysis.TotalFlagged, mode)

	for i, term := range analysis.Terms {
		fmt.Printf("%d. %q at %d-%d (confidence %.2f)\n", i+1, term.Term, term.Start, term.End, term.Confidence)
		fmt.Printf("   In: %s\n", term.Sentence)
		if term.Reasoning != "" {
			fmt.Printf("   Why: %s\n", term.Reasoning)
		}
		for _, s := range term.Suggestions {
			fmt.Printf("   - %s\n", s)
		}
		if term.ClarificationPrompt != "" {
			fmt.Printf("   Ask: %s\n", term.ClarificationPrompt)
		}
		fmt.Println()
	}
	fmt.Printf("Analysis %s, status: %s\n", analysis.AnalysisID, analysis.Status)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

// joinArgs rebuilds a multi-word term from positional arguments.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
