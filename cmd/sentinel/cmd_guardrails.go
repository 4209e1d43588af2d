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
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/patterns"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/redaction"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/rules"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/screening"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	screenJSON bool
	redactJSON bool

	routeAmount     float64
	routeConfidence float64
	routeStatus     string
	routeDocuments  bool
	routeJSON       bool
)

// =============================================================================
// SCREEN COMMAND
// =============================================================================

var screenCmd = &cobra.Command{
	Use:   "screen [narrative]",
	Short: "Screens a claim narrative for adversarial input",
	Long:  `Runs the input screener against the given narrative and reports any override or role-hijack patterns that would reject the claim.`,
	Args:  cobra.ExactArgs(1),
	Run:   runScreen,
}

// runScreen is the CLI handler for "sentinel screen".
//
// # Exit Codes
//
//   - 0: Narrative passed screening
//   - 1: Adversarial patterns detected
//   - 2: Error
func runScreen(cmd *cobra.Command, args []string) {
	catalog, err := patterns.Load()
	if err != nil {
		OutputError(screenJSON, "Failed to load the guardrail pattern catalog", err)
		os.Exit(CLIExitError)
	}

	result := screening.NewScreener(catalog).Screen(args[0])

	if screenJSON {
		if err := OutputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
	} else if result.Valid {
		fmt.Println("Narrative passed input screening.")
	} else {
		fmt.Println("Adversarial input detected:")
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if !result.Valid {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

// =============================================================================
// REDACT COMMAND
// =============================================================================

var redactCmd = &cobra.Command{
	Use:   "redact [text]",
	Short: "Redacts sensitive identifiers and medical terms from text",
	Args:  cobra.ExactArgs(1),
	Run:   runRedact,
}

// runRedact is the CLI handler for "sentinel redact".
//
// # Exit Codes
//
//   - 0: Nothing to redact
//   - 1: Identifiers were found and redacted
//   - 2: Error
func runRedact(cmd *cobra.Command, args []string) {
	catalog, err := patterns.Load()
	if err != nil {
		OutputError(redactJSON, "Failed to load the guardrail pattern catalog", err)
		os.Exit(CLIExitError)
	}

	redactor := redaction.NewRedactor(catalog)
	counts := redactor.DetectTypes(args[0])
	redacted := redactor.RedactNarrativeTerms(redactor.Redact(args[0]))

	if redactJSON {
		result := struct {
			Redacted string         `json:"redacted"`
			Detected map[string]int `json:"detected"`
		}{Redacted: redacted, Detected: counts}
		if err := OutputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
	} else {
		fmt.Println(redacted)
		for category, n := range counts {
			fmt.Fprintf(os.Stderr, "  redacted %d %s value(s)\n", n, category)
		}
	}

	if len(counts) > 0 {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

// =============================================================================
// ROUTE COMMAND
// =============================================================================

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Evaluates the routing rule table against a hypothetical decision",
	Long: `Applies the business rule engine to a synthetic decision built from
the --amount, --confidence, --status, and --documents flags, and prints where
the claim would route. Useful for checking threshold changes before deploying
them.`,
	Run: runRoute,
}

// runRoute is the CLI handler for "sentinel route".
func runRoute(cmd *cobra.Command, args []string) {
	status := datatypes.DecisionStatus(routeStatus)
	if !status.Valid() {
		OutputError(routeJSON, "Invalid status", fmt.Errorf(
			"%q is not one of Covered, Not Covered, Manual Review", routeStatus))
		os.Exit(CLIExitError)
	}

	request := datatypes.ClaimRequest{
		PolicyID:       "cli",
		PolicyCategory: "cli",
		ClaimAmount:    routeAmount,
		Narrative:      "cli evaluation",
	}
	decision := datatypes.ClaimDecision{
		Status:     status,
		Confidence: routeConfidence,
	}

	routed := rules.NewEngine(rules.DefaultConfig()).Apply(decision, request, nil, routeDocuments)

	if routeJSON {
		if err := OutputJSON(routed); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		os.Exit(CLIExitSuccess)
	}

	fmt.Printf("Routing: %s\n", routed.Status)
	if routed.ConfidenceRationale != "" {
		fmt.Printf("Rationale: %s\n", routed.ConfidenceRationale)
	}
	for _, hint := range routed.MissingEvidence {
		fmt.Printf("Missing evidence: %s\n", hint)
	}
	os.Exit(CLIExitSuccess)
}

// =============================================================================
// PATTERNS COMMANDS
// =============================================================================

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the embedded guardrail pattern catalog",
}

var patternsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Prints the checksum of the embedded pattern catalog",
	Long: `Calculates a SHA256 checksum of the embedded guardrail patterns so
operators can verify the binary carries the expected catalog version.`,
	Run: runPatternsVerify,
}

var patternsDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Prints the embedded pattern catalog",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(string(patterns.GuardrailPatterns))
	},
}

// runPatternsVerify is the CLI handler for "sentinel patterns verify".
func runPatternsVerify(cmd *cobra.Command, args []string) {
	data := patterns.GuardrailPatterns
	hash := sha256.Sum256(data)

	fmt.Println("--- Embedded Pattern Verification ---")
	fmt.Printf("Catalog byte size: %d bytes\n", len(data))
	fmt.Printf("SHA256 Fingerprint: %x\n", hash)
	fmt.Println("-------------------------------------")
}

func init() {
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "Output as JSON")
	redactCmd.Flags().BoolVar(&redactJSON, "json", false, "Output as JSON")

	routeCmd.Flags().Float64Var(&routeAmount, "amount", 0, "Claim amount")
	routeCmd.Flags().Float64Var(&routeConfidence, "confidence", 0, "Decision confidence in [0, 1]")
	routeCmd.Flags().StringVar(&routeStatus, "status", "Covered", "Decision status")
	routeCmd.Flags().BoolVar(&routeDocuments, "documents", false, "Supporting documents present")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Output as JSON")
	_ = routeCmd.MarkFlagRequired("amount")
	_ = routeCmd.MarkFlagRequired("confidence")
}
