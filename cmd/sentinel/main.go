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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/ClaimSentinel/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "A CLI for the ClaimSentinel guardrail components",
	Long: `Sentinel exercises the claim validation guardrails offline:
input screening, sensitive-data redaction, and routing-rule evaluation,
without a running claims service.`,
}

func init() {
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(routeCmd)

	patternsCmd.AddCommand(patternsVerifyCmd)
	patternsCmd.AddCommand(patternsDumpCmd)
	rootCmd.AddCommand(patternsCmd)
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelWarn,
		Service: "cli",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(CLIExitError)
	}
}
