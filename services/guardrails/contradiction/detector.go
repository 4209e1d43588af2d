// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package contradiction cross-checks a generated decision against its own
// citations, the claim's amount and limits, its confidence, and supporting
// document text, producing severity-tagged findings.
//
// Each check is independent and may emit zero or more findings. Any Critical
// finding forces the orchestrator to route the claim to manual review;
// Warning findings ride along on the decision without changing status.
package contradiction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

// Config holds the confidence thresholds for the confidence/status mismatch
// check. These are policy, not facts: product owners tune them, so they are
// injected rather than hard-coded.
type Config struct {
	// VeryHighConfidence marks confidence paired with Manual Review as odd.
	VeryHighConfidence float64

	// VeryLowConfidence marks confidence paired with a definitive status as odd.
	VeryLowConfidence float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		VeryHighConfidence: 0.95,
		VeryLowConfidence:  0.30,
	}
}

// Package-level compiled regexes for clause and document analysis.
var (
	// exclusionRe matches clause text that removes coverage.
	exclusionRe = regexp.MustCompile(`(?i)\b(not\s+cover(ed|s)?|exclud(ed|es|sion|ing)|exclusion|shall\s+not\s+(be\s+)?(pay|reimburse|cover)|no\s+benefits?\s+(are\s+)?payable)\b`)

	// grantRe matches clause text that grants coverage.
	grantRe = regexp.MustCompile(`(?i)\b(is\s+covered|are\s+covered|covers|will\s+(pay|reimburse)|shall\s+(pay|reimburse)|eligible\s+for\s+(benefits?|reimbursement)|benefits?\s+are\s+payable)\b`)

	// limitRe captures a monetary limit stated in clause text.
	limitRe = regexp.MustCompile(`(?i)(?:up\s+to|limit(?:ed)?\s+(?:to|of)|maximum\s+(?:of\s+|benefit\s+of\s+)?|not\s+(?:to\s+)?exceed(?:ing)?)\s*\$?\s*([\d,]+(?:\.\d+)?)`)

	// amountRe captures dollar amounts in free text.
	amountRe = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)`)

	// dateRe captures date-shaped tokens in free text.
	dateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)

	// procedureRe captures a labeled procedure mention in document text.
	procedureRe = regexp.MustCompile(`(?i)procedure\s*:?\s*([^\n.;,]+)`)
)

// IsExclusionClause reports whether the clause text removes coverage.
// A clause mentioning both exclusion and grant language counts as an
// exclusion; carve-outs are worded that way.
func IsExclusionClause(text string) bool {
	return exclusionRe.MatchString(text)
}

// isGrantClause reports whether the clause text grants coverage without
// also excluding it.
func isGrantClause(text string) bool {
	return grantRe.MatchString(text) && !exclusionRe.MatchString(text)
}

// Detector runs the cross-field contradiction checks.
// Stateless after construction; safe for concurrent use.
type Detector struct {
	config Config
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// Detect runs every check and returns the combined findings.
//
// supportingText is optional document text extracted from uploaded evidence;
// the document-consistency check only runs when it is non-empty.
func (d *Detector) Detect(
	request datatypes.ClaimRequest,
	decision datatypes.RawDecision,
	availableClauses []datatypes.PolicyClause,
	supportingText string,
) []datatypes.Contradiction {
	var findings []datatypes.Contradiction

	cited := citedClauses(decision, availableClauses)
	findings = append(findings, d.checkDecisionCitationConsistency(decision, cited)...)
	findings = append(findings, d.checkConfidenceStatus(decision)...)
	findings = append(findings, d.checkAmountAgainstLimits(request, cited)...)
	if supportingText != "" {
		findings = append(findings, d.checkSupportingDocument(request, supportingText)...)
	}
	return findings
}

// HasCritical reports whether any finding carries Critical severity.
func HasCritical(findings []datatypes.Contradiction) bool {
	for _, f := range findings {
		if f.Severity == datatypes.SeverityCritical {
			return true
		}
	}
	return false
}

// Summarize renders one line per finding for rationale text and audit logs.
func Summarize(findings []datatypes.Contradiction) []string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("[%s] %s vs %s: %s",
			f.Severity, f.SourceA, f.SourceB, f.Description))
	}
	return lines
}

// checkDecisionCitationConsistency flags decisions whose citations all point
// the other way: Covered backed only by exclusions, or Not Covered backed
// only by grants.
func (d *Detector) checkDecisionCitationConsistency(decision datatypes.RawDecision, cited []datatypes.PolicyClause) []datatypes.Contradiction {
	if len(cited) == 0 {
		return nil
	}

	allExclusions := true
	allGrants := true
	for _, c := range cited {
		if !IsExclusionClause(c.Text) {
			allExclusions = false
		}
		if !isGrantClause(c.Text) {
			allGrants = false
		}
	}

	switch {
	case decision.Status == datatypes.StatusCovered && allExclusions:
		return []datatypes.Contradiction{{
			SourceA:     "decision status",
			SourceB:     "cited clauses",
			Description: "decision grants coverage but every cited clause describes an exclusion",
			Severity:    datatypes.SeverityCritical,
			Impact:      "coverage may be based on misread exclusion text",
		}}
	case decision.Status == datatypes.StatusNotCovered && allGrants:
		return []datatypes.Contradiction{{
			SourceA:     "decision status",
			SourceB:     "cited clauses",
			Description: "decision denies coverage but every cited clause grants it",
			Severity:    datatypes.SeverityCritical,
			Impact:      "denial may be based on misread coverage text",
		}}
	}
	return nil
}

// checkConfidenceStatus flags confidence scores that do not fit the status.
func (d *Detector) checkConfidenceStatus(decision datatypes.RawDecision) []datatypes.Contradiction {
	var findings []datatypes.Contradiction

	if decision.Status == datatypes.StatusManualReview && decision.Confidence >= d.config.VeryHighConfidence {
		findings = append(findings, datatypes.Contradiction{
			SourceA:     "confidence score",
			SourceB:     "decision status",
			Description: fmt.Sprintf("confidence %.2f is very high for a Manual Review decision", decision.Confidence),
			Severity:    datatypes.SeverityWarning,
			Impact:      "the model may be deferring unnecessarily",
		})
	}
	if decision.Status != datatypes.StatusManualReview && decision.Confidence <= d.config.VeryLowConfidence {
		findings = append(findings, datatypes.Contradiction{
			SourceA:     "confidence score",
			SourceB:     "decision status",
			Description: fmt.Sprintf("confidence %.2f is very low for a definitive %q decision", decision.Confidence, decision.Status),
			Severity:    datatypes.SeverityWarning,
			Impact:      "definitive routing on weak confidence",
		})
	}
	return findings
}

// checkAmountAgainstLimits flags claims exceeding a limit stated in any
// cited clause.
func (d *Detector) checkAmountAgainstLimits(request datatypes.ClaimRequest, cited []datatypes.PolicyClause) []datatypes.Contradiction {
	var findings []datatypes.Contradiction
	for _, c := range cited {
		for _, m := range limitRe.FindAllStringSubmatch(c.Text, -1) {
			limit, err := parseAmount(m[1])
			if err != nil {
				continue
			}
			if request.ClaimAmount > limit {
				findings = append(findings, datatypes.Contradiction{
					SourceA:     "claim amount",
					SourceB:     fmt.Sprintf("cited clause %s", c.ClauseID),
					Description: fmt.Sprintf("claim amount %.2f exceeds the %.2f limit stated in clause %s", request.ClaimAmount, limit, c.ClauseID),
					Severity:    datatypes.SeverityCritical,
					Impact:      "amount above the cited policy limit cannot be auto-approved",
				})
			}
		}
	}
	return findings
}

// checkSupportingDocument flags dates, amounts, or procedures in the
// supporting document that diverge from the claim narrative.
func (d *Detector) checkSupportingDocument(request datatypes.ClaimRequest, supportingText string) []datatypes.Contradiction {
	var findings []datatypes.Contradiction

	// Amount: a document that states amounts, none of which matches the
	// claimed amount, contradicts the claim.
	if docAmounts := extractAmounts(supportingText); len(docAmounts) > 0 {
		matched := false
		for _, a := range docAmounts {
			if amountsClose(a, request.ClaimAmount) {
				matched = true
				break
			}
		}
		if !matched {
			findings = append(findings, datatypes.Contradiction{
				SourceA:     "claim amount",
				SourceB:     "supporting document",
				Description: fmt.Sprintf("document amounts %v do not include the claimed %.2f", docAmounts, request.ClaimAmount),
				Severity:    datatypes.SeverityCritical,
				Impact:      "claimed amount is not supported by the submitted evidence",
			})
		}
	}

	// Date: both texts mention dates but share none.
	narrativeDates := dateRe.FindAllString(request.Narrative, -1)
	docDates := dateRe.FindAllString(supportingText, -1)
	if len(narrativeDates) > 0 && len(docDates) > 0 && !anyOverlap(narrativeDates, docDates) {
		findings = append(findings, datatypes.Contradiction{
			SourceA:     "claim narrative",
			SourceB:     "supporting document",
			Description: fmt.Sprintf("narrative dates %v and document dates %v do not overlap", narrativeDates, docDates),
			Severity:    datatypes.SeverityCritical,
			Impact:      "the evidence may describe a different event",
		})
	}

	// Procedure: a labeled procedure in the document that the narrative
	// never mentions.
	for _, m := range procedureRe.FindAllStringSubmatch(supportingText, -1) {
		procedure := strings.TrimSpace(m[1])
		if procedure == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(request.Narrative), strings.ToLower(procedure)) {
			findings = append(findings, datatypes.Contradiction{
				SourceA:     "claim narrative",
				SourceB:     "supporting document",
				Description: fmt.Sprintf("document describes procedure %q not mentioned in the narrative", procedure),
				Severity:    datatypes.SeverityCritical,
				Impact:      "the evidence may belong to a different treatment",
			})
		}
	}

	return findings
}

func citedClauses(decision datatypes.RawDecision, available []datatypes.PolicyClause) []datatypes.PolicyClause {
	byID := make(map[string]datatypes.PolicyClause, len(available))
	for _, c := range available {
		byID[c.ClauseID] = c
	}
	var cited []datatypes.PolicyClause
	for _, ref := range decision.ClauseReferences {
		if c, ok := byID[strings.TrimSpace(ref)]; ok {
			cited = append(cited, c)
		}
	}
	return cited
}

func extractAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		if a, err := parseAmount(m[1]); err == nil {
			amounts = append(amounts, a)
		}
	}
	return amounts
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// amountsClose allows for rounding differences between documents.
func amountsClose(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.01*b || diff < 1.0
}

func anyOverlap(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}
