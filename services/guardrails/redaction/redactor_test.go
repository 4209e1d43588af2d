// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package redaction

import (
	"strings"
	"testing"

	"github.com/AleutianAI/ClaimSentinel/services/guardrails/patterns"
)

func newTestRedactor(t *testing.T) *Redactor {
	t.Helper()
	catalog, err := patterns.Load()
	if err != nil {
		t.Fatalf("failed to load pattern catalog: %v", err)
	}
	return NewRedactor(catalog)
}

func TestDetectTypes(t *testing.T) {
	redactor := newTestRedactor(t)

	tests := []struct {
		name string
		text string
		want map[string]int
	}{
		{
			name: "clean text",
			text: "The rear bumper was damaged in a parking lot.",
			want: map[string]int{},
		},
		{
			name: "single national id",
			text: "My SSN is 123-45-6789 for verification.",
			want: map[string]int{"national_id": 1},
		},
		{
			name: "two emails",
			text: "Contact jane.doe@example.com or adjuster@insurer.example.org today.",
			want: map[string]int{"email": 2},
		},
		{
			name: "phone number",
			text: "Call me at 555-123-4567 after 5pm.",
			want: map[string]int{"phone": 1},
		},
		{
			name: "payment card",
			text: "I paid with card 4111 1111 1111 1111 at the pharmacy.",
			want: map[string]int{"payment_card": 1},
		},
		{
			name: "date of birth",
			text: "Policyholder born 04/12/1985.",
			want: map[string]int{"date_of_birth": 1},
		},
		{
			name: "postal code",
			text: "The property at zip 90210 was flooded.",
			want: map[string]int{"postal_code": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.DetectTypes(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("DetectTypes() = %v, want %v", got, tt.want)
			}
			for category, n := range tt.want {
				if got[category] != n {
					t.Errorf("DetectTypes()[%s] = %d, want %d", category, got[category], n)
				}
			}
		})
	}
}

func TestRedact(t *testing.T) {
	redactor := newTestRedactor(t)

	tests := []struct {
		name        string
		text        string
		wantGone    []string
		wantPresent []string
	}{
		{
			name:        "national id",
			text:        "SSN 123-45-6789 on file.",
			wantGone:    []string{"123-45-6789"},
			wantPresent: []string{"[ID-REDACTED]"},
		},
		{
			name:        "email",
			text:        "Reach me at jane.doe@example.com please.",
			wantGone:    []string{"jane.doe@example.com"},
			wantPresent: []string{"[EMAIL-REDACTED]"},
		},
		{
			name:        "phone",
			text:        "Phone: 555-123-4567.",
			wantGone:    []string{"555-123-4567"},
			wantPresent: []string{"[PHONE-REDACTED]"},
		},
		{
			name:        "payment card with spaces",
			text:        "Card 4111 1111 1111 1111 was charged.",
			wantGone:    []string{"4111 1111 1111 1111"},
			wantPresent: []string{"[CARD-REDACTED]"},
		},
		{
			name:        "date of birth",
			text:        "DOB 04/12/1985.",
			wantGone:    []string{"04/12/1985"},
			wantPresent: []string{"[DOB-REDACTED]"},
		},
		{
			// Postal codes keep their leading two digits for regional
			// routing statistics.
			name:        "postal code keeps prefix",
			text:        "Flood at zip 90210 last week.",
			wantGone:    []string{"90210"},
			wantPresent: []string{"90***"},
		},
		{
			name:        "multiple identifiers",
			text:        "SSN 123-45-6789, email a.b@c.example, phone 555-123-4567.",
			wantGone:    []string{"123-45-6789", "a.b@c.example", "555-123-4567"},
			wantPresent: []string{"[ID-REDACTED]", "[EMAIL-REDACTED]", "[PHONE-REDACTED]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.Redact(tt.text)
			for _, s := range tt.wantGone {
				if strings.Contains(got, s) {
					t.Errorf("Redact() output still contains %q: %q", s, got)
				}
			}
			for _, s := range tt.wantPresent {
				if !strings.Contains(got, s) {
					t.Errorf("Redact() output missing %q: %q", s, got)
				}
			}
		})
	}
}

// Redacting already-redacted text must change nothing.
func TestRedact_Idempotent(t *testing.T) {
	redactor := newTestRedactor(t)

	text := "SSN 123-45-6789, card 4111 1111 1111 1111, zip 90210, jane@example.com"
	once := redactor.Redact(text)
	twice := redactor.Redact(once)
	if once != twice {
		t.Errorf("Redact is not idempotent:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestRedactNarrativeTerms(t *testing.T) {
	redactor := newTestRedactor(t)

	tests := []struct {
		name     string
		text     string
		wantGone string
	}{
		{
			name:     "diagnosis",
			text:     "Diagnosis: type 2 diabetes. The visit cost $300.",
			wantGone: "type 2 diabetes",
		},
		{
			name:     "diagnosed with",
			text:     "The claimant was diagnosed with a fractured wrist.",
			wantGone: "fractured wrist",
		},
		{
			name:     "patient name",
			text:     "Patient name: John Q Example, seen on site.",
			wantGone: "John Q Example",
		},
		{
			name:     "prescription",
			text:     "Prescription: amoxicillin 500mg. Pharmacy receipt attached.",
			wantGone: "amoxicillin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactor.RedactNarrativeTerms(tt.text)
			if strings.Contains(got, tt.wantGone) {
				t.Errorf("RedactNarrativeTerms() still contains %q: %q", tt.wantGone, got)
			}
			if !strings.Contains(got, "[REDACTED]") {
				t.Errorf("RedactNarrativeTerms() missing placeholder: %q", got)
			}
		})
	}
}

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"POL-2024-889231", "***********9231"},
		{"ABCDE", "*BCDE"},
		{"1234", "****"},
		{"AB", "**"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskIdentifier(tt.in); got != tt.want {
			t.Errorf("MaskIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
