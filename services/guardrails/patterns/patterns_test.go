// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patterns

import (
	"testing"
)

func TestLoad_Succeeds(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if catalog == nil {
		t.Fatal("Load() returned nil catalog")
	}
}

func TestLoad_ScreeningFamiliesPopulated(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(catalog.Screening.Override) == 0 {
		t.Error("expected override patterns, got none")
	}
	if len(catalog.Screening.RoleHijack) == 0 {
		t.Error("expected role-hijack patterns, got none")
	}
}

func TestLoad_RedactionCategoriesPresent(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]bool{
		"national_id":   false,
		"phone":         false,
		"email":         false,
		"payment_card":  false,
		"date_of_birth": false,
		"postal_code":   false,
	}
	for _, p := range catalog.Redaction.Identifiers {
		if _, ok := want[p.Category]; ok {
			want[p.Category] = true
		}
	}
	for category, found := range want {
		if !found {
			t.Errorf("identifier category %q missing from catalog", category)
		}
	}
}

func TestLoad_AllPatternsCompiled(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, p := range catalog.Screening.Override {
		if p.Compiled() == nil {
			t.Errorf("override pattern %s not compiled", p.Id)
		}
	}
	for _, p := range catalog.Screening.RoleHijack {
		if p.Compiled() == nil {
			t.Errorf("role-hijack pattern %s not compiled", p.Id)
		}
	}
	for i := range catalog.Redaction.Identifiers {
		if catalog.Redaction.Identifiers[i].Compiled() == nil {
			t.Errorf("identifier pattern %s not compiled", catalog.Redaction.Identifiers[i].Category)
		}
	}
	for _, p := range catalog.Redaction.NarrativeTerms {
		if p.Compiled() == nil {
			t.Errorf("narrative-term pattern %s not compiled", p.Id)
		}
	}
}

func TestLoad_CardPatternOrderedBeforePostal(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cardIdx, postalIdx := -1, -1
	for i, p := range catalog.Redaction.Identifiers {
		switch p.Category {
		case "payment_card":
			cardIdx = i
		case "postal_code":
			postalIdx = i
		}
	}
	// Declaration order is load-bearing: the postal shape is a prefix of the
	// card shape and must run after it.
	if cardIdx < 0 || postalIdx < 0 || cardIdx > postalIdx {
		t.Errorf("payment_card (idx %d) must precede postal_code (idx %d)", cardIdx, postalIdx)
	}
}
