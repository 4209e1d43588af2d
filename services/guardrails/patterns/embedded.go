// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime logic. It uses the Go embed
package to bake guardrail_patterns.yaml directly into the compiled binary, so
the screening and redaction rules are immutable at runtime and travel with the
executable.
*/

package patterns

import (
	_ "embed"
)

// GuardrailPatterns holds the raw byte content of 'guardrail_patterns.yaml'.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML
// into the binary ensures the safety rules cannot be tampered with on the
// host filesystem without recompiling the application.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(patterns.GuardrailPatterns, &targetStruct)
//
//go:embed guardrail_patterns.yaml
var GuardrailPatterns []byte
