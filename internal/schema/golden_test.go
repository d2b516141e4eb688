package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestGoldenErrorJSON tests that error JSON is deterministic and matches
// the exact expected byte layout.
func TestGoldenErrorJSON(t *testing.T) {
	tests := []struct {
		name     string
		err      map[string]interface{}
		wantJSON string
	}{
		{
			name: "unresolved_relative_import",
			err: map[string]interface{}{
				"schema":  ErrorV1,
				"sid":     "pkg.sub.mod",
				"phase":   "imports",
				"code":    "IMP001",
				"message": "relative import escapes the first-party source root",
				"fix": map[string]interface{}{
					"suggestion": "",
					"confidence": 0.0,
				},
				"context": map[string]interface{}{
					"cycle_members": []string{},
					"offending_ref": "from ...outside import helper",
				},
			},
			wantJSON: `{
  "code": "IMP001",
  "context": {
    "cycle_members": [],
    "offending_ref": "from ...outside import helper"
  },
  "fix": {
    "confidence": 0,
    "suggestion": ""
  },
  "message": "relative import escapes the first-party source root",
  "phase": "imports",
  "schema": "pybundle.error/v1",
  "sid": "pkg.sub.mod"
}`,
		},
		{
			name: "unresolvable_cycle_with_fix",
			err: map[string]interface{}{
				"schema":  ErrorV1,
				"sid":     "pkg.a",
				"phase":   "cycles",
				"code":    "CYC001",
				"message": "circular dependency cannot be resolved at module scope",
				"fix": map[string]interface{}{
					"suggestion": "move the shared symbol to a third module",
					"confidence": 0.6,
				},
			},
			wantJSON: `{
  "code": "CYC001",
  "fix": {
    "confidence": 0.6,
    "suggestion": "move the shared symbol to a third module"
  },
  "message": "circular dependency cannot be resolved at module scope",
  "phase": "cycles",
  "schema": "pybundle.error/v1",
  "sid": "pkg.a"
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalDeterministic(tt.err)
			if err != nil {
				t.Fatalf("MarshalDeterministic() error = %v", err)
			}

			formatted, err := FormatJSON(got)
			if err != nil {
				t.Fatalf("FormatJSON() error = %v", err)
			}

			wantNorm := normalizeJSON(t, tt.wantJSON)
			gotNorm := normalizeJSON(t, string(formatted))

			if gotNorm != wantNorm {
				t.Errorf("JSON mismatch:\nGot:\n%s\nWant:\n%s", gotNorm, wantNorm)
			}

			var parsed map[string]interface{}
			if err := json.Unmarshal(got, &parsed); err != nil {
				t.Fatalf("Failed to parse JSON: %v", err)
			}
			if schemaField, ok := parsed["schema"].(string); ok {
				if !Accepts(schemaField, ErrorV1) {
					t.Errorf("Schema %q does not accept %q", schemaField, ErrorV1)
				}
			} else {
				t.Error("Missing schema field in JSON output")
			}
		})
	}
}

// TestGoldenManifestJSON tests that a requirements manifest's JSON form is
// deterministic.
func TestGoldenManifestJSON(t *testing.T) {
	manifest := map[string]interface{}{
		"schema": ManifestV1,
		"entry":  "app.main",
		"requirements": []interface{}{
			"requests",
			"yaml",
		},
	}

	wantJSON := `{
  "entry": "app.main",
  "requirements": [
    "requests",
    "yaml"
  ],
  "schema": "pybundle.manifest/v1"
}`

	got, err := MarshalDeterministic(manifest)
	if err != nil {
		t.Fatalf("MarshalDeterministic() error = %v", err)
	}
	formatted, err := FormatJSON(got)
	if err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	wantNorm := normalizeJSON(t, wantJSON)
	gotNorm := normalizeJSON(t, string(formatted))
	if gotNorm != wantNorm {
		t.Errorf("JSON mismatch:\nGot:\n%s\nWant:\n%s", gotNorm, wantNorm)
	}
}

// TestGoldenCompactMode tests that compact mode works correctly.
func TestGoldenCompactMode(t *testing.T) {
	data := map[string]interface{}{
		"schema": ManifestV1,
		"counts": map[string]interface{}{
			"first_party":  10,
			"third_party": 2,
		},
	}

	SetCompactMode(false)
	pretty, err := MarshalDeterministic(data)
	if err != nil {
		t.Fatalf("MarshalDeterministic error = %v", err)
	}
	prettyFormatted, err := FormatJSON(pretty)
	if err != nil {
		t.Fatalf("FormatJSON error = %v", err)
	}
	if !strings.Contains(string(prettyFormatted), "\n") {
		t.Error("Pretty mode should contain newlines")
	}

	SetCompactMode(true)
	compact, err := MarshalDeterministic(data)
	if err != nil {
		t.Fatalf("MarshalDeterministic error = %v", err)
	}
	compactFormatted, err := FormatJSON(compact)
	if err != nil {
		t.Fatalf("FormatJSON error = %v", err)
	}
	if strings.Contains(string(compactFormatted), "\n") {
		t.Error("Compact mode should not contain newlines")
	}

	wantCompact := `{"counts":{"first_party":10,"third_party":2},"schema":"pybundle.manifest/v1"}`
	if string(compactFormatted) != wantCompact {
		t.Errorf("Compact JSON mismatch:\nGot:  %s\nWant: %s", string(compactFormatted), wantCompact)
	}

	SetCompactMode(false)
}

// TestAcceptsCompatibility tests schema version compatibility.
func TestAcceptsCompatibility(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		want     string
		expected bool
	}{
		{"exact error v1", "pybundle.error/v1", ErrorV1, true},
		{"exact manifest v1", "pybundle.manifest/v1", ManifestV1, true},
		{"exact graph v1", "pybundle.graph/v1", GraphV1, true},

		{"error v1.1", "pybundle.error/v1.1", ErrorV1, true},
		{"manifest v1.2.3", "pybundle.manifest/v1.2.3", ManifestV1, true},

		{"error v2", "pybundle.error/v2", ErrorV1, false},
		{"manifest v2", "pybundle.manifest/v2", ManifestV1, false},

		{"wrong schema", "pybundle.manifest/v1", ErrorV1, false},
		{"wrong schema 2", "pybundle.error/v1", ManifestV1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accepts(tt.got, tt.want); got != tt.expected {
				t.Errorf("Accepts(%q, %q) = %v, want %v", tt.got, tt.want, got, tt.expected)
			}
		})
	}
}

// normalizeJSON normalizes JSON for comparison by parsing and re-formatting.
func normalizeJSON(t *testing.T, jsonStr string) string {
	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		t.Fatalf("Invalid JSON: %v\nJSON: %s", err, jsonStr)
	}

	normalized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		t.Fatalf("Failed to normalize JSON: %v", err)
	}

	return string(normalized)
}
