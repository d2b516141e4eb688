// Package manifest emits the requirements.txt-shaped dependency list a
// bundle carries alongside its single output file: the bare top-level
// names of every third-party import the Import Classifier (C2) retained,
// sorted and deduplicated, with no version pinning (spec.md §4.16 — the
// bundler has no access to an installed environment to pin against).
package manifest

import (
	"sort"
	"strings"

	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/schema"
)

// Manifest is the third-party dependency surface of one bundling run.
type Manifest struct {
	Entry        string   `json:"entry"`
	Requirements []string `json:"requirements"`
}

// Build walks the classified import records and collects every
// third-party top-level package name, sorted and deduplicated.
func Build(entry string, records []imports.Record) Manifest {
	names := imports.ThirdPartyTopLevels(records)
	if names == nil {
		names = []string{}
	}
	return Manifest{Entry: entry, Requirements: names}
}

// Text renders the manifest in requirements.txt form: one bare package
// name per line, trailing newline, no comments or version specifiers.
func (m Manifest) Text() string {
	if len(m.Requirements) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range m.Requirements {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.String()
}

// JSON renders the manifest as deterministic pybundle.manifest/v1 JSON,
// matching the shape internal/schema's golden tests fix.
func (m Manifest) JSON() ([]byte, error) {
	sorted := append([]string(nil), m.Requirements...)
	sort.Strings(sorted)
	payload := map[string]interface{}{
		"schema":       schema.ManifestV1,
		"entry":        m.Entry,
		"requirements": toInterfaceSlice(sorted),
	}
	data, err := schema.MarshalDeterministic(payload)
	if err != nil {
		return nil, err
	}
	return schema.FormatJSON(data)
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
