package errors

import (
	"encoding/json"
	stderrors "errors"

	"github.com/pybundle/pybundle/internal/pyast"
)

// Report is the canonical structured error type returned by the bundling
// pipeline. Every error builder in internal/bundler and its component
// packages returns a *Report, wrapped as a ReportError so it survives
// errors.As() unwrapping up to the CLI.
type Report struct {
	Schema  string         `json:"schema"`         // always schema.ErrorV1
	Code    string         `json:"code"`            // error code (IMP001, CYC001, ...)
	Phase   string         `json:"phase"`           // "discovery", "parser", "imports", "cycles", "rename", "assemble"
	Message string         `json:"message"`
	Span    *pyast.Range   `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

// ReportError wraps a Report as an error so structured reports survive
// errors.As() unwrapping.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport attempts to extract a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if stderrors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps a Report as a ReportError.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON converts a Report to JSON (single-line output when compact is
// true, two-space indented output otherwise).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewGeneric creates a generic error report for an error without a more
// specific phase-tagged code.
func NewGeneric(phase string, err error) *Report {
	return &Report{
		Schema:  "pybundle.error/v1",
		Code:    "ERR000",
		Phase:   phase,
		Message: err.Error(),
		Data:    map[string]any{},
	}
}
