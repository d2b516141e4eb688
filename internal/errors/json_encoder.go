package errors

import (
	"fmt"

	"github.com/pybundle/pybundle/internal/schema"
)

// Fix represents a suggested fix with confidence score.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded represents a structured error in JSON format, one bundle run
// can accumulate and return several of alongside its result.
type Encoded struct {
	Schema     string      `json:"schema"`
	SID        string      `json:"sid"` // dotted module name the error concerns
	Phase      string      `json:"phase"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Fix        Fix         `json:"fix"`
	Context    interface{} `json:"context,omitempty"`
	SourceSpan string      `json:"source_span,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

// NewDiscovery creates a discovery-phase error (DSC###).
func NewDiscovery(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "discovery", code, msg, ctx)
}

// NewParse creates a parser-phase error (PAR###).
func NewParse(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "parser", code, msg, ctx)
}

// NewImport creates an import-classification error (IMP###).
func NewImport(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "imports", code, msg, ctx)
}

// NewCycle creates a circular-dependency error (CYC###).
func NewCycle(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "cycles", code, msg, ctx)
}

// NewRename creates a symbol-renamer error (REN###).
func NewRename(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "rename", code, msg, ctx)
}

// NewAssemble creates an assembler invariant error (ASM###).
func NewAssemble(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "assemble", code, msg, ctx)
}

func newEncoded(sid, phase, code, msg string, ctx interface{}) Encoded {
	if sid == "" {
		sid = "unknown"
	}
	return Encoded{
		Schema:  schema.ErrorV1,
		SID:     sid,
		Phase:   phase,
		Code:    code,
		Message: msg,
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
		Context: ctx,
	}
}

// WithFix adds a fix suggestion to the error.
func (e Encoded) WithFix(suggestion string, confidence float64) Encoded {
	e.Fix = Fix{Suggestion: suggestion, Confidence: confidence}
	return e
}

// WithSourceSpan adds source location to the error.
func (e Encoded) WithSourceSpan(span string) Encoded {
	e.SourceSpan = span
	return e
}

// WithMeta adds metadata to the error.
func (e Encoded) WithMeta(meta interface{}) Encoded {
	e.Meta = meta
	return e
}

// ToJSON converts the error to deterministic JSON.
func (e Encoded) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(e)
	if err != nil {
		fallback := Encoded{
			Schema:  schema.ErrorV1,
			Message: "encoding failed",
			Meta:    map[string]string{"original_error": err.Error()},
		}
		return schema.MarshalDeterministic(fallback)
	}
	return schema.FormatJSON(data)
}

// ErrorContext provides structured context for errors that reference a
// dependency cycle or a set of candidate bindings.
type ErrorContext struct {
	CycleMembers []string          `json:"cycle_members,omitempty"`
	OffendingRef string            `json:"offending_ref,omitempty"`
	Candidates   []string          `json:"candidates,omitempty"`
	Environment  map[string]string `json:"environment,omitempty"`
}

// SafeEncodeError safely encodes any error, never panics.
func SafeEncodeError(err error, phase string) []byte {
	if err == nil {
		return nil
	}
	encoded := Encoded{
		Schema:  schema.ErrorV1,
		SID:     "unknown",
		Phase:   phase,
		Code:    "ERR000",
		Message: err.Error(),
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
	}
	data, _ := encoded.ToJSON()
	return data
}

// FormatSourceSpan formats a file position as "file:line:col".
func FormatSourceSpan(file string, line, col int) string {
	return fmt.Sprintf("%s:%d:%d", file, line, col)
}
