// Package errors provides the centralized, phase-tagged error code
// taxonomy for the bundling pipeline. Every kind named in the bundler's
// error model gets a stable code here, grouped by phase, the same way a
// compiler's diagnostics registry works: one place a caller can map a
// code back to a phase/category/description without parsing message text.
package errors

// Error code constants organized by phase.
const (
	// ============================================================================
	// Discovery Errors (DSC###) — filesystem walking, encoding
	// ============================================================================

	// DSC001 indicates a source file could not be read from disk.
	DSC001 = "DSC001"

	// DSC002 indicates a source file's bytes could not be decoded as UTF-8
	// even after BOM stripping.
	DSC002 = "DSC002"

	// DSC003 indicates two discovered files mapped to the same dotted
	// module name.
	DSC003 = "DSC003"

	// ============================================================================
	// Parser Errors (PAR###)
	// ============================================================================

	// PAR001 indicates an unexpected token was encountered during parsing.
	PAR001 = "PAR001"

	// PAR002 indicates a missing closing delimiter (paren, bracket, brace).
	PAR002 = "PAR002"

	// PAR003 indicates an inconsistent indentation (dedent to a width that
	// never appeared on the indent stack).
	PAR003 = "PAR003"

	// PAR004 indicates an invalid import statement syntax.
	PAR004 = "PAR004"

	// PAR005 indicates an unterminated string literal.
	PAR005 = "PAR005"

	// ============================================================================
	// Import Classification Errors (IMP###)
	// ============================================================================

	// IMP001 indicates a relative import climbed past the first-party
	// source root (spec's UnresolvedRelativeImport).
	IMP001 = "IMP001"

	// IMP002 indicates a module's __all__ names a symbol that cannot be
	// resolved statically (spec's AmbiguousExport).
	IMP002 = "IMP002"

	// IMP003 indicates an import resolved to both a module and a
	// same-named value in the same scope, with no file to break the tie.
	IMP003 = "IMP003"

	// ============================================================================
	// Circular Dependency Errors (CYC###)
	// ============================================================================

	// CYC001 indicates an unresolvable cycle: a FunctionLevel cycle's
	// load-bearing invariant (partial namespace visibility) cannot be
	// upheld for the observed access pattern (spec's UnresolvableCycle).
	CYC001 = "CYC001"

	// ============================================================================
	// Symbol Renamer Errors (REN###)
	// ============================================================================

	// REN001 indicates the renamer could not produce a unique name within
	// its bounded suffix search — a pathological input, treated as an
	// internal invariant violation.
	REN001 = "REN001"

	// ============================================================================
	// Bundle Assembler Errors (ASM###)
	// ============================================================================

	// ASM001 indicates a surviving reference has no matching binding in
	// the final flat scope.
	ASM001 = "ASM001"

	// ASM002 indicates two surviving bindings collided under the same
	// final name after renaming.
	ASM002 = "ASM002"
)

// ErrorInfo provides structured information about an error code.
type ErrorInfo struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// ErrorRegistry maps error codes to their information.
var ErrorRegistry = map[string]ErrorInfo{
	DSC001: {DSC001, "discovery", "io", "Source file could not be read"},
	DSC002: {DSC002, "discovery", "encoding", "Source file is not valid UTF-8"},
	DSC003: {DSC003, "discovery", "namespace", "Duplicate dotted module name"},

	PAR001: {PAR001, "parser", "syntax", "Unexpected token"},
	PAR002: {PAR002, "parser", "syntax", "Missing closing delimiter"},
	PAR003: {PAR003, "parser", "syntax", "Inconsistent indentation"},
	PAR004: {PAR004, "parser", "syntax", "Invalid import statement"},
	PAR005: {PAR005, "parser", "syntax", "Unterminated string literal"},

	IMP001: {IMP001, "imports", "resolution", "Unresolved relative import"},
	IMP002: {IMP002, "imports", "export", "Ambiguous export in __all__"},
	IMP003: {IMP003, "imports", "resolution", "Module/value import ambiguity"},

	CYC001: {CYC001, "cycles", "dependency", "Unresolvable circular dependency"},

	REN001: {REN001, "rename", "invariant", "Rename suffix search exhausted"},

	ASM001: {ASM001, "assemble", "invariant", "Missing binding for surviving reference"},
	ASM002: {ASM002, "assemble", "invariant", "Duplicate binding name after rename"},
}

// GetErrorInfo returns information about an error code.
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, exists := ErrorRegistry[code]
	return info, exists
}

// IsDiscoveryError checks if the error code is a discovery-phase error.
func IsDiscoveryError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "discovery"
}

// IsParserError checks if the error code is a parser error.
func IsParserError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "parser"
}

// IsImportError checks if the error code is an import-classification error.
func IsImportError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "imports"
}

// IsCycleError checks if the error code is a circular-dependency error.
func IsCycleError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "cycles"
}

// IsRenameError checks if the error code is a symbol-renamer error.
func IsRenameError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "rename"
}

// IsAssembleError checks if the error code is an assembler invariant error.
func IsAssembleError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "assemble"
}
