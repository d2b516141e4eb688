package main

import (
	"fmt"
	"os"

	"github.com/pybundle/pybundle/internal/errors"
)

// printPipelineError renders a pipeline error: a structured *errors.Report
// gets its phase and code surfaced, anything else (flag parsing, file I/O)
// is printed as-is. Matches the teacher's `red("Error")`-prefixed
// diagnostic line convention.
func printPipelineError(err error) {
	if rep, ok := errors.AsReport(err); ok {
		fmt.Fprintf(os.Stderr, "%s [%s/%s]: %s\n", red("Error"), rep.Phase, rep.Code, rep.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
}
