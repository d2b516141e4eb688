// Command pybundle is the CLI driver for the bundling pipeline in
// internal/bundler — out of the core's scope per spec.md §1, wired here
// as the "CLI / configuration loader" external collaborator spec.md §6
// names. It never parses or evaluates Python itself beyond what
// internal/pyparse needs; it only discovers files, loads configuration,
// calls the library, and renders the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Version info, set by -ldflags at build time; "dev" otherwise, the same
// convention the teacher's cmd/ailang/main.go uses.
var (
	Version = "dev"
	Commit  = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "print version information")
		helpFlag    = flag.Bool("help", false, "show help")
	)
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	args := flag.Args()
	command, rest := args[0], args[1:]

	var err error
	switch command {
	case "build":
		err = runBuild(rest)
	case "graph":
		err = runGraph(rest)
	case "inspect":
		err = runInspect(rest)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}

	if err != nil {
		printPipelineError(err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("%s %s\n", bold("pybundle"), Version)
	if Commit != "unknown" {
		fmt.Printf("commit: %s\n", Commit)
	}
}

func printHelp() {
	fmt.Println(bold("pybundle — static single-file bundler for Python source trees"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pybundle build <entry.py> [--out FILE] [--config FILE] [--target-version X.Y]")
	fmt.Println("                 [--no-tree-shake] [--keep-docstrings] [--strip-type-imports]")
	fmt.Println("                 [--emit-requirements FILE] [--report FILE] [--diff]")
	fmt.Println("  pybundle graph <entry.py> [--json]")
	fmt.Println("  pybundle inspect <entry.py>")
	fmt.Println("  pybundle --version")
	fmt.Println("  pybundle --help")
}
