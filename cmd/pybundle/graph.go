package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/mattn/go-runewidth"

	"github.com/pybundle/pybundle/internal/bundler"
	"github.com/pybundle/pybundle/internal/config"
	"github.com/pybundle/pybundle/internal/cycles"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyparse"
	"github.com/pybundle/pybundle/internal/schema"
	"github.com/pybundle/pybundle/internal/sideeffect"
	"github.com/pybundle/pybundle/internal/stdlib"
)

// runGraph implements `pybundle graph <entry.py>`: it runs C1/C2/C5 only
// (module discovery through circular-dependency classification) and
// prints the result without assembling a bundle — useful for diagnosing
// cycles before attempting a full build.
func runGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	var (
		configPath    = fs.String("config", "", "YAML config file overlay")
		targetVersion = fs.String("target-version", "", "target Python stdlib version, e.g. 3.11")
		asJSON        = fs.Bool("json", false, "print the graph as pybundle.graph/v1 JSON instead of a tree")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("graph: missing entry.py argument")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *targetVersion != "" {
		cfg.TargetVersion = stdlib.Version(*targetVersion)
	}

	entryPath, err := resolveEntry(fs.Arg(0))
	if err != nil {
		return err
	}
	root := cfg.SourceRoot
	if root == "" {
		root = filepath.Dir(entryPath)
	}
	sources, entryName, err := loadModuleSources(root, entryPath)
	if err != nil {
		return err
	}

	g, err := buildModuleGraph(sources, entryName)
	if err != nil {
		return err
	}

	classifier := imports.New(g, cfg.TargetVersion)
	records, errs := classifier.ClassifyAll()
	if len(errs) > 0 {
		return errs[0]
	}
	cycleInfo, err := cycles.Analyze(g, records)
	if err != nil {
		return err
	}

	if *asJSON {
		return printGraphJSON(g, cycleInfo)
	}
	printGraphTree(g, cycleInfo)
	return nil
}

// buildModuleGraph runs C1's discovery-time construction (parse every
// source, add it to the graph, build its item table, mark side effects)
// without running the rest of the pipeline — the same steps
// internal/bundler.Bundle performs before handing off to C2.
func buildModuleGraph(sources map[string]bundler.ModuleSource, entryName string) (*modgraph.Graph, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	g := modgraph.New()
	for _, name := range names {
		src := sources[name]
		kind := modgraph.KindRegular
		switch {
		case name == entryName:
			kind = modgraph.KindEntry
		case src.IsPackage:
			kind = modgraph.KindPackage
		}
		lex := pyparse.New(src.Text, src.Path)
		p := pyparse.NewParser(lex, src.Path)
		mod := p.ParseModule(name)
		if errs := p.Errors(); len(errs) > 0 {
			return nil, fmt.Errorf("%s: %s", name, errs[0].Error())
		}
		m := g.AddModule(name, src.Path, kind, mod)
		modgraph.BuildItems(m)
		sideeffect.Mark(m)
	}
	return g, nil
}

func printGraphTree(g *modgraph.Graph, cycleInfo []cycles.Classification) {
	order := g.TopoOrder()
	sccOf := map[modgraph.ModuleID]cycles.Level{}
	for _, c := range cycleInfo {
		for _, m := range c.SCC.Members {
			sccOf[m] = c.Level
		}
	}

	width := 0
	for _, id := range order {
		if w := runewidth.StringWidth(g.ModuleByID(id).DottedName); w > width {
			width = w
		}
	}

	fmt.Println(bold("Module graph (topological order)"))
	for _, id := range order {
		m := g.ModuleByID(id)
		pad := width - runewidth.StringWidth(m.DottedName)
		label := m.DottedName + spaces(pad)
		if lvl, ok := sccOf[id]; ok {
			fmt.Printf("  %s  %s\n", label, yellow(fmt.Sprintf("[cycle: %s]", lvl)))
		} else {
			fmt.Printf("  %s\n", label)
		}
	}
}

func printGraphJSON(g *modgraph.Graph, cycleInfo []cycles.Classification) error {
	order := g.TopoOrder()
	modules := make([]interface{}, 0, len(order))
	for _, id := range order {
		m := g.ModuleByID(id)
		modules = append(modules, map[string]interface{}{
			"module": m.DottedName,
		})
	}
	cyclesOut := make([]interface{}, 0, len(cycleInfo))
	for _, c := range cycleInfo {
		names := make([]string, 0, len(c.SCC.Members))
		for _, m := range c.SCC.Members {
			names = append(names, g.ModuleByID(m).DottedName)
		}
		sort.Strings(names)
		cyclesOut = append(cyclesOut, map[string]interface{}{
			"level":   c.Level.String(),
			"members": toInterfaceSlice(names),
		})
	}
	payload := map[string]interface{}{
		"schema":  schema.GraphV1,
		"modules": modules,
		"cycles":  cyclesOut,
	}
	data, err := schema.MarshalDeterministic(payload)
	if err != nil {
		return err
	}
	formatted, err := schema.FormatJSON(data)
	if err != nil {
		return err
	}
	fmt.Println(string(formatted))
	return nil
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
