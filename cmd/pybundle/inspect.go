package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/peterh/liner"

	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/config"
	"github.com/pybundle/pybundle/internal/cycles"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/semindex"
)

// runInspect implements `pybundle inspect <entry.py>`: a read-only,
// liner-backed explorer over the discovered module graph, C7's
// classification decisions, and C3's semantic index — never a REPL for
// Python code, this tool never evaluates anything.
func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file overlay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("inspect: missing entry.py argument")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
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
	entry, _ := g.ModuleByName(entryName)

	classifier := imports.New(g, cfg.TargetVersion)
	records, classifyErrs := classifier.ClassifyAll()
	if len(classifyErrs) > 0 {
		return classifyErrs[0]
	}
	cycleInfo, err := cycles.Analyze(g, records)
	if err != nil {
		return err
	}
	decisions := classify.Classify(g, records, cycleInfo, entry.ID)
	decisionByModule := map[modgraph.ModuleID]classify.Decision{}
	for _, d := range decisions {
		decisionByModule[d.Module] = d
	}

	indexes := map[modgraph.ModuleID]*semindex.Index{}
	for _, m := range g.Modules() {
		idx, err := semindex.Build(m)
		if err != nil {
			return err
		}
		indexes[m.ID] = idx
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCompleter(func(in string) (c []string) {
		commands := []string{":help", ":quit", ":modules", ":classify", ":symbols", ":cycles", ":dump"}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, in) {
				c = append(c, cmd)
			}
		}
		return
	})

	fmt.Printf("%s %s\n", bold("pybundle inspect"), entryName)
	fmt.Println(dim("Type :help for commands, :quit to exit"))

	for {
		input, err := line.Prompt("pybundle> ")
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		switch fields[0] {
		case ":help":
			printInspectHelp()
		case ":quit", ":q":
			return nil
		case ":modules":
			listModules(g)
		case ":classify":
			listClassification(g, decisionByModule)
		case ":cycles":
			listCycles(g, cycleInfo)
		case ":symbols":
			if len(fields) < 2 {
				fmt.Println("usage: :symbols <dotted.module.name>")
				continue
			}
			printSymbols(g, indexes, fields[1])
		case ":dump":
			if len(fields) < 2 {
				fmt.Println("usage: :dump <dotted.module.name>")
				continue
			}
			dumpModule(g, indexes, fields[1])
		default:
			fmt.Printf("unknown command %q — try :help\n", fields[0])
		}
	}
}

func printInspectHelp() {
	fmt.Println("  :modules             list discovered modules in topological order")
	fmt.Println("  :classify            show each module's C7 decision (inlinable/wrapper)")
	fmt.Println("  :cycles              show SCCs and their C5 circular-dependency level")
	fmt.Println("  :symbols <module>     list a module's top-level bindings and exports")
	fmt.Println("  :dump <module>        deep-print the module's semantic index (go-spew)")
	fmt.Println("  :quit                 exit")
}

func listModules(g *modgraph.Graph) {
	for _, id := range g.TopoOrder() {
		m := g.ModuleByID(id)
		fmt.Printf("  %-4d %s\n", m.ID, m.DottedName)
	}
}

func listClassification(g *modgraph.Graph, decisions map[modgraph.ModuleID]classify.Decision) {
	for _, id := range g.TopoOrder() {
		m := g.ModuleByID(id)
		d, ok := decisions[id]
		if !ok {
			fmt.Printf("  %-30s entry\n", m.DottedName)
			continue
		}
		fmt.Printf("  %-30s %-10s %s\n", m.DottedName, d.Role, d.Reason)
	}
}

func listCycles(g *modgraph.Graph, cycleInfo []cycles.Classification) {
	if len(cycleInfo) == 0 {
		fmt.Println("  no cycles")
		return
	}
	for _, c := range cycleInfo {
		names := make([]string, 0, len(c.SCC.Members))
		for _, m := range c.SCC.Members {
			names = append(names, g.ModuleByID(m).DottedName)
		}
		sort.Strings(names)
		fmt.Printf("  [%s] %s\n", c.Level, strings.Join(names, ", "))
	}
}

func printSymbols(g *modgraph.Graph, indexes map[modgraph.ModuleID]*semindex.Index, dotted string) {
	m, ok := g.ModuleByName(dotted)
	if !ok {
		fmt.Printf("  no such module %q\n", dotted)
		return
	}
	idx := indexes[m.ID]
	for _, name := range idx.Order {
		b := idx.Bindings[name]
		fmt.Printf("  %-20s %s\n", name, bindKindString(b.Kind))
	}
	fmt.Printf("  exports: %s\n", strings.Join(idx.Exports, ", "))
}

func bindKindString(k semindex.BindingKind) string {
	switch k {
	case semindex.BindFunction:
		return "function"
	case semindex.BindClass:
		return "class"
	case semindex.BindImport:
		return "import"
	default:
		return "variable"
	}
}

func dumpModule(g *modgraph.Graph, indexes map[modgraph.ModuleID]*semindex.Index, dotted string) {
	m, ok := g.ModuleByName(dotted)
	if !ok {
		fmt.Printf("  no such module %q\n", dotted)
		return
	}
	spew.Dump(indexes[m.ID])
}
