// Package semindex builds the Semantic Index: per-module symbol tables
// recording what each module binds at top level, its statically evaluated
// `__all__` export list (if any), and which items read which names — the
// table the side-effect detector, the tree shaker, and the symbol renamer
// all query instead of re-walking the AST.
package semindex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/schema"
)

// BindingKind classifies how a top-level name came to exist.
type BindingKind int

const (
	BindFunction BindingKind = iota
	BindClass
	BindVariable
	BindImport
)

// Binding is one name bound at module scope.
type Binding struct {
	Name string
	Kind BindingKind
	Item *modgraph.Item // the item whose execution (re)binds this name
}

// Index is one module's semantic index.
type Index struct {
	Module *modgraph.Module

	// Bindings maps a name to its last top-level definition — Python
	// rebinding semantics mean a later `def f` or assignment shadows an
	// earlier one; only the last one is live at module-exit time.
	Bindings map[string]*Binding

	// Order lists every bound name in first-definition order, for
	// deterministic iteration regardless of map order.
	Order []string

	// Exports is the module's public surface: the statically evaluated
	// `__all__` list if present, else every top-level name not starting
	// with `_`.
	Exports []string

	// HasExplicitAll records whether `__all__` was present and fully
	// statically evaluable.
	HasExplicitAll bool

	// References maps a name to the items (by ID) that read it at module
	// level — the seed set C6's mark-and-sweep pass starts seed
	// expansion from.
	References map[string][]modgraph.ItemID
}

// Build constructs the semantic index for one module. m.Items must already
// be populated (modgraph.BuildItems).
func Build(m *modgraph.Module) (*Index, error) {
	idx := &Index{
		Module:     m,
		Bindings:   map[string]*Binding{},
		References: map[string][]modgraph.ItemID{},
	}

	for _, item := range m.Items {
		kind, names := bindingKindAndNames(item.Stmt)
		for _, name := range names {
			if _, exists := idx.Bindings[name]; !exists {
				idx.Order = append(idx.Order, name)
			}
			idx.Bindings[name] = &Binding{Name: name, Kind: kind, Item: item}
		}
		for _, read := range item.Reads {
			idx.References[read] = append(idx.References[read], item.ID)
		}
	}

	exports, explicit, err := evalDunderAll(m, idx)
	if err != nil {
		return nil, err
	}
	idx.HasExplicitAll = explicit
	if explicit {
		idx.Exports = exports
	} else {
		idx.Exports = publicNames(idx.Order)
	}
	return idx, nil
}

func bindingKindAndNames(s pyast.Stmt) (BindingKind, []string) {
	switch st := s.(type) {
	case *pyast.FunctionDef:
		return BindFunction, []string{st.Name}
	case *pyast.ClassDef:
		return BindClass, []string{st.Name}
	case *pyast.Import, *pyast.ImportFrom:
		return BindImport, modgraph.TopLevelDefines(s)
	default:
		return BindVariable, modgraph.TopLevelDefines(s)
	}
}

func publicNames(order []string) []string {
	var out []string
	for _, n := range order {
		if !strings.HasPrefix(n, "_") {
			out = append(out, n)
		}
	}
	return out
}

// evalDunderAll looks for a top-level `__all__ = [...]`/`(...)` assignment
// built entirely from string-literal elements (with optional `+=` list
// extension by further literal-list items), and statically evaluates it.
// Anything more dynamic (a computed list, a name reference, a comprehension)
// cannot be evaluated without running the module, so C3 reports IMP002
// (AmbiguousExport) per spec's reject-on-ambiguity stance rather than
// guessing.
func evalDunderAll(m *modgraph.Module, idx *Index) ([]string, bool, error) {
	var collected []string
	found := false
	for _, item := range m.Items {
		names, ok, err := dunderAllElements(item.Stmt)
		if err != nil {
			return nil, false, ambiguousExport(m, err.Error())
		}
		if !ok {
			continue
		}
		found = true
		collected = append(collected, names...)
	}
	if !found {
		return nil, false, nil
	}
	sort.Strings(collected)
	collected = dedupe(collected)
	return collected, true, nil
}

// dunderAllElements inspects one statement; if it assigns or augments
// `__all__` with a literal list/tuple of string constants it returns those
// names and ok=true. A non-`__all__` statement returns ok=false with no
// error. A `__all__` statement built from anything else returns an error
// describing why it couldn't be evaluated.
func dunderAllElements(s pyast.Stmt) ([]string, bool, error) {
	var value pyast.Expr
	switch st := s.(type) {
	case *pyast.Assign:
		if len(st.Targets) != 1 {
			return nil, false, nil
		}
		name, ok := st.Targets[0].(*pyast.Name)
		if !ok || name.Id != "__all__" {
			return nil, false, nil
		}
		value = st.Value
	case *pyast.AugAssign:
		name, ok := st.Target.(*pyast.Name)
		if !ok || name.Id != "__all__" {
			return nil, false, nil
		}
		value = st.Value
	case *pyast.ExprStmt:
		call, ok := st.Value.(*pyast.Call)
		if !ok {
			return nil, false, nil
		}
		attr, ok := call.Func.(*pyast.Attribute)
		if !ok {
			return nil, false, nil
		}
		name, ok := attr.Value.(*pyast.Name)
		if !ok || name.Id != "__all__" {
			return nil, false, nil
		}
		switch attr.Attr {
		case "append":
			if len(call.Args) != 1 {
				return nil, true, fmt.Errorf("__all__.append() must take exactly one string literal argument")
			}
			c, ok := call.Args[0].(*pyast.Constant)
			if !ok || c.Kind != pyast.ConstString {
				return nil, true, fmt.Errorf("__all__.append() argument is not a string literal")
			}
			return []string{c.Value}, true, nil
		case "extend":
			if len(call.Args) != 1 {
				return nil, true, fmt.Errorf("__all__.extend() must take exactly one literal list or tuple argument")
			}
			elts, err := literalElements(call.Args[0])
			if err != nil {
				return nil, true, err
			}
			return elts, true, nil
		default:
			return nil, false, nil
		}
	default:
		return nil, false, nil
	}
	elts, err := literalElements(value)
	if err != nil {
		return nil, true, err
	}
	return elts, true, nil
}

func literalElements(e pyast.Expr) ([]string, error) {
	var elts []pyast.Expr
	switch v := e.(type) {
	case *pyast.List:
		elts = v.Elts
	case *pyast.Tuple:
		elts = v.Elts
	default:
		return nil, fmt.Errorf("__all__ must be a literal list or tuple, not %T", e)
	}
	var out []string
	for _, el := range elts {
		c, ok := el.(*pyast.Constant)
		if !ok || c.Kind != pyast.ConstString {
			return nil, fmt.Errorf("__all__ element is not a string literal")
		}
		out = append(out, c.Value)
	}
	return out, nil
}

func dedupe(ss []string) []string {
	out := ss[:0]
	var last string
	for i, s := range ss {
		if i == 0 || s != last {
			out = append(out, s)
			last = s
		}
	}
	return out
}

func ambiguousExport(m *modgraph.Module, reason string) error {
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.IMP002,
		Phase:   "imports",
		Message: fmt.Sprintf("module %q declares __all__ that cannot be evaluated statically: %s", m.DottedName, reason),
	})
}
