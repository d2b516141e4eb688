// Package discovery walks a Python source tree rooted at an entry script
// and turns it into the set of first-party module sources the rest of the
// pipeline operates on. It reads every file once, normalizing at the read
// boundary before anything downstream tokenizes it.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Source is one discovered first-party module: its dotted name, its
// filesystem path, and its normalized text.
type Source struct {
	DottedName string
	Path       string
	Text       string
	IsPackage  bool // true if Path is an __init__.py
}

// bomUTF8 is the UTF-8 byte order mark.
var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// normalize strips a UTF-8 BOM and applies NFC normalization so two
// byte-different-but-canonically-equal source files produce the same
// token stream.
func normalize(src []byte) []byte {
	if len(src) >= 3 && src[0] == bomUTF8[0] && src[1] == bomUTF8[1] && src[2] == bomUTF8[2] {
		src = src[3:]
	}
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}

// Discover walks root (the directory containing the entry script) and
// returns every `.py` file reachable from it as a Source, keyed by the
// dotted module name derived from its path relative to root. The entry
// script itself is always included, named "__main__"'s actual dotted
// name as derived from its own relative path (the bundler core decides
// which module is the entry point; discovery only supplies names).
func Discover(root string) ([]Source, error) {
	root = filepath.Clean(root)
	var out []Source
	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".py" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		dotted, isPkg, err := dottedNameForRelPath(rel)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("discovery: reading %s: %w", path, err)
		}
		out = append(out, Source{
			DottedName: dotted,
			Path:       path,
			Text:       string(normalize(raw)),
			IsPackage:  isPkg,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DottedName < out[j].DottedName })
	return out, nil
}

// dottedNameForRelPath derives the dotted module name a relative path
// `a/b/c.py` maps to: `a.b.c`. A file literally named `__init__.py` names
// its containing directory instead (`a/b/__init__.py` -> `a.b`) and is
// reported as a package.
func dottedNameForRelPath(rel string) (string, bool, error) {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	if base == "__init__.py" {
		dir := filepath.ToSlash(filepath.Dir(rel))
		if dir == "." {
			return "", true, fmt.Errorf("discovery: __init__.py at source root has no package name")
		}
		return strings.ReplaceAll(dir, "/", "."), true, nil
	}
	trimmed := strings.TrimSuffix(rel, ".py")
	return strings.ReplaceAll(trimmed, "/", "."), false, nil
}

// EntryDottedName reports the dotted name Discover assigned to the entry
// script, given the same root passed to Discover.
func EntryDottedName(root, entryPath string) (string, error) {
	rel, err := filepath.Rel(root, filepath.Clean(entryPath))
	if err != nil {
		return "", err
	}
	name, _, err := dottedNameForRelPath(rel)
	return name, err
}
