// Package stdlib holds the standard-library module name sets the Import
// Classifier (C2) consults to tell first-party, stdlib, and third-party
// imports apart. Sets are parameterized by target Python version since the
// standard library's membership changes release to release (e.g.
// `distutils` removed in 3.12, `tomllib` added in 3.11).
package stdlib

// Version identifies a target Python release for classification purposes.
type Version string

const (
	Py38  Version = "3.8"
	Py39  Version = "3.9"
	Py310 Version = "3.10"
	Py311 Version = "3.11"
	Py312 Version = "3.12"
)

// baseline is the set of top-level stdlib module names common to every
// version this package knows about.
var baseline = []string{
	"abc", "argparse", "array", "ast", "asyncio", "base64", "bisect",
	"builtins", "calendar", "collections", "contextlib", "copy", "csv",
	"ctypes", "dataclasses", "datetime", "decimal", "difflib", "dis",
	"email", "enum", "errno", "functools", "gc", "getpass", "glob",
	"gzip", "hashlib", "heapq", "hmac", "html", "http", "importlib",
	"inspect", "io", "ipaddress", "itertools", "json", "keyword",
	"logging", "math", "mimetypes", "multiprocessing", "numbers",
	"operator", "os", "pathlib", "pickle", "platform", "pprint",
	"queue", "random", "re", "reprlib", "sched", "secrets", "select",
	"shlex", "shutil", "signal", "site", "socket", "socketserver",
	"sqlite3", "ssl", "stat", "statistics", "string", "struct",
	"subprocess", "sys", "sysconfig", "tempfile", "textwrap",
	"threading", "time", "timeit", "token", "tokenize", "trace",
	"traceback", "types", "typing", "unicodedata", "unittest",
	"urllib", "uuid", "venv", "warnings", "weakref", "xml", "zipfile",
	"zlib", "_thread", "_collections_abc", "__future__",
}

// added lists module names introduced in a given version.
var added = map[Version][]string{
	Py311: {"tomllib"},
}

// removed lists module names no longer part of a given version's stdlib.
var removed = map[Version][]string{
	Py312: {"distutils"},
}

var legacyOnly = []string{"distutils", "imp", "formatter"}

// ModuleSet returns the set of top-level stdlib module names for v as a
// lookup map. Unknown versions fall back to the baseline set plus every
// legacy-only name, which is the conservative choice for classification
// (treating an ambiguous import as stdlib rather than mis-flagging it
// third-party costs less than the reverse).
func ModuleSet(v Version) map[string]bool {
	names := map[string]bool{}
	for _, n := range baseline {
		names[n] = true
	}
	if _, known := added[v]; !known {
		if _, knownRemoved := removed[v]; !knownRemoved {
			for _, n := range legacyOnly {
				names[n] = true
			}
			return names
		}
	}
	for _, n := range legacyOnly {
		names[n] = true
	}
	for ver, extra := range added {
		if ver == v || versionAtLeast(v, ver) {
			for _, n := range extra {
				names[n] = true
			}
		}
	}
	for ver, gone := range removed {
		if versionAtLeast(v, ver) {
			for _, n := range gone {
				delete(names, n)
			}
		}
	}
	return names
}

var versionOrder = map[Version]int{
	Py38: 38, Py39: 39, Py310: 310, Py311: 311, Py312: 312,
}

func versionAtLeast(v, floor Version) bool {
	vi, ok1 := versionOrder[v]
	fi, ok2 := versionOrder[floor]
	if !ok1 || !ok2 {
		return false
	}
	return vi >= fi
}

// IsStdlib reports whether topLevel (the first dotted segment of an
// import, e.g. "os" from "os.path") names a standard-library module under
// target version v.
func IsStdlib(topLevel string, v Version) bool {
	return ModuleSet(v)[topLevel]
}
