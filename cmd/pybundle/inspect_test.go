package main

import (
	"testing"

	"github.com/pybundle/pybundle/internal/semindex"
)

func TestBindKindString(t *testing.T) {
	cases := []struct {
		kind semindex.BindingKind
		want string
	}{
		{semindex.BindFunction, "function"},
		{semindex.BindClass, "class"},
		{semindex.BindImport, "import"},
		{semindex.BindVariable, "variable"},
	}
	for _, c := range cases {
		if got := bindKindString(c.kind); got != c.want {
			t.Errorf("bindKindString(%v) = %q, want %q", c.kind, got, c.want)
		}
	}
}
