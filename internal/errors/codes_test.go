package errors

import "testing"

func TestErrorRegistryCoversAllConstants(t *testing.T) {
	codes := []string{
		DSC001, DSC002, DSC003,
		PAR001, PAR002, PAR003, PAR004, PAR005,
		IMP001, IMP002, IMP003,
		CYC001,
		REN001,
		ASM001, ASM002,
	}
	for _, code := range codes {
		if _, ok := GetErrorInfo(code); !ok {
			t.Errorf("ErrorRegistry missing entry for %s", code)
		}
	}
}

func TestPhasePredicates(t *testing.T) {
	cases := []struct {
		code string
		pred func(string) bool
	}{
		{DSC001, IsDiscoveryError},
		{PAR001, IsParserError},
		{IMP001, IsImportError},
		{CYC001, IsCycleError},
		{REN001, IsRenameError},
		{ASM001, IsAssembleError},
	}
	for _, c := range cases {
		if !c.pred(c.code) {
			t.Errorf("expected %s to satisfy its phase predicate", c.code)
		}
	}
}

func TestPhasePredicatesRejectOtherPhases(t *testing.T) {
	if IsParserError(DSC001) {
		t.Error("DSC001 should not be a parser error")
	}
	if IsCycleError(IMP001) {
		t.Error("IMP001 should not be a cycle error")
	}
}

func TestUnknownCodeReturnsNotOK(t *testing.T) {
	if _, ok := GetErrorInfo("NOPE999"); ok {
		t.Error("expected unknown code to report not-found")
	}
}
