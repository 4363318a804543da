package linkmode

import "testing"

func TestParseHR(t *testing.T) {
	s, err := Parse("c1,t1")
	if err != nil {
		t.Fatal(err)
	}
	if !s.Has(C1) || !s.Has(T1) || s.Has(S1) {
		t.Fatalf("Parse(c1,t1) = %v", s.HR())
	}
	if got, want := s.HR(), "t1,c1"; got != want {
		t.Fatalf("HR() = %q, want %q", got, want)
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("c1,bogus"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSubset(t *testing.T) {
	dongle := Of(C1, T1)
	configured := Of(C1)
	if !configured.IsSubsetOf(dongle) {
		t.Fatal("expected configured to be a subset of dongle")
	}
	configured = Of(C1, S1)
	if configured.IsSubsetOf(dongle) {
		t.Fatal("expected configured not to be a subset of dongle")
	}
}

func TestUnionNeverNarrows(t *testing.T) {
	a := Of(C1)
	b := Of(T1)
	u := a.Union(b)
	if !a.IsSubsetOf(u) || !b.IsSubsetOf(u) {
		t.Fatal("union narrowed a set")
	}
}
