package dongle

import (
	"testing"

	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/telegram"
)

type fakeDongle struct {
	caps []linkmode.Set
}

func (f *fakeDongle) Open(string) error                   { return nil }
func (f *fakeDongle) SetLinkModes(linkmode.Set) error     { return nil }
func (f *fakeDongle) LinkModes() linkmode.Set             { return 0 }
func (f *fakeDongle) OnTelegram(func(*telegram.Telegram)) {}
func (f *fakeDongle) Close() error                        { return nil }
func (f *fakeDongle) Name() string                        { return "fake" }
func (f *fakeDongle) Capabilities() []linkmode.Set        { return f.caps }

func TestSupportsSubset(t *testing.T) {
	d := &fakeDongle{caps: []linkmode.Set{
		linkmode.Of(linkmode.C1),
		linkmode.Of(linkmode.T1),
		linkmode.Of(linkmode.C1, linkmode.T1),
	}}

	if !SupportsSubset(d, linkmode.Of(linkmode.C1)) {
		t.Fatal("C1 alone should be supported")
	}
	if !SupportsSubset(d, linkmode.Of(linkmode.C1, linkmode.T1)) {
		t.Fatal("C1+T1 should be supported as the published union")
	}
	if SupportsSubset(d, linkmode.Of(linkmode.S1)) {
		t.Fatal("S1 was never published as a capability")
	}
}

func TestSupportsSubsetEmptyCapabilitiesRejectsEverything(t *testing.T) {
	d := &fakeDongle{}
	if SupportsSubset(d, linkmode.Of(linkmode.N1a)) {
		t.Fatal("a driver publishing zero capability combos should accept nothing")
	}
}

func TestRegisterAndNew(t *testing.T) {
	Register("test-only-driver", func() Dongle { return &fakeDongle{} })

	d, err := New("test-only-driver")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name() != "fake" {
		t.Fatalf("Name() = %q", d.Name())
	}

	if _, err := New("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown driver")
	}

	found := false
	for _, n := range Names() {
		if n == "test-only-driver" {
			found = true
		}
	}
	if !found {
		t.Fatal("registered driver missing from Names()")
	}
}
