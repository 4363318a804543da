package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/edding3000/wmbusmeters/linkmode"
)

func TestParsePositional(t *testing.T) {
	c := &Config{}
	err := c.ParsePositional([]string{
		"auto",
		"mywater", "multical21:c1", "76348799", "",
		"myheat", "vario451", "12345678", "00112233445566778899AABBCCDDEEFF",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Device != "auto" {
		t.Fatalf("Device = %q", c.Device)
	}
	if len(c.Meters) != 2 {
		t.Fatalf("got %d meters, want 2", len(c.Meters))
	}
	if c.Meters[0].Modes != linkmode.Of(linkmode.C1) {
		t.Fatalf("Meters[0].Modes = %v", c.Meters[0].Modes)
	}
	if c.Meters[1].Key == "" {
		t.Fatal("Meters[1].Key should not be empty")
	}
}

func TestParsePositionalRejectsPartialQuadruple(t *testing.T) {
	c := &Config{}
	if err := c.ParsePositional([]string{"auto", "mywater", "multical21"}); err == nil {
		t.Fatal("expected an error for a non-multiple-of-4 argument count")
	}
}

func TestEnvOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := RegisterFlags(fs)

	os.Setenv("WMBUSMETERS_FORMAT", "json")
	defer os.Unsetenv("WMBUSMETERS_FORMAT")

	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	EnvOverride(fs)

	if c.Format != "json" {
		t.Fatalf("Format = %q, want json (from env override)", c.Format)
	}
}

func TestLoadConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wmbusmeters.conf"), []byte("device=auto\nformat=fields\n"), 0644); err != nil {
		t.Fatal(err)
	}
	metersDir := filepath.Join(dir, "etc", "wmbusmeters.d")
	if err := os.MkdirAll(metersDir, 0755); err != nil {
		t.Fatal(err)
	}
	meterFile := "mywater\nmulticall21:c1\n76348799\n\n"
	if err := os.WriteFile(filepath.Join(metersDir, "mywater"), []byte(meterFile), 0644); err != nil {
		t.Fatal(err)
	}

	c := &Config{}
	if err := LoadConfigDir(dir, c); err != nil {
		t.Fatal(err)
	}
	if c.Device != "auto" {
		t.Fatalf("Device = %q", c.Device)
	}
	if c.Format != "fields" {
		t.Fatalf("Format = %q", c.Format)
	}
	if len(c.Meters) != 1 || c.Meters[0].Name != "mywater" {
		t.Fatalf("Meters = %+v", c.Meters)
	}
}
