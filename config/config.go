// Package config parses the long-form CLI flags, the positional
// DEVICE/meter-quadruple arguments, and the on-disk config directory
// layout, the same separation the teacher's flags.go draws between
// RegisterFlags/HandleFlags/EnvOverride — just generalized from one
// flag set to a config-file-backed one.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/units"
)

// MeterSpec is one configured meter quadruple: `NAME TYPE[:MODES] ID KEY`.
type MeterSpec struct {
	Name  string
	Type  string
	Modes linkmode.Set // empty when no ":MODES" suffix was given; the family's LinkModes are not substituted
	ID    string
	Key   string // hex-decoded by the caller; empty means unencrypted
}

// Config is the fully resolved set of options, whatever their source
// (flags, environment, or config directory).
type Config struct {
	Version bool
	License bool
	Help    bool

	Daemon           bool
	UseConfig        string
	PIDFile          string
	LogFile          string
	LogTelegrams     bool
	Debug            bool
	Verbose          bool
	Silent           bool
	OneShot          bool
	ExitAfter        time.Duration
	Format           string
	Separator        string
	MeterFiles       string
	MeterFilesAction string
	Shell            []string
	ShellEnvs        bool
	AddConversion    []units.Unit
	ListenTo         linkmode.Set

	Device string
	Meters []MeterSpec
}

// RegisterFlags binds every spec.md §6 flag to fs and returns the
// Config they populate once fs.Parse has run.
func RegisterFlags(fs *flag.FlagSet) *Config {
	c := &Config{}

	fs.BoolVar(&c.Version, "version", false, "print version and exit")
	fs.BoolVar(&c.License, "license", false, "print license and exit")
	fs.BoolVar(&c.Help, "help", false, "print usage and exit")
	fs.BoolVar(&c.Daemon, "daemon", false, "log to syslog instead of stdout (the process does not fork into the background)")
	fs.StringVar(&c.UseConfig, "useconfig", "", "load device and meters from this config directory")
	fs.StringVar(&c.PIDFile, "pidfile", "", "accepted but unused: no pid file is written")
	fs.StringVar(&c.LogFile, "logfile", "", "write log output to this path instead of stdout")
	fs.BoolVar(&c.LogTelegrams, "logtelegrams", false, "accepted but unused: received telegrams are not logged")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug-level logging")
	fs.BoolVar(&c.Verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&c.Silent, "silent", false, "suppress all logging except errors")
	fs.BoolVar(&c.OneShot, "oneshot", false, "exit once every configured meter has had a successful update")
	fs.DurationVar(&c.ExitAfter, "exitafter", 0, "exit after this duration (suffixes s|m|h)")
	fs.StringVar(&c.Format, "format", "hr", "output format: hr, json, or fields")
	fs.StringVar(&c.Separator, "separator", ";", "field separator for --format=fields")
	fs.StringVar(&c.MeterFiles, "meterfiles", "", "write one file per meter into this directory")
	fs.StringVar(&c.MeterFilesAction, "meterfilesaction", "overwrite", "overwrite or append to meter files")
	fs.Var((*commaList)(&c.Shell), "shell", "shell command to run after each update, may repeat")
	fs.BoolVar(&c.ShellEnvs, "shellenvs", false, "print the METER_* environment variable names and exit")
	fs.Var((*unitList)(&c.AddConversion), "addconversion", "comma-separated extra units to emit alongside the canonical one")
	fs.Var((*linkModeFlag)(&c.ListenTo), "listento", "comma-separated link modes to listen for")

	for _, mode := range []struct {
		name string
		bit  linkmode.Mode
	}{
		{"c1", linkmode.C1}, {"t1", linkmode.T1}, {"s1", linkmode.S1},
	} {
		mode := mode
		fs.BoolFunc(mode.name, "equivalent to --listento="+mode.name, func(string) error {
			c.ListenTo = c.ListenTo.Union(linkmode.Of(mode.bit))
			return nil
		})
	}

	return c
}

// ParsePositional consumes the DEVICE and meter-quadruple positional
// arguments left over after flag.Parse.
func (c *Config) ParsePositional(args []string) error {
	if len(args) == 0 {
		return nil
	}
	c.Device = args[0]
	rest := args[1:]
	if len(rest)%4 != 0 {
		return fmt.Errorf("config: meter arguments must come in quadruples of NAME TYPE ID KEY, got %d extra values", len(rest))
	}
	for i := 0; i < len(rest); i += 4 {
		spec, err := parseQuadruple(rest[i], rest[i+1], rest[i+2], rest[i+3])
		if err != nil {
			return err
		}
		c.Meters = append(c.Meters, spec)
	}
	return nil
}

func parseQuadruple(name, typeAndModes, id, key string) (MeterSpec, error) {
	spec := MeterSpec{Name: name, ID: id, Key: key}
	parts := strings.SplitN(typeAndModes, ":", 2)
	spec.Type = parts[0]
	if len(parts) == 2 {
		modes, err := linkmode.Parse(parts[1])
		if err != nil {
			return spec, fmt.Errorf("config: meter %s: %w", name, err)
		}
		spec.Modes = modes
	}
	return spec, nil
}

// EnvOverride lets WMBUSMETERS_<FLAGNAME> environment variables
// override any flag's default or command-line value, exactly the
// teacher's RTLAMR_<FLAGNAME> convention in flags.go.
func EnvOverride(fs *flag.FlagSet) {
	fs.VisitAll(func(f *flag.Flag) {
		envName := "WMBUSMETERS_" + strings.ToUpper(f.Name)
		v := os.Getenv(envName)
		if v == "" {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			log.Printf("environment variable %q failed to override flag %q with value %q: %v", envName, f.Name, v, err)
		}
	})
}

// LoadConfigDir reads DIR/wmbusmeters.conf (flat key=value lines) and
// every meter quadruple file under DIR/etc/wmbusmeters.d/*, per
// spec.md §6's --useconfig layout. Values already set by flags or the
// environment are not overwritten; a value still equal to its flag
// default counts as not set.
func LoadConfigDir(dir string, c *Config) error {
	if err := loadMainFile(filepath.Join(dir, "wmbusmeters.conf"), c); err != nil && !os.IsNotExist(err) {
		return err
	}

	metersDir := filepath.Join(dir, "etc", "wmbusmeters.d")
	entries, err := os.ReadDir(metersDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		spec, err := loadMeterFile(filepath.Join(metersDir, e.Name()))
		if err != nil {
			return fmt.Errorf("config: %s: %w", e.Name(), err)
		}
		c.Meters = append(c.Meters, spec)
	}
	return nil
}

func loadMainFile(path string, c *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		applyMainKey(c, strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return scanner.Err()
}

func applyMainKey(c *Config, key, value string) {
	switch key {
	case "device":
		if c.Device == "" {
			c.Device = value
		}
	case "logfile":
		if c.LogFile == "" {
			c.LogFile = value
		}
	case "format":
		if c.Format == "" || c.Format == "hr" {
			c.Format = value
		}
	case "separator":
		c.Separator = value
	case "meterfiles":
		c.MeterFiles = value
	case "meterfilesaction":
		c.MeterFilesAction = value
	case "logtelegrams":
		c.LogTelegrams, _ = strconv.ParseBool(value)
	}
}

// loadMeterFile reads one `name type id key` quadruple, one field per
// line in that order — the config-directory equivalent of a
// command-line quadruple. Blank lines are skipped, so a blank or missing
// key line leaves three fields and means an empty (unencrypted) key.
func loadMeterFile(path string) (MeterSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return MeterSpec{}, err
	}
	defer f.Close()

	var fields []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields = append(fields, line)
	}
	if err := scanner.Err(); err != nil {
		return MeterSpec{}, err
	}
	if len(fields) == 3 {
		fields = append(fields, "")
	}
	if len(fields) != 4 {
		return MeterSpec{}, fmt.Errorf("expected 4 fields (name, type, id, key), got %d", len(fields))
	}
	return parseQuadruple(fields[0], fields[1], fields[2], fields[3])
}

// commaList is a flag.Value splitting a comma-separated string into
// []string.
type commaList []string

func (l *commaList) String() string { return strings.Join(*l, ",") }
func (l *commaList) Set(s string) error {
	*l = append(*l, strings.Split(s, ",")...)
	return nil
}

type unitList []units.Unit

func (l *unitList) String() string {
	strs := make([]string, len(*l))
	for i, u := range *l {
		strs[i] = string(u)
	}
	return strings.Join(strs, ",")
}

func (l *unitList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		*l = append(*l, units.Unit(strings.ToLower(part)))
	}
	return nil
}

type linkModeFlag linkmode.Set

func (m *linkModeFlag) String() string {
	return linkmode.Set(*m).HR()
}

func (m *linkModeFlag) Set(s string) error {
	set, err := linkmode.Parse(s)
	if err != nil {
		return err
	}
	*m = linkModeFlag(linkmode.Set(*m).Union(set))
	return nil
}
