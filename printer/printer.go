// Package printer formats a decoded Reading for the three selectable
// output formats and fans it out to the configured sinks: stdout or a
// logfile, a per-meter file, and user-supplied shell hooks. Field
// values for the delimited "fields" format reuse the teacher's csv
// package, repointed at a configurable separator instead of a fixed
// comma.
package printer

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/edding3000/wmbusmeters/logging"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/units"
)

// Format selects the rendering of a reading.
type Format int

const (
	FormatHR Format = iota
	FormatFields
	FormatJSON
)

// MeterFilesAction controls how the per-meter file sink is written.
type MeterFilesAction int

const (
	Overwrite MeterFilesAction = iota
	Append
)

// Config is the immutable set of output options built from the CLI
// flags described in spec.md §6.
type Config struct {
	Format           Format
	Separator        rune
	Out              io.Writer // stdout or the opened logfile
	MeterFilesDir    string
	MeterFilesAction MeterFilesAction
	ShellEnvs        bool
}

// Printer renders and dispatches readings to every configured sink.
type Printer struct {
	cfg Config
}

// New constructs a Printer. A zero Config prints human-readable lines
// to stdout with no per-meter files or shells.
func New(cfg Config) *Printer {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Separator == 0 {
		cfg.Separator = ';'
	}
	return &Printer{cfg: cfg}
}

// record is one schema field: key plus a value already stringified
// for fields/env use, tagged with whether it renders bare (numeric) or
// quoted (string) in JSON.
type record struct {
	key     string
	value   string
	numeric bool
	unit    units.Unit // zero value means "not convertible"
}

// Emit renders reading for info/fam and writes it to every configured
// sink. Each sink failure is logged and does not prevent the others
// from running, per spec.md §4.5's best-effort fan-out.
func (p *Printer) Emit(info meter.Info, fam meter.Family, reading meter.Reading) error {
	recs := buildRecords(info, fam, reading, time.Now())
	recs = appendConversions(recs, info.Conversions)

	rendered := p.render(fam, recs)

	if _, err := fmt.Fprintln(p.cfg.Out, rendered); err != nil {
		logging.Warningf("printer: stdout sink: %v", err)
	}

	if p.cfg.MeterFilesDir != "" {
		if err := p.writeMeterFile(info.Name, rendered); err != nil {
			logging.Warningf("printer: meter file sink (%s): %v", info.Name, err)
		}
	}

	for _, cmdline := range info.Shells {
		if err := p.runShell(cmdline, envBag(recs)); err != nil {
			logging.Warningf("printer: shell sink %q: %v", cmdline, err)
		}
	}

	return nil
}

func (p *Printer) render(fam meter.Family, recs []record) string {
	switch p.cfg.Format {
	case FormatFields:
		return renderFields(recs, p.cfg.Separator)
	case FormatJSON:
		return renderJSON(recs)
	default:
		return renderHR(fam, recs)
	}
}

func (p *Printer) writeMeterFile(name, line string) error {
	path := p.cfg.MeterFilesDir + "/" + name
	flags := os.O_CREATE | os.O_WRONLY
	if p.cfg.MeterFilesAction == Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}

// runShell forks+execs cmdline with the reading's env bag. A nonzero
// exit is logged, not treated as fatal, per spec.md §4.5.
func (p *Printer) runShell(cmdline string, env []string) error {
	parts := strings.Fields(cmdline)
	if len(parts) == 0 {
		return nil
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Env = append(os.Environ(), env...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("exit: %w", err)
	}
	return nil
}

// EnvVarNames lists every METER_<FIELD> variable name the --shellenvs
// flag prints, built from the full schema regardless of which fields a
// particular reading would populate.
func EnvVarNames() []string {
	names := []string{"METER_jsonname", "METER_name", "METER_id"}
	for _, key := range schemaOrder {
		names = append(names, "METER_"+strings.ToUpper(key))
	}
	return names
}

func envBag(recs []record) []string {
	env := make([]string, 0, len(recs)+3)
	env = append(env, "METER_jsonname="+renderJSON(recs))
	for _, r := range recs {
		switch r.key {
		case "name":
			env = append(env, "METER_name="+r.value)
		case "id":
			env = append(env, "METER_id="+r.value)
		}
	}
	for _, r := range recs {
		env = append(env, "METER_"+strings.ToUpper(r.key)+"="+r.value)
	}
	return env
}

func f64str(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
