// Package rtlwmbus drives a plain RTL-SDR dongle by piping
// `rtl_sdr | rtl_wmbus`, the software-defined-radio path spec.md lists
// alongside the two dedicated wM-Bus USB sticks. rtl_wmbus prints one
// decoded frame per line as hex; CRC verification already happened
// inside that external process.
package rtlwmbus

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/edding3000/wmbusmeters/dongle"
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	dongle.Register("rtlwmbus", func() dongle.Dongle { return New() })
}

// any subset of T1, C1 and S1 is accepted: rtl_wmbus decodes whatever
// the command line asked rtl_sdr to tune and filter for. S1m and the N1
// modes are not accepted.
var capabilities = []linkmode.Set{
	linkmode.Of(linkmode.T1, linkmode.C1, linkmode.S1),
}

// Driver is the rtl_sdr|rtl_wmbus pipeline dongle.Dongle implementation.
type Driver struct {
	// Command, when set before Open, replaces the default
	// "rtl_sdr - | rtl_wmbus" pipeline with a shell command line.
	// Nothing in main sets it: the text after "rtlwmbus:" in the DEVICE
	// argument reaches Open as path, which ignores it.
	Command string
	// Freq, when set before Open, is passed to rtl_sdr as its -f
	// frequency argument. Like Command, it is not set from the DEVICE
	// argument.
	Freq string

	sdr  *exec.Cmd
	wmb  *exec.Cmd
	pipe io.ReadCloser

	mu    sync.Mutex
	modes linkmode.Set
	cb    func(*telegram.Telegram)
	stop  chan struct{}
}

func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "rtlwmbus" }

func (d *Driver) Capabilities() []linkmode.Set { return capabilities }

// Open ignores path (rtl_sdr addresses the first USB RTL-SDR device by
// default) and starts the external pipeline.
func (d *Driver) Open(path string) error {
	if d.Command != "" {
		d.sdr = exec.Command("sh", "-c", d.Command)
	} else {
		sdrArgs := []string{"-"}
		if d.Freq != "" {
			sdrArgs = append([]string{"-f", d.Freq}, sdrArgs...)
		}
		d.sdr = exec.Command("rtl_sdr", sdrArgs...)
		d.wmb = exec.Command("rtl_wmbus")
	}

	var stdout io.ReadCloser
	var err error
	if d.wmb != nil {
		d.wmb.Stdin, err = d.sdr.StdoutPipe()
		if err != nil {
			return fmt.Errorf("rtlwmbus: pipe rtl_sdr to rtl_wmbus: %w", err)
		}
		stdout, err = d.wmb.StdoutPipe()
		if err != nil {
			return fmt.Errorf("rtlwmbus: rtl_wmbus stdout: %w", err)
		}
		if err := d.sdr.Start(); err != nil {
			return fmt.Errorf("rtlwmbus: start rtl_sdr: %w", err)
		}
		if err := d.wmb.Start(); err != nil {
			return fmt.Errorf("rtlwmbus: start rtl_wmbus: %w", err)
		}
	} else {
		stdout, err = d.sdr.StdoutPipe()
		if err != nil {
			return fmt.Errorf("rtlwmbus: pipeline stdout: %w", err)
		}
		if err := d.sdr.Start(); err != nil {
			return fmt.Errorf("rtlwmbus: start pipeline: %w", err)
		}
	}

	d.pipe = stdout
	d.stop = make(chan struct{})
	go d.readLoop()
	return nil
}

// SetLinkModes is advisory only here: the actual filtering happens in
// the external process's own arguments, which rtlwmbus does not
// control once started. Requests outside Capabilities() still fail
// fast rather than being silently accepted.
func (d *Driver) SetLinkModes(modes linkmode.Set) error {
	if !dongle.SupportsSubset(d, modes) {
		return fmt.Errorf("rtlwmbus: link modes %s not supported by this pipeline", modes.HR())
	}
	d.mu.Lock()
	d.modes = modes
	d.mu.Unlock()
	return nil
}

func (d *Driver) LinkModes() linkmode.Set {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modes
}

func (d *Driver) OnTelegram(cb func(*telegram.Telegram)) {
	d.mu.Lock()
	d.cb = cb
	d.mu.Unlock()
}

func (d *Driver) Close() error {
	if d.stop != nil {
		close(d.stop)
	}
	if d.wmb != nil && d.wmb.Process != nil {
		d.wmb.Process.Kill()
	}
	if d.sdr != nil && d.sdr.Process != nil {
		d.sdr.Process.Kill()
	}
	return nil
}

func (d *Driver) readLoop() {
	scanner := bufio.NewScanner(d.pipe)
	for scanner.Scan() {
		select {
		case <-d.stop:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		raw, err := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
		if err != nil {
			continue
		}
		t, err := telegram.Parse(raw)
		if err != nil {
			continue
		}

		d.mu.Lock()
		cb := d.cb
		d.mu.Unlock()
		if cb != nil {
			cb(t)
		}
	}
}
