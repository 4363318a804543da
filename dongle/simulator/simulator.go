// Package simulator replays wM-Bus frames from a text file instead of
// a radio, for testing and demonstration. It accepts any link-mode
// set, since nothing is actually being filtered by radio hardware.
package simulator

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/edding3000/wmbusmeters/dongle"
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	dongle.Register("simulator", func() dongle.Dongle { return New() })
}

// Driver is the file-replay dongle.Dongle and dongle.Simulator
// implementation.
type Driver struct {
	path string

	mu    sync.Mutex
	modes linkmode.Set
	cb    func(*telegram.Telegram)
}

func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "simulator" }

// Open just records the file path; frames aren't delivered until
// Simulate is called. (The serial drivers, by contrast, start their
// read loop inside Open.)
func (d *Driver) Open(path string) error {
	d.path = path
	return nil
}

// SetLinkModes always succeeds: a simulation file isn't constrained
// by any radio's simultaneous-mode capability.
func (d *Driver) SetLinkModes(modes linkmode.Set) error {
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

func (d *Driver) Close() error { return nil }

// Simulate reads the file line by line, in order, with no artificial
// delay, and delivers every `telegram=|HEX|` line. `#` introduces a
// comment, per spec.md §6.
func (d *Driver) Simulate() error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("simulator: open %s: %w", d.path, err)
	}
	defer f.Close()

	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "telegram=|") || !strings.HasSuffix(line, "|") {
			continue
		}

		hexStr := line[len("telegram=|") : len(line)-1]
		raw, err := hex.DecodeString(hexStr)
		if err != nil {
			continue
		}
		t, err := telegram.Parse(raw)
		if err != nil {
			continue
		}
		if cb != nil {
			cb(t)
		}
	}
	return scanner.Err()
}
