// Package dongle defines the common contract implemented by every
// supported radio dongle driver, and a closed registry of drivers that
// each driver package populates from its own init(), the same pattern
// the teacher uses to register wire-protocol parsers.
package dongle

import (
	"fmt"
	"sync"

	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/telegram"
)

// Dongle is the common driver contract from spec.md §4.2.
type Dongle interface {
	// Open opens the device at path. The drivers in this repository do
	// not check identification bytes; an error means the device could
	// not be opened or started.
	Open(path string) error

	// SetLinkModes writes the device-specific command sequence.
	// Implementations return a LinkModeUnsupported-shaped error if
	// modes is not a subset of any one of the dongle's simultaneously
	// supported combinations.
	SetLinkModes(modes linkmode.Set) error

	// LinkModes returns the link modes currently in effect.
	LinkModes() linkmode.Set

	// OnTelegram registers the callback invoked for every complete,
	// CRC-valid frame.
	OnTelegram(cb func(*telegram.Telegram))

	// Close releases the underlying I/O source.
	Close() error

	// Name identifies the driver, e.g. "im871a".
	Name() string
}

// Simulator is implemented only by the file-replay driver.
type Simulator interface {
	Dongle
	Simulate() error
}

// Capabilities returns the list of link-mode combinations the dongle
// can listen to simultaneously — e.g. IM871A publishes
// {C1},{T1},{S1},{C1∪T1}. SetLinkModes(requested) must succeed only if
// requested is a subset of at least one of these.
type Capabilities interface {
	Capabilities() []linkmode.Set
}

// SupportsSubset reports whether requested is a subset of at least one
// of the dongle's published simultaneously-supported combinations —
// the Open Question in spec.md §9 resolved as specified: never
// silently narrow, fail instead.
func SupportsSubset(d Dongle, requested linkmode.Set) bool {
	caps, ok := d.(Capabilities)
	if !ok {
		return true
	}
	for _, combo := range caps.Capabilities() {
		if requested.IsSubsetOf(combo) {
			return true
		}
	}
	return false
}

// NewFunc constructs a fresh, unopened driver instance.
type NewFunc func() Dongle

var (
	registryMu sync.Mutex
	registry   = make(map[string]NewFunc)
)

// Register adds a driver constructor to the catalog. Called from each
// driver package's init().
func Register(name string, fn NewFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("dongle: driver already registered: %s", name))
	}
	registry[name] = fn
}

// New constructs a fresh driver instance by registered name.
func New(name string) (Dongle, error) {
	registryMu.Lock()
	fn, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dongle: unknown driver %q", name)
	}
	return fn(), nil
}

// Names returns every registered driver name, used by device
// auto-detection to try each candidate in turn.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
