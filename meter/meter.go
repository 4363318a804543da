// Package meter catalogs supported meter families and runs the
// per-meter dispatch pipeline: address match, decryption, decode,
// subscriber fan-out. The catalog itself is a closed table populated
// by each family package's init() — the Go translation of the
// original's LIST_OF_METERS X-macro (see original_source/src/meters.h)
// as data instead of generated case statements.
package meter

import (
	"fmt"
	"sync"
	"time"

	"github.com/edding3000/wmbusmeters/dongle"
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/logging"
	"github.com/edding3000/wmbusmeters/telegram"
	"github.com/edding3000/wmbusmeters/units"
)

// Category is the meter's physical quantity category, used to decide
// which JSON/fields columns apply.
type Category int

const (
	Water Category = iota
	Heat
	Electricity
	HeatCostAllocation
)

// Family is the closed-table entry for one supported meter model.
// is_for_me and decode are the capability-shaped contract spec.md §4.4
// and §9 describe in place of a virtual base class.
type Family struct {
	Name      string
	Category  Category
	LinkModes linkmode.Set
	Media     []byte // acceptable wM-Bus media codes

	IsForMe func(info *Info, t *telegram.Telegram) bool
	Decode  func(t *telegram.Telegram) (Reading, error)
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]Family)
)

// Register adds a family to the closed catalog. Called from each
// family package's init(), mirroring telegram dongle drivers'
// registration pattern.
func Register(f Family) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[f.Name]; dup {
		panic(fmt.Sprintf("meter: family already registered: %s", f.Name))
	}
	registry[f.Name] = f
}

// Lookup returns the registered family by wire name.
func Lookup(name string) (Family, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns every registered family name, for --help/usage text.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

// Info is the immutable identity of a configured meter (MeterInfo in
// spec.md §3).
type Info struct {
	Name               string
	Family             string
	ID                 string // 8-digit BCD address as ASCII
	Key                []byte // 16 bytes, or nil if unencrypted
	ExpectedLinkModes  linkmode.Set
	Shells             []string
	Conversions        []units.Unit
}

// Subscriber is called after a meter's state has been updated, in
// registration order — a plain sequential call list, not an observer
// pattern with detach semantics, per spec.md §9.
type Subscriber func(t *telegram.Telegram, m *Meter)

// Meter is a configured, running meter instance.
type Meter struct {
	Info   Info
	family Family
	dongle dongle.Dongle

	mu          sync.Mutex
	numUpdates  int
	lastUpdate  time.Time
	lastReading Reading
	subscribers []Subscriber
}

// New constructs a runtime Meter bound to a non-owning dongle
// reference, per spec.md §3 ownership: the dongle outlives and is
// shared by every meter; meters never close it.
func New(info Info, d dongle.Dongle) (*Meter, error) {
	fam, ok := Lookup(info.Family)
	if !ok {
		return nil, fmt.Errorf("meter: unknown family %q", info.Family)
	}
	return &Meter{Info: info, family: fam, dongle: d}, nil
}

// Family returns the meter's registered family.
func (m *Meter) Family() Family {
	return m.family
}

// OnUpdate registers a subscriber, called after every successful
// decode.
func (m *Meter) OnUpdate(s Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, s)
}

// NumUpdates returns the number of successful decodes so far.
func (m *Meter) NumUpdates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numUpdates
}

// LastUpdate returns the last successful decode's timestamp.
func (m *Meter) LastUpdate() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

// LastReading returns the most recently decoded Reading.
func (m *Meter) LastReading() Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReading
}

// IsForMe reports whether t addresses this meter.
func (m *Meter) IsForMe(t *telegram.Telegram) bool {
	if m.family.IsForMe != nil {
		return m.family.IsForMe(&m.Info, t)
	}
	return t.AddressID == m.Info.ID
}

// HandleTelegram runs the full per-meter pipeline for one telegram:
// address filter, decrypt if keyed, family decode, and — only on
// success (invariant I3) — state update and subscriber fan-out.
func (m *Meter) HandleTelegram(t *telegram.Telegram) error {
	if !m.IsForMe(t) {
		return nil
	}

	if t.Encrypted() {
		if len(m.Info.Key) == 0 {
			return fmt.Errorf("meter %s: telegram is encrypted but no key is configured", m.Info.Name)
		}
		if err := t.Decrypt(m.Info.Key); err != nil {
			logging.Debugf("(%s) decrypt failed: %v", m.Info.Name, err)
			return nil
		}
	}

	reading, err := m.family.Decode(t)
	if err != nil {
		logging.Debugf("(%s) decode failed: %v", m.Info.Name, err)
		return nil
	}

	m.mu.Lock()
	m.numUpdates++
	m.lastUpdate = time.Now()
	m.lastReading = reading
	subs := append([]Subscriber(nil), m.subscribers...)
	m.mu.Unlock()

	for _, s := range subs {
		s(t, m)
	}
	return nil
}
