// Package serialmgr runs the single select-style event loop that owns
// a dongle's telegram stream, the exit timer, and the global stop
// signal — the same shape as the teacher's Receiver.Run, generalized
// from one sigint channel to a registered source list and a cancel
// primitive that is safe to call more than once.
package serialmgr

import (
	"sync"
	"time"

	"github.com/edding3000/wmbusmeters/dongle"
	"github.com/edding3000/wmbusmeters/logging"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

// Manager owns one dongle and every meter registered against it,
// and serializes all telegram dispatch onto a single goroutine: the
// dongle's own read loop runs on its goroutine but only ever hands
// off decoded telegrams through a channel, never touching meter state
// directly, matching spec.md §4.3's "no meter state read or written
// off this thread" invariant.
type Manager struct {
	dongle dongle.Dongle
	meters []*meter.Meter

	telegrams chan *telegram.Telegram

	stopOnce sync.Once
	stop     chan struct{}
	stopped  chan struct{}
	ready    chan struct{}

	exitAfter time.Duration
	oneShot   bool
	updated   map[*meter.Meter]bool
}

// New constructs a Manager bound to d. d must already be open and
// link-mode configured.
func New(d dongle.Dongle) *Manager {
	m := &Manager{
		dongle:    d,
		telegrams: make(chan *telegram.Telegram, 64),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
		ready:     make(chan struct{}),
		updated:   make(map[*meter.Meter]bool),
	}
	return m
}

// Ready is closed once Run has registered its telegram callback with
// the dongle, so a caller driving a simulator dongle from another
// goroutine knows it's safe to start feeding frames.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Register adds a meter to the dispatch list. Must be called before
// Run.
func (m *Manager) Register(mtr *meter.Meter) {
	m.meters = append(m.meters, mtr)
}

// ScheduleExitAfter arms the exit timer: Run returns cleanly once d
// has elapsed, the --exitafter flag's effect.
func (m *Manager) ScheduleExitAfter(d time.Duration) {
	m.exitAfter = d
}

// OneShot, when set before Run, stops the loop once every registered
// meter has received at least one successful update, per spec.md §8's
// invariant 2 — one meter updating twice does not satisfy this for a
// sibling meter that hasn't updated yet.
func (m *Manager) OneShot(v bool) {
	m.oneShot = v
}

// Stop is the only cancellation primitive. It is idempotent and wakes
// the loop if it's blocked waiting for a telegram or the exit timer.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// WaitForStop blocks until Run has returned and every in-flight
// telegram has finished dispatching.
func (m *Manager) WaitForStop() {
	<-m.stopped
}

// Run is the event loop. It registers the dongle's telegram callback,
// then blocks dispatching telegrams to every registered meter until
// Stop is called, the exit timer fires, or (in one-shot mode) every
// registered meter has updated at least once.
func (m *Manager) Run() error {
	defer close(m.stopped)

	m.dongle.OnTelegram(func(t *telegram.Telegram) {
		select {
		case m.telegrams <- t:
		case <-m.stop:
		}
	})
	close(m.ready)

	var timer <-chan time.Time
	if m.exitAfter > 0 {
		timer = time.After(m.exitAfter)
	}

	for {
		select {
		case <-m.stop:
			return nil
		case <-timer:
			return nil
		case t, ok := <-m.telegrams:
			if !ok {
				return nil
			}
			m.dispatch(t)
		}
	}
}

// dispatch runs every meter's handler sequentially on the loop
// goroutine, logging per-meter failures without aborting the batch.
// In one-shot mode, Stop is only called once every registered meter
// has updated at least once, not on the first meter to do so.
func (m *Manager) dispatch(t *telegram.Telegram) {
	for _, mtr := range m.meters {
		before := mtr.NumUpdates()
		if err := mtr.HandleTelegram(t); err != nil {
			logging.Debugf("serialmgr: meter %s: %v", mtr.Info.Name, err)
			continue
		}
		if mtr.NumUpdates() > before {
			m.updated[mtr] = true
		}
	}

	if m.oneShot && len(m.meters) > 0 && m.allUpdated() {
		m.Stop()
	}
}

func (m *Manager) allUpdated() bool {
	for _, mtr := range m.meters {
		if !m.updated[mtr] {
			return false
		}
	}
	return true
}
