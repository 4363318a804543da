// Package im871a drives the IMST IM871A USB wM-Bus dongle: a
// length-prefixed HCI-style frame envelope over a serial line.
package im871a

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"
	"github.com/sigurn/crc16"

	"github.com/edding3000/wmbusmeters/dongle"
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	dongle.Register("im871a", func() dongle.Dongle { return New() })
}

const (
	startByte   byte = 0xA5
	endpointHCI byte = 0x01

	msgLinkModeReq byte = 0x01
	msgRxTelegram  byte = 0x03
)

// envelope crc covers endpoint|msgID|length|payload, EN13757's
// polynomial reused for the dongle-local wire envelope.
var envelopeTable = crc16.MakeTable(crc16.CRC16_EN_13757)

// capability combos the IM871A can listen to simultaneously, per
// the radio's firmware link-mode register.
var capabilities = []linkmode.Set{
	linkmode.Of(linkmode.C1),
	linkmode.Of(linkmode.T1),
	linkmode.Of(linkmode.S1),
	linkmode.Of(linkmode.C1, linkmode.T1),
}

// Driver is the IM871A dongle.Dongle implementation.
type Driver struct {
	port io.ReadWriteCloser

	mu        sync.Mutex
	modes     linkmode.Set
	cb        func(*telegram.Telegram)
	stop      chan struct{}
	readerErr error
}

// New constructs an unopened driver instance.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return "im871a" }

func (d *Driver) Capabilities() []linkmode.Set { return capabilities }

// Open opens the serial device and starts the read loop. It sends no
// identification request, so any port that opens is accepted; the
// returned error only reports a port that could not be opened.
func (d *Driver) Open(path string) error {
	options := serial.OpenOptions{
		PortName:        path,
		BaudRate:        57600,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("im871a: open %s: %w", path, err)
	}
	d.port = port
	d.stop = make(chan struct{})
	go d.readLoop()
	return nil
}

// SetLinkModes writes the link-mode configuration frame. modes must be
// a subset of one of Capabilities(), else the caller gets
// LinkModeUnsupported-shaped handling at the config layer.
func (d *Driver) SetLinkModes(modes linkmode.Set) error {
	if !dongle.SupportsSubset(d, modes) {
		return fmt.Errorf("im871a: link modes %s not simultaneously supported", modes.HR())
	}
	frame := buildFrame(msgLinkModeReq, []byte{byte(modes)})
	if _, err := d.port.Write(frame); err != nil {
		return fmt.Errorf("im871a: set link modes: %w", err)
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
	if d.port == nil {
		return nil
	}
	return d.port.Close()
}

func (d *Driver) readLoop() {
	r := bufio.NewReader(d.port)
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		payload, err := readFrame(r)
		if err != nil {
			d.mu.Lock()
			d.readerErr = err
			d.mu.Unlock()
			return
		}

		t, err := telegram.Parse(payload)
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

// buildFrame wraps payload in the start/endpoint/msgID/length/crc
// envelope the device expects on writes.
func buildFrame(msgID byte, payload []byte) []byte {
	body := append([]byte{endpointHCI, msgID, byte(len(payload))}, payload...)
	crc := crc16.Checksum(body, envelopeTable)
	out := make([]byte, 0, len(body)+3)
	out = append(out, startByte)
	out = append(out, body...)
	out = append(out, byte(crc), byte(crc>>8))
	return out
}

// readFrame blocks until one complete, CRC-valid envelope is
// accumulated and returns its inner wM-Bus frame bytes. Corrupt
// frames are dropped and the reader resynchronizes on the next
// start byte.
func readFrame(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != startByte {
			continue
		}

		header := make([]byte, 3)
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, err
		}
		msgID, length := header[1], header[2]
		if msgID != msgRxTelegram {
			if _, err := io.CopyN(io.Discard, r, int64(length)+2); err != nil {
				return nil, err
			}
			continue
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		crcBytes := make([]byte, 2)
		if _, err := io.ReadFull(r, crcBytes); err != nil {
			return nil, err
		}

		body := append(header, payload...)
		want := uint16(crcBytes[0]) | uint16(crcBytes[1])<<8
		if crc16.Checksum(body, envelopeTable) != want {
			continue // corrupt frame, dropped; resynchronize on next start byte.
		}
		return payload, nil
	}
}
