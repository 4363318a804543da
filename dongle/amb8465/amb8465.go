// Package amb8465 drives the Amber Wireless AMB8465 wM-Bus module, a
// length-prefixed frame envelope over a serial line, narrower in
// link-mode capability than the IM871A.
package amb8465

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
	dongle.Register("amb8465", func() dongle.Dongle { return New() })
}

const (
	startByte byte = 0xFF

	cmdSetMode byte = 0x46
	cmdRxRadio byte = 0x3C
)

var envelopeTable = crc16.MakeTable(crc16.CRC16_EN_13757)

// the AMB8465 selects exactly one link mode at a time; it has no
// union capability like the IM871A.
var capabilities = []linkmode.Set{
	linkmode.Of(linkmode.C1),
	linkmode.Of(linkmode.T1),
	linkmode.Of(linkmode.S1),
}

// Driver is the AMB8465 dongle.Dongle implementation.
type Driver struct {
	port io.ReadWriteCloser

	mu    sync.Mutex
	modes linkmode.Set
	cb    func(*telegram.Telegram)
	stop  chan struct{}
}

func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "amb8465" }

func (d *Driver) Capabilities() []linkmode.Set { return capabilities }

func (d *Driver) Open(path string) error {
	options := serial.OpenOptions{
		PortName:        path,
		BaudRate:        9600,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("amb8465: open %s: %w", path, err)
	}
	d.port = port
	d.stop = make(chan struct{})
	go d.readLoop()
	return nil
}

func (d *Driver) SetLinkModes(modes linkmode.Set) error {
	if !dongle.SupportsSubset(d, modes) {
		return fmt.Errorf("amb8465: link modes %s not simultaneously supported", modes.HR())
	}
	if _, err := d.port.Write(buildFrame(cmdSetMode, []byte{byte(modes)})); err != nil {
		return fmt.Errorf("amb8465: set link modes: %w", err)
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

		payload, cmd, err := readFrame(r)
		if err != nil {
			return
		}
		if cmd != cmdRxRadio {
			continue
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

func buildFrame(cmd byte, payload []byte) []byte {
	body := append([]byte{cmd, byte(len(payload))}, payload...)
	crc := crc16.Checksum(body, envelopeTable)
	out := make([]byte, 0, len(body)+3)
	out = append(out, startByte)
	out = append(out, body...)
	out = append(out, byte(crc), byte(crc>>8))
	return out
}

// readFrame accumulates one CRC-valid envelope, dropping and
// resynchronizing on corrupt frames.
func readFrame(r *bufio.Reader) (payload []byte, cmd byte, err error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		if b != startByte {
			continue
		}

		header := make([]byte, 2)
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, 0, err
		}
		cmd, length := header[0], header[1]

		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, 0, err
		}
		crcBytes := make([]byte, 2)
		if _, err := io.ReadFull(r, crcBytes); err != nil {
			return nil, 0, err
		}

		want := uint16(crcBytes[0]) | uint16(crcBytes[1])<<8
		if crc16.Checksum(append(header, body...), envelopeTable) != want {
			continue
		}
		return body, cmd, nil
	}
}
