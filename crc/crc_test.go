package crc

import (
	"bytes"
	crand "crypto/rand"
	"testing"
)

func TestCheck(t *testing.T) {
	check := []byte{
		'1', '2', '3', '4', '5', '6', '7', '8', '9',
	}
	if got := Checksum(check); got != EN13757.Check {
		t.Fatalf("Checksum(%q) = 0x%04X, want 0x%04X", check, got, EN13757.Check)
	}
}

func TestAppendValid(t *testing.T) {
	for trial := 0; trial < 64; trial++ {
		length := 8 + trial
		buf := make([]byte, length)
		crand.Read(buf)

		framed := Append(bytes.Clone(buf))
		if !Valid(framed) {
			t.Fatalf("Valid(Append(%02X)) = false, want true", buf)
		}

		framed[0] ^= 0xFF
		if Valid(framed) {
			t.Fatalf("Valid(%02X) with corrupted lead byte = true, want false", framed)
		}
	}
}

func TestValidShort(t *testing.T) {
	if Valid([]byte{0x01}) {
		t.Fatal("Valid of a single byte should be false")
	}
}
