// Package crc implements the CRC-16 variant used by the wM-Bus wire
// envelope (dongle frame checks) and EN 13757-3 payload checks.
package crc

import "github.com/sigurn/crc16"

// EN13757 is the CRC-16 used both by the wM-Bus link layer frame (each
// dongle appends/strips its own copy) and by EN 13757-3 for the
// decrypted payload's leading check.
var EN13757 = crc16.Params{
	Poly: 0x3D65, Init: 0x0000, RefIn: false, RefOut: false, XorOut: 0xFFFF,
	Check: 0x4C06, Name: "CRC-16/EN-13757",
}

var table = crc16.MakeTable(EN13757)

// Checksum computes the EN 13757 CRC-16 over data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// Valid reports whether the two big-endian bytes at the end of data
// match the checksum of the bytes preceding them.
func Valid(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	body, want := data[:len(data)-2], data[len(data)-2:]
	got := Checksum(body)
	return byte(got>>8) == want[0] && byte(got) == want[1]
}

// Append computes the checksum of data and returns data with the two
// big-endian checksum bytes appended.
func Append(data []byte) []byte {
	sum := Checksum(data)
	return append(data, byte(sum>>8), byte(sum))
}
