package telegram

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"
)

func encodeManufacturer(c1, c2, c3 byte) (lo, hi byte) {
	v := uint16(c1-'A'+1)<<10 | uint16(c2-'A'+1)<<5 | uint16(c3-'A'+1)
	return byte(v), byte(v >> 8)
}

func TestDecodeManufacturerRoundTrip(t *testing.T) {
	lo, hi := encodeManufacturer('K', 'A', 'M')
	if got := decodeManufacturer(lo, hi); got != "KAM" {
		t.Fatalf("decodeManufacturer = %q, want KAM", got)
	}
}

func TestDecodeBCDAddress(t *testing.T) {
	// 76348799 encoded LSB-first BCD: byte0=0x99 byte1=0x87 byte2=0x34 byte3=0x76
	if got := decodeBCDAddress([]byte{0x99, 0x87, 0x34, 0x76}); got != "76348799" {
		t.Fatalf("decodeBCDAddress = %q, want 76348799", got)
	}
}

func buildHeader(ci byte) []byte {
	lo, hi := encodeManufacturer('K', 'A', 'M')
	raw := []byte{
		0x00,       // L, filled in by caller
		0x44,       // C
		lo, hi,     // M
		0x99, 0x87, 0x34, 0x76, // A id
		0x1B, // version
		0x16, // media
		ci,   // CI
	}
	return raw
}

func TestParseUnencryptedNoHeader(t *testing.T) {
	raw := buildHeader(ciNoHeader)
	// one record: DIF=0x04 (32-bit int, instantaneous), VIF=0x13 (volume m3*10^-3), value=1234
	raw = append(raw, 0x04, 0x13, 0xD2, 0x04, 0x00, 0x00)
	raw[0] = byte(len(raw) - 1)

	tg, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if tg.Manufacturer != "KAM" {
		t.Fatalf("Manufacturer = %q", tg.Manufacturer)
	}
	if tg.AddressID != "76348799" {
		t.Fatalf("AddressID = %q", tg.AddressID)
	}
	if tg.Encrypted() {
		t.Fatal("telegram should not be marked encrypted")
	}
	if len(tg.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(tg.Records))
	}
	r := tg.Records[0]
	if r.VifUnit != UnitVolumeM3 {
		t.Fatalf("VifUnit = %v, want UnitVolumeM3", r.VifUnit)
	}
	if r.Value != 1234 {
		t.Fatalf("Value = %v, want 1234", r.Value)
	}
	if r.VifExponent != -3 {
		t.Fatalf("VifExponent = %v, want -3", r.VifExponent)
	}
	if r.Key != "04_13" {
		t.Fatalf("Key = %q, want 04_13", r.Key)
	}
}

func TestParseShortHeaderAESCTR(t *testing.T) {
	raw := buildHeader(ciShortHeader)
	acc := byte(0x2A)
	cfgLo, cfgHi := byte(0x00), byte(0x70) // mode 7 = AES-CTR in bits 12-15
	raw = append(raw, acc, 0x00, cfgLo, cfgHi)

	plain := []byte{0x04, 0x13, 0x64, 0x00, 0x00, 0x00} // volume = 100
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv[0:2], raw[2:4])
	copy(iv[2:8], raw[4:10])
	for i := 8; i < aes.BlockSize; i++ {
		iv[i] = acc
	}
	ciphertext := make([]byte, len(plain))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, plain)

	raw = append(raw, ciphertext...)
	raw[0] = byte(len(raw) - 1)

	tg, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !tg.Encrypted() {
		t.Fatal("expected telegram to be marked encrypted")
	}

	if err := tg.Decrypt(key); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if len(tg.Records) != 1 || tg.Records[0].Value != 100 {
		t.Fatalf("Records = %+v, want single record with value 100", tg.Records)
	}

	wrongKey := make([]byte, 16)
	tg2, _ := Parse(raw)
	if err := tg2.Decrypt(wrongKey); err == nil {
		t.Fatal("expected DecryptFailed-shaped error with wrong key")
	}
}

func TestDecodeRecordsBCD(t *testing.T) {
	// DIF=0x0C (8-digit BCD, instantaneous), VIF=0x06 (energy Wh*10^3), BCD 00001234 -> 1234
	payload := []byte{0x0C, 0x06, 0x34, 0x12, 0x00, 0x00}
	recs, err := DecodeRecords(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Value != 1234 {
		t.Fatalf("Value = %v, want 1234", recs[0].Value)
	}
	if recs[0].VifUnit != UnitEnergyWh || recs[0].VifExponent != 3 {
		t.Fatalf("unit/exp = %v/%d", recs[0].VifUnit, recs[0].VifExponent)
	}
}

func TestDecodeRecordsUnknownVIFKeptRaw(t *testing.T) {
	// VIF 0x7E isn't in our recognized table; still parsed, key preserved.
	payload := []byte{0x01, 0x7E, 0x05}
	recs, err := DecodeRecords(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].VifUnit != UnitUnknown {
		t.Fatalf("expected one unknown-unit record, got %+v", recs)
	}
	if recs[0].Key != "01_7E" {
		t.Fatalf("Key = %q", recs[0].Key)
	}
}

func TestIdempotentReparse(t *testing.T) {
	raw := buildHeader(ciNoHeader)
	raw = append(raw, 0x04, 0x13, 0xD2, 0x04, 0x00, 0x00)
	raw[0] = byte(len(raw) - 1)

	a, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if a.AddressID != b.AddressID || a.Records[0].Value != b.Records[0].Value {
		t.Fatal("re-parsing an identical frame produced different records")
	}
}
