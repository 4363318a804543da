// Package families registers every cataloged meter family into
// package meter's catalog from its own init(), the Go translation of
// original_source/src/meters.h's LIST_OF_METERS X-macro: one entry per
// supported model, each naming its category, link mode, and decoder.
package families

import (
	"math"
	"strconv"
	"strings"

	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

// STS status bits, common to the water-meter family of decoders.
const (
	stsDry      byte = 1 << 0
	stsReversed byte = 1 << 1
	stsLeaking  byte = 1 << 2
	stsBursting byte = 1 << 3
)

// statusTokens renders STS bits in the fixed order spec.md §4.4
// requires: DRY, REVERSED, LEAKING, BURSTING.
func statusTokens(sts byte) []string {
	var tokens []string
	if sts&stsDry != 0 {
		tokens = append(tokens, "DRY")
	}
	if sts&stsReversed != 0 {
		tokens = append(tokens, "REVERSED")
	}
	if sts&stsLeaking != 0 {
		tokens = append(tokens, "LEAKING")
	}
	if sts&stsBursting != 0 {
		tokens = append(tokens, "BURSTING")
	}
	return tokens
}

// physical scales a record's raw value by its VIF's power-of-ten
// exponent to reach the record's native unit (m3, Wh, W, or degC).
func physical(r telegram.Record) float64 {
	return r.Value * math.Pow10(r.VifExponent)
}

func ptr(v float64) *float64 { return &v }

// vifCode recovers the record's raw VIF byte from its stable Key,
// needed to tell flow temperature (0x60-0x63) apart from external
// temperature (0x6C-0x6F): both decode to the same telegram.Unit.
func vifCode(r telegram.Record) byte {
	parts := strings.SplitN(r.Key, "_", 2)
	if len(parts) != 2 {
		return 0
	}
	v, err := strconv.ParseUint(parts[1], 16, 8)
	if err != nil {
		return 0
	}
	return byte(v)
}

const (
	vifFlowTempLo     = 0x60
	vifFlowTempHi     = 0x63
	vifExternalTempLo = 0x6C
	vifExternalTempHi = 0x6F
)

// current picks, among records sharing a VIF's Unit, the one that is
// "current" per spec.md §4.4: storage_nr=0, tariff=0, subunit=0.
func current(records []telegram.Record, unit telegram.Unit) (telegram.Record, bool) {
	for _, r := range records {
		if r.VifUnit == unit && r.StorageNr == 0 && r.Tariff == 0 && r.Subunit == 0 && r.DifFunction == telegram.FuncInstantaneous {
			return r, true
		}
	}
	return telegram.Record{}, false
}

// targetDate picks the highest-storage_nr record for unit, the "target
// date" reading per spec.md §4.4.
func targetDate(records []telegram.Record, unit telegram.Unit) (telegram.Record, bool) {
	var best telegram.Record
	found := false
	for _, r := range records {
		if r.VifUnit != unit || r.StorageNr == 0 {
			continue
		}
		if !found || r.StorageNr > best.StorageNr {
			best = r
			found = true
		}
	}
	return best, found
}

// maxOf picks the dif_function=max record for unit.
func maxOf(records []telegram.Record, unit telegram.Unit) (telegram.Record, bool) {
	for _, r := range records {
		if r.VifUnit == unit && r.DifFunction == telegram.FuncMax {
			return r, true
		}
	}
	return telegram.Record{}, false
}

// byAddress builds an IsForMe matching purely on the decoded address
// ID, the common case for every cataloged family — each meter's
// configured ID is the 8-digit decimal address, exactly as delivered
// by telegram.Telegram.AddressID.
func byAddress(info *meter.Info, t *telegram.Telegram) bool {
	return t.AddressID == info.ID
}
