package families

import (
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	meter.Register(meter.Family{
		Name:      "multical21",
		Category:  meter.Water,
		LinkModes: linkmode.Of(linkmode.C1),
		Media:     []byte{0x16, 0x06}, // cold water, warm water
		IsForMe:   byAddress,
		Decode:    decodeMulticalLike,
	})
}

// decodeMulticalLike is grounded on original_source/src/meters.h's
// LIST_OF_METERS, which maps both multical21 and flowiq3100 to the
// same C++ Multical21 class: total/target volume, max flow, flow and
// external temperature, and the four STS leak/tamper bits.
func decodeMulticalLike(t *telegram.Telegram) (meter.Reading, error) {
	var r meter.Reading
	r.Media = "water"

	if rec, ok := current(t.Records, telegram.UnitVolumeM3); ok {
		r.TotalM3 = ptr(physical(rec))
	}
	if rec, ok := targetDate(t.Records, telegram.UnitVolumeM3); ok {
		r.TargetM3 = ptr(physical(rec))
	}
	if rec, ok := maxOf(t.Records, telegram.UnitFlowM3H); ok {
		r.MaxFlowM3H = ptr(physical(rec))
	}
	for _, rec := range t.Records {
		if rec.VifUnit != telegram.UnitTemperatureC {
			continue
		}
		code := vifCode(rec)
		switch {
		case code >= vifFlowTempLo && code <= vifFlowTempHi:
			r.FlowTemperatureC = ptr(physical(rec))
		case code >= vifExternalTempLo && code <= vifExternalTempHi:
			r.ExternalTemperatureC = ptr(physical(rec))
		}
	}

	r.StatusTokens = statusTokens(t.STS)
	return r, nil
}
