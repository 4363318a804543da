package families

import (
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	meter.Register(meter.Family{
		Name:      "vario451",
		Category:  meter.Heat,
		LinkModes: linkmode.Of(linkmode.T1),
		Media:     []byte{0x04}, // heat
		IsForMe:   byAddress,
		Decode:    decodeVario451,
	})
}

func decodeVario451(t *telegram.Telegram) (meter.Reading, error) {
	var r meter.Reading
	r.Media = "heat"

	if rec, ok := current(t.Records, telegram.UnitEnergyWh); ok {
		r.TotalEnergyConsumptionKWh = ptr(physical(rec) / 1000)
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
