package families

import (
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	meter.Register(meter.Family{
		Name:      "omnipower",
		Category:  meter.Electricity,
		LinkModes: linkmode.Of(linkmode.C1),
		Media:     []byte{0x02}, // electricity
		IsForMe:   byAddress,
		Decode:    decodeOmnipower,
	})
}

// Omnipower reports both consumption and production registers; tariff
// 0 is the import (consumption) register, tariff 1 the export
// (production) register, per the device's two-register accounting.
func decodeOmnipower(t *telegram.Telegram) (meter.Reading, error) {
	var r meter.Reading
	r.Media = "electricity"

	for _, rec := range t.Records {
		switch rec.VifUnit {
		case telegram.UnitEnergyWh:
			kwh := physical(rec) / 1000
			if rec.Tariff == 0 {
				r.TotalEnergyConsumptionKWh = ptr(kwh)
			} else {
				r.TotalEnergyProductionKWh = ptr(kwh)
			}
		case telegram.UnitPowerW:
			kw := physical(rec) / 1000
			if rec.Tariff == 0 {
				r.CurrentPowerConsumptionKW = ptr(kw)
			} else {
				r.CurrentPowerProductionKW = ptr(kw)
			}
		}
	}

	r.StatusTokens = statusTokens(t.STS)
	return r, nil
}
