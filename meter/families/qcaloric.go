package families

import (
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	meter.Register(meter.Family{
		Name:      "qcaloric",
		Category:  meter.HeatCostAllocation,
		LinkModes: linkmode.Of(linkmode.C1),
		Media:     []byte{0x80}, // heat cost allocator
		IsForMe:   byAddress,
		Decode:    decodeQCaloric,
	})
}

// vifHCA is the "units for heat cost allocation" VIF code. decodeVIF
// reports it as UnitTemperatureC (it falls in the 0x6C-0x6F external
// temperature range there), so this decoder matches it directly by
// code instead of by Unit.
const vifHCA byte = 0x6E

func decodeQCaloric(t *telegram.Telegram) (meter.Reading, error) {
	var r meter.Reading
	r.Media = "heat_cost_allocation"

	for _, rec := range t.Records {
		if vifCode(rec) != vifHCA {
			continue
		}
		switch {
		case rec.StorageNr == 0 && r.CurrentConsumptionHCA == nil:
			r.CurrentConsumptionHCA = ptr(rec.Value)
		case rec.StorageNr > 0 && r.ConsumptionAtSetDateHCA == nil:
			r.ConsumptionAtSetDateHCA = ptr(rec.Value)
		}
	}

	r.StatusTokens = statusTokens(t.STS)
	return r, nil
}
