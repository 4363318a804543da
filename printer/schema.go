package printer

import (
	"strconv"
	"time"

	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/units"
)

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// schemaOrder is the fixed key order from spec.md §6's JSON schema.
// "media", "meter", "name", "id", "current_status" and "timestamp"
// are always present; every other key is emitted only when the
// decoded Reading populated the corresponding field.
var schemaOrder = []string{
	"media", "meter", "name", "id",
	"total_m3", "target_m3", "max_flow_m3h",
	"flow_temperature_c", "external_temperature_c",
	"current_status",
	"total_energy_consumption_kwh", "current_power_consumption_kw",
	"total_volume_m3",
	"total_energy_production_kwh", "current_power_production_kw",
	"current_consumption_hca", "consumption_at_set_date_hca", "set_date",
	"timestamp",
}

// buildRecords projects a Reading into the ordered, schema-shaped
// field list every output format renders from. Absent quantities are
// omitted entirely rather than appearing with a zero value, per
// spec.md §4.4.
func buildRecords(info meter.Info, fam meter.Family, r meter.Reading, ts time.Time) []record {
	var recs []record
	add := func(rec record) { recs = append(recs, rec) }

	add(record{key: "media", value: r.Media})
	add(record{key: "meter", value: fam.Name})
	add(record{key: "name", value: info.Name})
	add(record{key: "id", value: info.ID})

	addF := func(key string, v *float64, unit units.Unit) {
		if v == nil {
			return
		}
		add(record{key: key, value: f64str(*v), numeric: true, unit: unit})
	}

	addF("total_m3", r.TotalM3, units.M3)
	addF("target_m3", r.TargetM3, units.M3)
	addF("max_flow_m3h", r.MaxFlowM3H, units.M3H)
	addF("flow_temperature_c", r.FlowTemperatureC, units.C)
	addF("external_temperature_c", r.ExternalTemperatureC, units.C)

	add(record{key: "current_status", value: r.StatusHumanReadable()})

	addF("total_energy_consumption_kwh", r.TotalEnergyConsumptionKWh, units.KWh)
	addF("current_power_consumption_kw", r.CurrentPowerConsumptionKW, units.KW)
	addF("total_volume_m3", r.TotalVolumeM3, units.M3)
	addF("total_energy_production_kwh", r.TotalEnergyProductionKWh, units.KWh)
	addF("current_power_production_kw", r.CurrentPowerProductionKW, units.KW)
	addF("current_consumption_hca", r.CurrentConsumptionHCA, "")
	addF("consumption_at_set_date_hca", r.ConsumptionAtSetDateHCA, "")

	if r.SetDate != "" {
		add(record{key: "set_date", value: r.SetDate})
	}

	add(record{key: "timestamp", value: ts.UTC().Format(time.RFC3339)})

	return recs
}

// appendConversions adds one extra "<base>_<unit>" record per
// configured conversion, alongside each numeric record it applies to,
// per spec.md §6's --addconversion behavior.
func appendConversions(recs []record, conversions []units.Unit) []record {
	if len(conversions) == 0 {
		return recs
	}

	out := append([]record(nil), recs...)
	for _, rec := range recs {
		if !rec.numeric || rec.unit == "" {
			continue
		}
		fromBase, err := units.BaseOf(rec.unit)
		if err != nil {
			continue
		}
		for _, to := range conversions {
			toBase, err := units.BaseOf(to)
			if err != nil || toBase != fromBase || to == rec.unit {
				continue
			}
			value, err := parseAndConvert(rec.value, rec.unit, to)
			if err != nil {
				continue
			}
			out = append(out, record{
				key:     baseKey(rec.key) + "_" + units.Suffix(to),
				value:   f64str(value),
				numeric: true,
			})
		}
	}
	return out
}

// baseKey strips a record's trailing "_<unit>" segment, e.g.
// "total_m3" -> "total", to build the --addconversion key prefix.
func baseKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '_' {
			return key[:i]
		}
	}
	return key
}

func parseAndConvert(s string, from, to units.Unit) (float64, error) {
	v, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	return units.Convert(v, from, to)
}
