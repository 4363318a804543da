package printer

import (
	"strconv"
	"strings"

	"github.com/edding3000/wmbusmeters/csv"
	"github.com/edding3000/wmbusmeters/meter"
)

// labels gives a handful of schema keys a human-facing caption;
// anything else falls back to the raw key, which is the teacher's own
// fallback style for unrecognized cases rather than a panic.
var labels = map[string]string{
	"total_m3":                     "Total volume (m3)",
	"target_m3":                    "Target volume (m3)",
	"max_flow_m3h":                 "Max flow (m3/h)",
	"flow_temperature_c":           "Flow temperature (C)",
	"external_temperature_c":       "External temperature (C)",
	"current_status":               "Status",
	"total_energy_consumption_kwh": "Total energy consumption (kWh)",
	"current_power_consumption_kw": "Current power consumption (kW)",
	"total_volume_m3":              "Total volume (m3)",
	"total_energy_production_kwh":  "Total energy production (kWh)",
	"current_power_production_kw":  "Current power production (kW)",
	"current_consumption_hca":      "Current consumption (HCA units)",
	"consumption_at_set_date_hca":  "Consumption at set date (HCA units)",
	"set_date":                     "Set date",
	"timestamp":                    "Timestamp",
}

func renderHR(fam meter.Family, recs []record) string {
	var b strings.Builder
	b.WriteString(fam.Name)
	for _, r := range recs {
		if r.key == "media" || r.key == "meter" {
			continue
		}
		label, ok := labels[r.key]
		if !ok {
			label = r.key
		}
		b.WriteString("\n    ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(r.value)
	}
	return b.String()
}

// renderFields implements the "fields" output format: one line, a
// fixed column order per family, no keys — values only, joined by the
// configured separator. Reuses the teacher's CSV Recorder/Encoder
// pair repointed at sep instead of a hardcoded comma.
func renderFields(recs []record, sep rune) string {
	var b strings.Builder
	enc := csv.NewEncoderSeparator(&fieldsWriter{&b}, sep)
	if err := enc.Encode(fieldsRecord(recs)); err != nil {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

type fieldsRecord []record

func (f fieldsRecord) Record() []string {
	out := make([]string, len(f))
	for i, r := range f {
		out[i] = r.value
	}
	return out
}

type fieldsWriter struct{ b *strings.Builder }

func (w *fieldsWriter) Write(p []byte) (int, error) { return w.b.Write(p) }

func renderJSON(recs []record) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, r := range recs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(r.key))
		b.WriteByte(':')
		if r.numeric {
			b.WriteString(r.value)
		} else {
			b.WriteString(strconv.Quote(r.value))
		}
	}
	b.WriteByte('}')
	return b.String()
}
