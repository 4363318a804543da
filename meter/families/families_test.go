package families

import (
	"testing"

	"github.com/edding3000/wmbusmeters/telegram"
)

func rec(dif telegram.DifFunction, storageNr, tariff int, unit telegram.Unit, exp int, value float64, vifHex byte) telegram.Record {
	return telegram.Record{
		DifFunction: dif,
		StorageNr:   storageNr,
		Tariff:      tariff,
		VifUnit:     unit,
		VifExponent: exp,
		Value:       value,
		Key:         "00_" + hexByte(vifHex),
	}
}

func hexByte(b byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}

func TestDecodeMulticalLike(t *testing.T) {
	tg := &telegram.Telegram{
		STS: stsDry | stsLeaking,
		Records: []telegram.Record{
			rec(telegram.FuncInstantaneous, 0, 0, telegram.UnitVolumeM3, -3, 1234, 0x13),
			rec(telegram.FuncInstantaneous, 1, 0, telegram.UnitVolumeM3, -3, 1000, 0x13),
			rec(telegram.FuncMax, 0, 0, telegram.UnitFlowM3H, -3, 500, 0x43),
			rec(telegram.FuncInstantaneous, 0, 0, telegram.UnitTemperatureC, -2, 2150, 0x62), // flow temp
		},
	}

	reading, err := decodeMulticalLike(tg)
	if err != nil {
		t.Fatal(err)
	}
	if reading.TotalM3 == nil || *reading.TotalM3 != 1.234 {
		t.Fatalf("TotalM3 = %v", reading.TotalM3)
	}
	if reading.TargetM3 == nil || *reading.TargetM3 != 1 {
		t.Fatalf("TargetM3 = %v", reading.TargetM3)
	}
	if reading.MaxFlowM3H == nil || *reading.MaxFlowM3H != 0.5 {
		t.Fatalf("MaxFlowM3H = %v", reading.MaxFlowM3H)
	}
	if reading.FlowTemperatureC == nil || *reading.FlowTemperatureC != 21.5 {
		t.Fatalf("FlowTemperatureC = %v", reading.FlowTemperatureC)
	}
	if got, want := reading.StatusHumanReadable(), "DRY LEAKING"; got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
}

func TestDecodeMulticalLikeNoStatusIsOK(t *testing.T) {
	tg := &telegram.Telegram{}
	reading, err := decodeMulticalLike(tg)
	if err != nil {
		t.Fatal(err)
	}
	if got := reading.StatusHumanReadable(); got != "OK" {
		t.Fatalf("status = %q, want OK", got)
	}
}

func TestDecodeQCaloric(t *testing.T) {
	tg := &telegram.Telegram{
		Records: []telegram.Record{
			rec(telegram.FuncInstantaneous, 0, 0, telegram.UnitUnknown, 0, 742, vifHCA),
			rec(telegram.FuncInstantaneous, 1, 0, telegram.UnitUnknown, 0, 610, vifHCA),
		},
	}
	reading, err := decodeQCaloric(tg)
	if err != nil {
		t.Fatal(err)
	}
	if reading.CurrentConsumptionHCA == nil || *reading.CurrentConsumptionHCA != 742 {
		t.Fatalf("CurrentConsumptionHCA = %v", reading.CurrentConsumptionHCA)
	}
	if reading.ConsumptionAtSetDateHCA == nil || *reading.ConsumptionAtSetDateHCA != 610 {
		t.Fatalf("ConsumptionAtSetDateHCA = %v", reading.ConsumptionAtSetDateHCA)
	}
}

func TestDecodeOmnipowerSeparatesTariffs(t *testing.T) {
	tg := &telegram.Telegram{
		Records: []telegram.Record{
			rec(telegram.FuncInstantaneous, 0, 0, telegram.UnitEnergyWh, 0, 5000, 0x03),
			rec(telegram.FuncInstantaneous, 0, 1, telegram.UnitEnergyWh, 0, 1200, 0x03),
			rec(telegram.FuncInstantaneous, 0, 0, telegram.UnitPowerW, 0, 800, 0x33),
		},
	}
	reading, err := decodeOmnipower(tg)
	if err != nil {
		t.Fatal(err)
	}
	if reading.TotalEnergyConsumptionKWh == nil || *reading.TotalEnergyConsumptionKWh != 5 {
		t.Fatalf("TotalEnergyConsumptionKWh = %v", reading.TotalEnergyConsumptionKWh)
	}
	if reading.TotalEnergyProductionKWh == nil || *reading.TotalEnergyProductionKWh != 1.2 {
		t.Fatalf("TotalEnergyProductionKWh = %v", reading.TotalEnergyProductionKWh)
	}
	if reading.CurrentPowerConsumptionKW == nil || *reading.CurrentPowerConsumptionKW != 0.8 {
		t.Fatalf("CurrentPowerConsumptionKW = %v", reading.CurrentPowerConsumptionKW)
	}
}
