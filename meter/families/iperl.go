package families

import (
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	meter.Register(meter.Family{
		Name:      "iperl",
		Category:  meter.Water,
		LinkModes: linkmode.Of(linkmode.T1),
		Media:     []byte{0x16, 0x06},
		IsForMe:   byAddress,
		Decode:    decodeIperl,
	})
}

func decodeIperl(t *telegram.Telegram) (meter.Reading, error) {
	var r meter.Reading
	r.Media = "water"

	if rec, ok := current(t.Records, telegram.UnitVolumeM3); ok {
		r.TotalM3 = ptr(physical(rec))
	}
	if rec, ok := targetDate(t.Records, telegram.UnitVolumeM3); ok {
		r.TargetM3 = ptr(physical(rec))
	}
	r.StatusTokens = statusTokens(t.STS)
	return r, nil
}
