package families

import (
	"encoding/binary"
	"fmt"

	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
	"github.com/edding3000/wmbusmeters/telegram"
)

func init() {
	meter.Register(meter.Family{
		Name:      "supercom587",
		Category:  meter.Water,
		LinkModes: linkmode.Of(linkmode.T1),
		Media:     []byte{0x16, 0x06},
		IsForMe:   byAddress,
		Decode:    decodeSupercom587,
	})
}

// Supercom 587 never encrypts and doesn't follow the generic DIF/VIF
// layout for its two headline fields: total volume sits at a fixed
// payload offset, little-endian, in liters.
const (
	supercom587TotalOffset = 2
	supercom587TotalLen    = 4
)

func decodeSupercom587(t *telegram.Telegram) (meter.Reading, error) {
	if len(t.Payload) < supercom587TotalOffset+supercom587TotalLen {
		return meter.Reading{}, fmt.Errorf("supercom587: payload too short (%d bytes)", len(t.Payload))
	}

	liters := binary.LittleEndian.Uint32(t.Payload[supercom587TotalOffset : supercom587TotalOffset+supercom587TotalLen])

	var r meter.Reading
	r.Media = "water"
	r.TotalM3 = ptr(float64(liters) / 1000)
	r.StatusTokens = statusTokens(t.STS)
	return r, nil
}
