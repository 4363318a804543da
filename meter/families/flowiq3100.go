package families

import (
	"github.com/edding3000/wmbusmeters/linkmode"
	"github.com/edding3000/wmbusmeters/meter"
)

func init() {
	meter.Register(meter.Family{
		Name:      "flowiq3100",
		Category:  meter.Water,
		LinkModes: linkmode.Of(linkmode.C1),
		Media:     []byte{0x16, 0x06},
		IsForMe:   byAddress,
		Decode:    decodeMulticalLike, // same record layout as multical21
	})
}
