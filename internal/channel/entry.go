package channel

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/blindscan/internal/dvb"
)

// SatNumberUnset marks an entry that is not bound to a DiSEqC input.
const SatNumberUnset int32 = -1

// Entry is one discovered logical stream.
type Entry struct {
	FrequencyKHz   uint32 // RF frequency, corrected for the LNB local oscillator
	SymbolRate     uint32 // symbols per second
	DeliverySystem dvb.DeliverySystem
	Polarization   dvb.Polarization
	Pilot          dvb.Pilot
	StreamID       uint32 // raw DTV_STREAM_ID word, dvb.NoStreamID when absent
	SatNumber      int32
}

// Stream returns the decoded stream identifier.
func (e Entry) Stream() StreamID {
	return DecodeStreamID(e.StreamID)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s %s %s",
		e.DeliverySystem,
		humanize.SIWithDigits(float64(e.FrequencyKHz)*1e3, 3, "Hz"),
		humanize.SIWithDigits(float64(e.SymbolRate), 3, "Sps"),
		e.Polarization,
		e.Stream())
}
