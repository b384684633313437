package scan

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Band is one intermediate frequency range to sweep, together with the LNB
// local oscillator that maps it back to RF.
type Band struct {
	StartHz  uint32 // first IF to probe
	EndHz    uint32 // last IF to probe, inclusive
	LOKHz    uint32 // local oscillator frequency
	InvertLO bool   // spectrum is inverted (LO above the RF band)
}

// RFKHz converts a tuner frequency reported by the device to RF.
func (b Band) RFKHz(ifKHz uint32) uint32 {
	if b.InvertLO {
		return b.LOKHz - ifKHz
	}
	return ifKHz + b.LOKHz
}

func (b Band) String() string {
	return fmt.Sprintf("%s - %s (LO %s, inverted=%v)",
		humanize.SIWithDigits(float64(b.StartHz), 3, "Hz"),
		humanize.SIWithDigits(float64(b.EndHz), 3, "Hz"),
		humanize.SIWithDigits(float64(b.LOKHz)*1e3, 3, "Hz"),
		b.InvertLO)
}
