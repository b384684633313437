package lnb

import (
	"fmt"

	"github.com/roman-kulish/blindscan/internal/dvb"
	"github.com/roman-kulish/blindscan/internal/scan"
)

// Band is one selected LNB range.
type Band struct {
	Index int
	Range

	rangeSwitchMHz uint32
}

// Inverted reports whether the LO lies above the band, mirroring the spectrum.
func (b Band) Inverted() bool {
	return b.LOMHz > b.LowMHz
}

// CenterKHz is the band centre used to pick the 22 kHz tone.
func (b Band) CenterKHz() uint32 {
	return (b.HighMHz + b.LowMHz) / 2 * 1000
}

// HighBand reports whether the band needs the 22 kHz tone.
func (b Band) HighBand() bool {
	return b.rangeSwitchMHz > 0 && b.CenterKHz() >= b.rangeSwitchMHz*1000
}

// IFHz returns the intermediate frequency range the tuner sees, before
// clamping to the frontend's limits.
func (b Band) IFHz() (start, stop uint32) {
	lo, hi := absDiff(b.LowMHz, b.LOMHz), absDiff(b.HighMHz, b.LOMHz)
	if b.Inverted() {
		lo, hi = hi, lo
	}
	return lo * 1_000_000, hi * 1_000_000
}

// Sweep returns the sweep parameters of the band, with the IF range clamped
// to the frontend limits given in kHz. A zero limit is ignored.
func (b Band) Sweep(minKHz, maxKHz uint32) (scan.Band, error) {
	start, stop := b.IFHz()
	if minKHz > 0 {
		start = max(start, minKHz*1000)
	}
	if maxKHz > 0 {
		stop = min(stop, maxKHz*1000)
	}
	if start > stop {
		return scan.Band{}, fmt.Errorf("%w: band %d (%s) lies outside the frontend range %d to %d kHz",
			ErrInvalidBand, b.Index, b.Range, minKHz, maxKHz)
	}

	return scan.Band{
		StartHz:  start,
		EndHz:    stop,
		LOKHz:    b.LOMHz * 1000,
		InvertLO: b.Inverted(),
	}, nil
}

// PolarizationOr returns override when set, otherwise the band polarization.
func (b Band) PolarizationOr(override dvb.Polarization) dvb.Polarization {
	if override != dvb.PolarizationOff {
		return override
	}
	return b.Polarization
}

func (b Band) String() string {
	return fmt.Sprintf("%d: %s", b.Index, b.Range)
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
