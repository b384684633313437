package lnb

import (
	"context"
	"fmt"
	"time"

	"github.com/roman-kulish/blindscan/internal/dvb"
)

// diseqcSettle is the pause around a DiSEqC command required by the bus.
const diseqcSettle = 15 * time.Millisecond

// SEC is the satellite equipment control side of a frontend.
type SEC interface {
	SetVoltage(v dvb.Voltage) error
	SetTone(t dvb.Tone) error
	SendDiseqc(msg []byte) error
}

// Setup is the LNB supply and switch state for one band.
type Setup struct {
	Polarization dvb.Polarization
	HighBand     bool
	SatNumber    int // DiSEqC committed switch input, negative to skip
	DiseqcWait   time.Duration
}

func (s Setup) Voltage() dvb.Voltage {
	if s.Polarization.High() {
		return dvb.Voltage18
	}
	return dvb.Voltage13
}

func (s Setup) Tone() dvb.Tone {
	if s.HighBand {
		return dvb.ToneOn
	}
	return dvb.ToneOff
}

// CommittedSwitch builds the DiSEqC 1.0 "write N0" command selecting the
// satellite input, band and polarization.
func (s Setup) CommittedSwitch() []byte {
	var data byte = 0xf0 | byte((s.SatNumber*4)&0x0f)
	if s.HighBand {
		data |= 1
	}
	if s.Polarization.High() {
		data |= 2
	}
	return []byte{0xe0, 0x10, 0x38, data}
}

// Apply drives the LNB supply, the DiSEqC switch and the 22 kHz tone.
func (s Setup) Apply(ctx context.Context, sec SEC) error {
	if err := sec.SetVoltage(s.Voltage()); err != nil {
		return fmt.Errorf("setting LNB voltage: %w", err)
	}

	if s.SatNumber >= 0 {
		if err := sec.SetTone(dvb.ToneOff); err != nil {
			return fmt.Errorf("disabling tone: %w", err)
		}
		if err := wait(ctx, diseqcSettle); err != nil {
			return err
		}
		if err := sec.SendDiseqc(s.CommittedSwitch()); err != nil {
			return fmt.Errorf("sending DiSEqC command: %w", err)
		}
		if err := wait(ctx, diseqcSettle+s.DiseqcWait); err != nil {
			return err
		}
	}

	if err := sec.SetTone(s.Tone()); err != nil {
		return fmt.Errorf("setting tone: %w", err)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
