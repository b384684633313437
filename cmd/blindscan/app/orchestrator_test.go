package app

import (
	"context"
	"errors"
	"testing"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
	"github.com/roman-kulish/blindscan/internal/lnb"
	"github.com/roman-kulish/blindscan/internal/scan"
	"github.com/roman-kulish/blindscan/internal/telemetry"
)

type fakeSEC struct {
	voltages []dvb.Voltage
	tones    []dvb.Tone
	diseqc   [][]byte
	err      error
}

func (f *fakeSEC) SetVoltage(v dvb.Voltage) error {
	f.voltages = append(f.voltages, v)
	return f.err
}

func (f *fakeSEC) SetTone(t dvb.Tone) error {
	f.tones = append(f.tones, t)
	return nil
}

func (f *fakeSEC) SendDiseqc(msg []byte) error {
	f.diseqc = append(f.diseqc, msg)
	return nil
}

type sweepCall struct {
	band scan.Band
	pol  dvb.Polarization
}

// fakeSweeper appends one entry at the RF frequency of the upper IF edge of
// every band, so that overlapping bands produce duplicates.
type fakeSweeper struct {
	parms *dvb.Parms
	calls []sweepCall
	errAt int
	err   error
}

func (f *fakeSweeper) Sweep(_ context.Context, band scan.Band, list *channel.List) error {
	pol, _ := f.parms.Retrieve(dvb.ParamPolarization)
	f.calls = append(f.calls, sweepCall{band: band, pol: dvb.Polarization(pol)})
	if f.err != nil && len(f.calls)-1 == f.errAt {
		return f.err
	}

	list.Append(channel.Entry{
		FrequencyKHz: 11_700_000,
		SymbolRate:   27_500_000,
		Polarization: dvb.Polarization(pol),
		StreamID:     dvb.NoStreamID,
		SatNumber:    channel.SatNumberUnset,
	})
	return nil
}

func TestOrchestrator_Run(t *testing.T) {
	universal, err := lnb.Lookup("UNIVERSAL")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	bands, _ := universal.Bands(-1)

	parms := dvb.NewParms()
	sec := &fakeSEC{}
	sweeper := &fakeSweeper{parms: parms}
	metrics := telemetry.New()

	o := NewOrchestrator(sec, sweeper, parms,
		WithFrequencyLimits(950_000, 2_150_000),
		WithPolarization(dvb.PolarizationH),
		WithMetrics(metrics))

	list := channel.NewList()
	if err = o.Run(context.Background(), bands, list); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(sweeper.calls) != 2 {
		t.Fatalf("expected 2 sweeps, got %d", len(sweeper.calls))
	}
	want := []scan.Band{
		{StartHz: 1_050_000_000, EndHz: 2_050_000_000, LOKHz: 9_750_000},
		{StartHz: 1_000_000_000, EndHz: 2_100_000_000, LOKHz: 10_600_000},
	}
	for i, c := range sweeper.calls {
		if c.band != want[i] {
			t.Errorf("sweep %d: expected %+v, got %+v", i, want[i], c.band)
		}
		if c.pol != dvb.PolarizationH {
			t.Errorf("sweep %d: expected HORIZONTAL in tuning context, got %s", i, c.pol)
		}
	}

	if len(sec.voltages) != 2 || sec.voltages[0] != dvb.Voltage18 {
		t.Errorf("unexpected voltages %v", sec.voltages)
	}
	if len(sec.tones) != 2 || sec.tones[0] != dvb.ToneOff || sec.tones[1] != dvb.ToneOn {
		t.Errorf("unexpected tones %v", sec.tones)
	}
	if len(sec.diseqc) != 0 {
		t.Errorf("expected no DiSEqC without a satellite number, got %d", len(sec.diseqc))
	}

	// the two bands overlap around the range switch
	if list.Len() != 2 {
		t.Fatalf("expected 2 entries before dedupe, got %d", list.Len())
	}
	if n := list.Dedupe(nil); n != 1 {
		t.Errorf("expected the overlap duplicate to be removed, got %d removals", n)
	}
}

func TestOrchestrator_Diseqc(t *testing.T) {
	l, _ := lnb.Lookup("UNIVERSAL")
	bands, _ := l.Bands(1)

	parms := dvb.NewParms()
	sec := &fakeSEC{}
	o := NewOrchestrator(sec, &fakeSweeper{parms: parms}, parms, WithSatellite(1, 0))

	if err := o.Run(context.Background(), bands, channel.NewList()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(sec.diseqc) != 1 {
		t.Fatalf("expected 1 DiSEqC command, got %d", len(sec.diseqc))
	}
	// input 1, vertical (13V), high band
	if got := sec.diseqc[0][3]; got != 0xf5 {
		t.Errorf("expected 0xf5, got %#x", got)
	}
	if v, ok := parms.Retrieve(dvb.ParamSatNumber); !ok || v != 1 {
		t.Errorf("expected satellite number in tuning context, got %d (%v)", v, ok)
	}
}

func TestOrchestrator_SweepFailureStopsRun(t *testing.T) {
	l, _ := lnb.Lookup("UNIVERSAL")
	bands, _ := l.Bands(-1)

	parms := dvb.NewParms()
	ioErr := &scan.ProbeError{FrequencyHz: 1_100_000_000, Op: "reading probe result", Err: &dvb.IoctlError{Op: "FE_GET_PROPERTY", Err: errors.New("io")}}
	sweeper := &fakeSweeper{parms: parms, err: ioErr, errAt: 0}
	o := NewOrchestrator(&fakeSEC{}, sweeper, parms)

	err := o.Run(context.Background(), bands, channel.NewList())
	if !errors.Is(err, dvb.ErrDeviceIO) {
		t.Fatalf("expected device i/o failure, got %v", err)
	}
	if len(sweeper.calls) != 1 {
		t.Errorf("expected the run to stop after the first band, got %d sweeps", len(sweeper.calls))
	}
}

func TestOrchestrator_SECFailureIsNotFatal(t *testing.T) {
	l, _ := lnb.Lookup("C-BAND")
	bands, _ := l.Bands(-1)

	parms := dvb.NewParms()
	sweeper := &fakeSweeper{parms: parms}
	o := NewOrchestrator(&fakeSEC{err: errors.New("no supply")}, sweeper, parms)

	if err := o.Run(context.Background(), bands, channel.NewList()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(sweeper.calls) != 1 {
		t.Errorf("expected the band to be swept, got %d sweeps", len(sweeper.calls))
	}
}

func TestOrchestrator_BandOutsideFrontend(t *testing.T) {
	tests := []struct {
		name       string
		lnb        string
		minKHz     uint32
		maxKHz     uint32
		wantSweeps []scan.Band
	}{
		{
			name:   "every band outside",
			lnb:    "C-BAND",
			minKHz: 1_500_000,
			maxKHz: 2_150_000,
		},
		{
			name:   "first band outside",
			lnb:    "UNIVERSAL",
			minKHz: 2_060_000,
			maxKHz: 2_150_000,
			wantSweeps: []scan.Band{
				{StartHz: 2_060_000_000, EndHz: 2_100_000_000, LOKHz: 10_600_000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := lnb.Lookup(tt.lnb)
			if err != nil {
				t.Fatalf("Lookup(%s) error: %v", tt.lnb, err)
			}
			bands, _ := l.Bands(-1)

			parms := dvb.NewParms()
			sweeper := &fakeSweeper{parms: parms}
			o := NewOrchestrator(&fakeSEC{}, sweeper, parms, WithFrequencyLimits(tt.minKHz, tt.maxKHz))

			list := channel.NewList()
			if err = o.Run(context.Background(), bands, list); err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if len(sweeper.calls) != len(tt.wantSweeps) {
				t.Fatalf("expected %d sweeps, got %d", len(tt.wantSweeps), len(sweeper.calls))
			}
			for i, want := range tt.wantSweeps {
				if sweeper.calls[i].band != want {
					t.Errorf("sweep %d: got %+v, want %+v", i, sweeper.calls[i].band, want)
				}
			}
			if list.Len() != len(tt.wantSweeps) {
				t.Errorf("expected %d entries, got %d", len(tt.wantSweeps), list.Len())
			}
		})
	}
}
