package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
)

// result is what the fake demodulator reports for one probe.
type result struct {
	control  Control
	ifKHz    uint32
	sr       uint32
	system   dvb.DeliverySystem
	streamID uint32
}

type tune struct {
	freqKHz uint32
	control Control
}

// fakeFrontend replays scripted results, one per tune request. When the
// script runs out it repeats its last element with the tuned frequency.
type fakeFrontend struct {
	script  func(i int, freqKHz uint32) result
	tunes   []tune
	current result

	clearErr   error
	setErr     error
	getErr     error
	getErrAt   int // probe index at which getErr is returned, -1 for never
	statusErr  error
	onReadback func(i int)

	events     func() (dvb.Event, error) // nil reports a zero status event
	eventCalls int
}

func newFakeFrontend(script func(i int, freqKHz uint32) result) *fakeFrontend {
	return &fakeFrontend{script: script, getErrAt: -1}
}

func (f *fakeFrontend) SetProperties(props ...dvb.Property) error {
	if len(props) == 1 && props[0].Cmd == dvb.CmdClear {
		return f.clearErr
	}

	var t tune
	for _, p := range props {
		switch p.Cmd {
		case dvb.CmdFrequency:
			t.freqKHz = p.Data
		case dvb.CmdBlindScanControl:
			t.control = DecodeControl(p.Data)
		}
	}
	f.current = f.script(len(f.tunes), t.freqKHz)
	f.tunes = append(f.tunes, t)
	return f.setErr
}

func (f *fakeFrontend) GetProperties(cmds ...dvb.Cmd) ([]dvb.Property, error) {
	i := len(f.tunes) - 1
	if f.onReadback != nil {
		f.onReadback(i)
	}
	if i == f.getErrAt {
		return nil, f.getErr
	}

	values := map[dvb.Cmd]uint32{
		dvb.CmdBlindScanControl: f.current.control.Encode(),
		dvb.CmdFrequency:        f.current.ifKHz,
		dvb.CmdSymbolRate:       f.current.sr,
		dvb.CmdDeliverySystem:   uint32(f.current.system),
		dvb.CmdPilot:            uint32(dvb.PilotAuto),
		dvb.CmdStreamID:         f.current.streamID,
	}

	props := make([]dvb.Property, len(cmds))
	for i, c := range cmds {
		props[i] = dvb.Prop(c, values[c])
	}
	return props, nil
}

func (f *fakeFrontend) ReadStatus() (dvb.Status, error) {
	if f.statusErr != nil {
		return 0, f.statusErr
	}
	return dvb.StatusHasSignal | dvb.StatusHasCarrier | dvb.StatusHasLock, nil
}

func (f *fakeFrontend) NextEvent() (dvb.Event, error) {
	f.eventCalls++
	if f.events != nil {
		return f.events()
	}
	return dvb.Event{}, nil
}

type params map[dvb.Param]uint32

func (p params) Retrieve(param dvb.Param) (uint32, bool) {
	v, ok := p[param]
	return v, ok
}

func zeroTiming() Timing {
	return Timing{StatusAttempts: 20}
}

// stream returns a script that reports one valid DVB-S2 stream at every
// probe with the given tuner step.
func stream(stepKHz uint32) func(int, uint32) result {
	return func(_ int, freqKHz uint32) result {
		return result{
			control:  Control{ValidStream: true, TunerStepKHz: stepKHz},
			ifKHz:    freqKHz,
			sr:       22_000_000,
			system:   dvb.SysDVBS2,
			streamID: dvb.NoStreamID,
		}
	}
}

func TestSweep_FullBand(t *testing.T) {
	fe := newFakeFrontend(stream(30000))
	e := New(fe, params{dvb.ParamPolarization: uint32(dvb.PolarizationV)}, WithTiming(zeroTiming()))

	list := channel.NewList()
	band := Band{StartHz: 950_000_000, EndHz: 2_150_000_000, LOKHz: 9_750_000}
	if err := e.Sweep(context.Background(), band, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	entries := list.Entries()
	if len(entries) != 41 {
		t.Fatalf("expected 41 entries, got %d", len(entries))
	}

	for i, entry := range entries {
		want := uint32(950_000+i*30_000) + 9_750_000
		if entry.FrequencyKHz != want {
			t.Errorf("entry %d: expected %d kHz, got %d", i, want, entry.FrequencyKHz)
		}
		if entry.Polarization != dvb.PolarizationV {
			t.Errorf("entry %d: expected VERTICAL, got %s", i, entry.Polarization)
		}
		if entry.SatNumber != channel.SatNumberUnset {
			t.Errorf("entry %d: expected unset sat number, got %d", i, entry.SatNumber)
		}
		if entry.SymbolRate != 22_000_000 || entry.DeliverySystem != dvb.SysDVBS2 || entry.Pilot != dvb.PilotAuto {
			t.Errorf("entry %d: unexpected tuning values %+v", i, entry)
		}
	}

	for i, tn := range fe.tunes {
		if !tn.control.NewTune {
			t.Errorf("tune %d: expected new tune flag", i)
		}
	}
}

func TestSweep_ClampsToBandEnd(t *testing.T) {
	fe := newFakeFrontend(stream(30000))
	e := New(fe, params{}, WithTiming(zeroTiming()))

	list := channel.NewList()
	if err := e.Sweep(context.Background(), Band{StartHz: 950_000_000, EndHz: 1_000_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	want := []uint32{950_000, 980_000, 1_000_000}
	if len(fe.tunes) != len(want) {
		t.Fatalf("expected %d tunes, got %d", len(want), len(fe.tunes))
	}
	for i, tn := range fe.tunes {
		if tn.freqKHz != want[i] {
			t.Errorf("tune %d: expected %d kHz, got %d", i, want[i], tn.freqKHz)
		}
	}
}

func TestSweep_SingleFrequency(t *testing.T) {
	fe := newFakeFrontend(stream(30000))
	e := New(fe, params{}, WithTiming(zeroTiming()))

	list := channel.NewList()
	if err := e.Sweep(context.Background(), Band{StartHz: 1_200_000_000, EndHz: 1_200_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if len(fe.tunes) != 1 || list.Len() != 1 {
		t.Errorf("expected one probe and one entry, got %d probes and %d entries", len(fe.tunes), list.Len())
	}
}

func TestSweep_InvalidBand(t *testing.T) {
	e := New(newFakeFrontend(stream(1000)), params{}, WithTiming(zeroTiming()))

	err := e.Sweep(context.Background(), Band{StartHz: 2, EndHz: 1}, channel.NewList())
	if !errors.Is(err, ErrInvalidBand) {
		t.Errorf("expected ErrInvalidBand, got %v", err)
	}
}

func TestSweep_FrequencyConversion(t *testing.T) {
	testCases := []struct {
		name   string
		band   Band
		ifKHz  uint32
		wantRF uint32
	}{
		{"normal", Band{LOKHz: 9_750_000}, 1_016_000, 10_766_000},
		{"inverted", Band{LOKHz: 5_150_000, InvertLO: true}, 1_030_000, 4_120_000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fe := newFakeFrontend(func(int, uint32) result {
				return result{control: Control{ValidStream: true, TunerStepKHz: 5000}, ifKHz: tc.ifKHz, streamID: dvb.NoStreamID}
			})
			e := New(fe, params{}, WithTiming(zeroTiming()))

			band := tc.band
			band.StartHz, band.EndHz = 1_000_000_000, 1_000_000_000

			list := channel.NewList()
			if err := e.Sweep(context.Background(), band, list); err != nil {
				t.Fatalf("Sweep() error: %v", err)
			}
			if got := list.Entries()[0].FrequencyKHz; got != tc.wantRF {
				t.Errorf("expected %d kHz, got %d", tc.wantRF, got)
			}
		})
	}
}

func TestSweep_ValidStreamGating(t *testing.T) {
	fe := newFakeFrontend(func(i int, freqKHz uint32) result {
		return result{
			control: Control{ValidStream: i%2 == 1, TunerStepKHz: 10000},
			ifKHz:   freqKHz,
		}
	})
	e := New(fe, params{}, WithTiming(zeroTiming()))

	list := channel.NewList()
	if err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_050_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	// probes at 1000, 1010, ..., 1050 MHz; odd probes are valid
	if len(fe.tunes) != 6 {
		t.Fatalf("expected 6 probes, got %d", len(fe.tunes))
	}
	if list.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", list.Len())
	}
}

func TestSweep_MultiStreamCarrier(t *testing.T) {
	testCases := []struct {
		name      string
		lastValid bool
		want      int
	}{
		{"clearing probe has a stream", true, 4},
		{"clearing probe is empty", false, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fe := newFakeFrontend(func(i int, freqKHz uint32) result {
				r := result{ifKHz: freqKHz, streamID: uint32(i)}
				switch {
				case i < 3:
					r.control = Control{ValidStream: true, MoreResults: true}
				case i == 3:
					r.control = Control{ValidStream: tc.lastValid, TunerStepKHz: 40000}
				default:
					r.control = Control{TunerStepKHz: 40000}
				}
				return r
			})
			e := New(fe, params{}, WithTiming(zeroTiming()))

			list := channel.NewList()
			if err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_020_000_000}, list); err != nil {
				t.Fatalf("Sweep() error: %v", err)
			}

			if list.Len() != tc.want {
				t.Fatalf("expected %d entries, got %d", tc.want, list.Len())
			}
			for i, entry := range list.Entries() {
				if entry.StreamID != uint32(i) {
					t.Errorf("entry %d: expected stream %d, got %d", i, i, entry.StreamID)
				}
			}

			// four probes on the carrier without moving, then the band end
			if len(fe.tunes) != 5 {
				t.Fatalf("expected 5 probes, got %d", len(fe.tunes))
			}
			for i := 0; i < 4; i++ {
				if fe.tunes[i].freqKHz != 1_000_000 {
					t.Errorf("tune %d moved to %d kHz", i, fe.tunes[i].freqKHz)
				}
				if wantNew := i == 0; fe.tunes[i].control.NewTune != wantNew {
					t.Errorf("tune %d: expected new tune %v", i, wantNew)
				}
			}
			if fe.tunes[4].freqKHz != 1_020_000 || !fe.tunes[4].control.NewTune {
				t.Errorf("unexpected last tune %+v", fe.tunes[4])
			}
		})
	}
}

func TestSweep_MaxStreamsPerCarrier(t *testing.T) {
	fe := newFakeFrontend(func(_ int, freqKHz uint32) result {
		return result{control: Control{ValidStream: true, MoreResults: true, TunerStepKHz: 1000}, ifKHz: freqKHz}
	})
	e := New(fe, params{}, WithTiming(zeroTiming()), WithMaxStreamsPerCarrier(3))

	list := channel.NewList()
	if err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_001_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if len(fe.tunes) != 6 {
		t.Errorf("expected 3 probes per carrier, got %d in total", len(fe.tunes))
	}
}

func TestSweep_ZeroStepFallback(t *testing.T) {
	fe := newFakeFrontend(stream(0))
	e := New(fe, params{}, WithTiming(zeroTiming()), WithMinStep(5000))

	list := channel.NewList()
	if err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_010_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if len(fe.tunes) != 3 {
		t.Errorf("expected 3 probes, got %d", len(fe.tunes))
	}
}

func TestSweep_ClearFailureIsFatal(t *testing.T) {
	fe := newFakeFrontend(stream(1000))
	fe.clearErr = &dvb.IoctlError{Op: "FE_SET_PROPERTY", Err: errors.New("io")}
	e := New(fe, params{}, WithTiming(zeroTiming()))

	err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_010_000_000}, channel.NewList())

	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
	if !errors.Is(err, dvb.ErrDeviceIO) {
		t.Errorf("expected device i/o failure, got %v", err)
	}
	if len(fe.tunes) != 0 {
		t.Errorf("expected no probes, got %d", len(fe.tunes))
	}
}

func TestSweep_ReadbackFailureIsFatal(t *testing.T) {
	fe := newFakeFrontend(stream(10000))
	fe.getErr = &dvb.IoctlError{Op: "FE_GET_PROPERTY", Err: errors.New("io")}
	fe.getErrAt = 2
	e := New(fe, params{}, WithTiming(zeroTiming()))

	list := channel.NewList()
	err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_100_000_000}, list)

	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}
	if probeErr.FrequencyHz != 1_020_000_000 {
		t.Errorf("expected failure at 1020 MHz, got %d", probeErr.FrequencyHz)
	}
	if list.Len() != 2 {
		t.Errorf("expected entries before the failure to be kept, got %d", list.Len())
	}
}

func TestSweep_SetFailureIsBestEffort(t *testing.T) {
	fe := newFakeFrontend(func(_ int, freqKHz uint32) result {
		return result{control: Control{TunerStepKHz: 10000}, ifKHz: freqKHz}
	})
	fe.setErr = errors.New("busy")
	fe.statusErr = errors.New("no status")
	e := New(fe, params{}, WithTiming(zeroTiming()))

	list := channel.NewList()
	if err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_020_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if len(fe.tunes) != 3 || list.Len() != 0 {
		t.Errorf("expected 3 probes and no entries, got %d probes and %d entries", len(fe.tunes), list.Len())
	}
}

func TestSweep_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fe := newFakeFrontend(stream(10000))
	fe.onReadback = func(i int) {
		if i == 1 {
			cancel()
		}
	}
	e := New(fe, params{}, WithTiming(zeroTiming()))

	list := channel.NewList()
	err := e.Sweep(ctx, Band{StartHz: 1_000_000_000, EndHz: 1_100_000_000}, list)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fe.tunes) != 3 {
		t.Errorf("expected the sweep to stop at the third probe, got %d", len(fe.tunes))
	}
}

func TestSweep_CancelInterruptsStatusPolling(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fe := newFakeFrontend(stream(10000))
	fe.statusErr = errors.New("no status")

	timing := zeroTiming()
	timing.StatusInterval = time.Hour
	e := New(fe, params{}, WithTiming(timing))

	start := time.Now()
	err := e.Sweep(ctx, Band{StartHz: 1_000_000_000, EndHz: 1_100_000_000}, channel.NewList())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("status polling was not interrupted")
	}
}

func TestSweep_EventWaitIsBounded(t *testing.T) {
	fe := newFakeFrontend(stream(10000))
	fe.events = func() (dvb.Event, error) {
		return dvb.Event{Status: dvb.StatusHasLock}, nil
	}

	timing := zeroTiming()
	timing.EventTimeout = 50 * time.Millisecond
	e := New(fe, params{}, WithTiming(timing))

	list := channel.NewList()
	start := time.Now()
	if err := e.Sweep(context.Background(), Band{StartHz: 1_200_000_000, EndHz: 1_200_000_000}, list); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < timing.EventTimeout {
		t.Errorf("event wait returned after %v, want at least %v", elapsed, timing.EventTimeout)
	}
	if elapsed > 5*time.Second {
		t.Errorf("event wait took %v, want about %v", elapsed, timing.EventTimeout)
	}
	// one read per poll interval, plus the first
	if want := int(timing.EventTimeout/eventPollInterval) + 2; fe.eventCalls > want {
		t.Errorf("NextEvent called %d times, want at most %d", fe.eventCalls, want)
	}
	if list.Len() != 1 {
		t.Errorf("expected the probe to complete after the timeout, got %d entries", list.Len())
	}
}

func TestSweep_CancelInterruptsEventWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	fe := newFakeFrontend(stream(10000))
	fe.events = func() (dvb.Event, error) {
		return dvb.Event{}, errors.New("no such device")
	}

	timing := zeroTiming()
	timing.EventTimeout = time.Hour
	e := New(fe, params{}, WithTiming(timing))

	start := time.Now()
	err := e.Sweep(ctx, Band{StartHz: 1_200_000_000, EndHz: 1_200_000_000}, channel.NewList())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("event wait was not interrupted")
	}
}

type recorder struct {
	probes, locked, streams, errors int
}

func (r *recorder) ObserveProbe(_ time.Duration, locked bool) {
	r.probes++
	if locked {
		r.locked++
	}
}
func (r *recorder) StreamFound(string) { r.streams++ }
func (r *recorder) DeviceError(string) { r.errors++ }

func TestSweep_Telemetry(t *testing.T) {
	fe := newFakeFrontend(stream(10000))
	fe.setErr = errors.New("busy")
	rec := &recorder{}
	e := New(fe, params{}, WithTiming(zeroTiming()), WithTelemetry(rec))

	if err := e.Sweep(context.Background(), Band{StartHz: 1_000_000_000, EndHz: 1_010_000_000}, channel.NewList()); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if rec.probes != 2 || rec.locked != 2 || rec.streams != 2 || rec.errors != 2 {
		t.Errorf("unexpected telemetry %+v", *rec)
	}
}
