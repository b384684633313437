package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
)

const (
	// DefaultSymbolRate is sent with every tune request. The demodulator
	// ignores it in blind scan mode but rejects a tune without one.
	DefaultSymbolRate = 55_000_000

	// DefaultMinStepKHz is used when the device reports a zero tuner step.
	DefaultMinStepKHz = 1000

	// DefaultMaxStreamsPerCarrier bounds the streams enumerated on one carrier.
	DefaultMaxStreamsPerCarrier = 256
)

// Frontend is the subset of a DVB frontend the engine drives.
type Frontend interface {
	SetProperties(props ...dvb.Property) error
	GetProperties(cmds ...dvb.Cmd) ([]dvb.Property, error)
	ReadStatus() (dvb.Status, error)
	NextEvent() (dvb.Event, error)
}

// Params is the tuning context the engine reads session values from.
type Params interface {
	Retrieve(param dvb.Param) (uint32, bool)
}

// Recorder receives probe metrics. *telemetry.Metrics satisfies it.
type Recorder interface {
	ObserveProbe(d time.Duration, locked bool)
	StreamFound(deliverySystem string)
	DeviceError(op string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProbe(time.Duration, bool) {}
func (nopRecorder) StreamFound(string)               {}
func (nopRecorder) DeviceError(string)               {}

// Timing holds the waits of a sweep.
type Timing struct {
	ClearSettle    time.Duration // after clearing the tuning parameters
	TuneSettle     time.Duration // after each tune request
	EventTimeout   time.Duration // bound on waiting for the tuning started event
	StatusAttempts int           // lock status reads per probe
	StatusInterval time.Duration // between lock status reads
}

func DefaultTiming() Timing {
	return Timing{
		ClearSettle:    20 * time.Millisecond,
		TuneSettle:     200 * time.Millisecond,
		EventTimeout:   time.Second,
		StatusAttempts: 20,
		StatusInterval: time.Second,
	}
}

// eventPollInterval is the pause between reads of the event queue.
const eventPollInterval = 10 * time.Millisecond

// readback is the order of properties read after every probe.
var readback = []dvb.Cmd{
	dvb.CmdBlindScanControl,
	dvb.CmdFrequency,
	dvb.CmdSymbolRate,
	dvb.CmdDeliverySystem,
	dvb.CmdPilot,
	dvb.CmdStreamID,
}

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) func(e *Engine) {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTiming replaces the default waits
func WithTiming(t Timing) func(e *Engine) {
	return func(e *Engine) {
		e.timing = t
	}
}

// WithTelemetry sets the metrics recorder
func WithTelemetry(r Recorder) func(e *Engine) {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithPlaceholderSymbolRate sets the symbol rate sent with tune requests
func WithPlaceholderSymbolRate(sr uint32) func(e *Engine) {
	return func(e *Engine) {
		if sr > 0 {
			e.symbolRate = sr
		}
	}
}

// WithMinStep sets the step used when the device reports none
func WithMinStep(kHz uint32) func(e *Engine) {
	return func(e *Engine) {
		if kHz > 0 {
			e.minStepKHz = kHz
		}
	}
}

// WithMaxStreamsPerCarrier bounds multi-stream enumeration on one carrier
func WithMaxStreamsPerCarrier(n int) func(e *Engine) {
	return func(e *Engine) {
		if n > 0 {
			e.maxStreams = n
		}
	}
}

// Engine sweeps bands on one frontend. It is not safe for concurrent use:
// the frontend can only be tuned to one frequency at a time.
type Engine struct {
	fe     Frontend
	params Params

	timing     Timing
	symbolRate uint32
	minStepKHz uint32
	maxStreams int

	recorder Recorder
	logger   *slog.Logger
}

// New creates an engine with a discard logger
func New(fe Frontend, params Params, options ...func(e *Engine)) *Engine {
	e := Engine{
		fe:         fe,
		params:     params,
		timing:     DefaultTiming(),
		symbolRate: DefaultSymbolRate,
		minStepKHz: DefaultMinStepKHz,
		maxStreams: DefaultMaxStreamsPerCarrier,
		recorder:   nopRecorder{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&e)
	}

	if e.timing.StatusAttempts < 1 {
		e.timing.StatusAttempts = 1
	}
	return &e
}

// Sweep probes band from start to end, appending one entry to list for every
// valid stream the demodulator reports. A failure to clear the frontend or
// to read back a probe result aborts the sweep with a *ProbeError; entries
// already appended stay in list. Cancelling ctx returns ctx.Err().
func (e *Engine) Sweep(ctx context.Context, band Band, list *channel.List) error {
	if band.StartHz > band.EndHz {
		return fmt.Errorf("%w: %s", ErrInvalidBand, band)
	}

	if err := e.fe.SetProperties(dvb.Prop(dvb.CmdClear, 0)); err != nil {
		e.recorder.DeviceError("FE_SET_PROPERTY")
		return &ProbeError{FrequencyHz: band.StartHz, Op: "clearing tuning parameters", Err: err}
	}
	if err := sleep(ctx, e.timing.ClearSettle); err != nil {
		return err
	}

	var (
		cursor  = uint64(band.StartHz)
		end     = uint64(band.EndHz)
		newTune = true
		streams = 0
	)

	for cursor <= end {
		result, err := e.probe(ctx, band, uint32(cursor), newTune, list)
		if err != nil {
			return err
		}

		if result.MoreResults {
			if streams++; streams < e.maxStreams {
				newTune = false
				continue
			}
			e.logger.Warn("too many streams on carrier, moving on",
				slog.Uint64("frequency", cursor),
				slog.Int("streams", streams))
		}
		streams = 0

		if cursor >= end {
			break
		}

		step := result.TunerStepKHz
		if step == 0 {
			e.logger.Warn("device reported zero tuner step, using minimum step",
				slog.Uint64("frequency", cursor),
				slog.Uint64("stepKHz", uint64(e.minStepKHz)))
			step = e.minStepKHz
		}
		e.logger.Debug("stepping tuner", slog.Float64("stepMHz", float64(step)/1e3))

		cursor = min(cursor+uint64(step)*1000, end)
		newTune = true
	}

	return nil
}

func (e *Engine) probe(ctx context.Context, band Band, freqHz uint32, newTune bool, list *channel.List) (Control, error) {
	e.logger.Debug("probing",
		slog.Float64("frequencyMHz", float64(freqHz)/1e6),
		slog.Bool("newTune", newTune))

	start := time.Now()

	if err := e.fe.SetProperties(
		dvb.Prop(dvb.CmdFrequency, freqHz/1000),
		dvb.Prop(dvb.CmdBlindScanControl, Control{NewTune: newTune}.Encode()),
		dvb.Prop(dvb.CmdSymbolRate, e.symbolRate),
		dvb.Prop(dvb.CmdTune, 0),
	); err != nil {
		// Status polling below reports no lock in this case.
		e.recorder.DeviceError("FE_SET_PROPERTY")
		e.logger.Warn("tune request failed",
			slog.Float64("frequencyMHz", float64(freqHz)/1e6),
			slog.String("error", err.Error()))
	}

	if err := sleep(ctx, e.timing.TuneSettle); err != nil {
		return Control{}, err
	}
	if err := e.awaitTuning(ctx); err != nil {
		return Control{}, err
	}

	status, err := e.pollStatus(ctx)
	if err != nil {
		return Control{}, err
	}
	e.recorder.ObserveProbe(time.Since(start), status.Locked())

	props, err := e.fe.GetProperties(readback...)
	if err != nil {
		e.recorder.DeviceError("FE_GET_PROPERTY")
		return Control{}, &ProbeError{FrequencyHz: freqHz, Op: "reading probe result", Err: err}
	}
	if len(props) != len(readback) {
		return Control{}, &ProbeError{
			FrequencyHz: freqHz,
			Op:          "reading probe result",
			Err:         fmt.Errorf("expected %d properties, got %d", len(readback), len(props)),
		}
	}

	result := DecodeControl(props[0].Data)
	if !result.ValidStream {
		e.logger.Debug("no streams", slog.Float64("frequencyMHz", float64(freqHz)/1e6))
		return result, nil
	}

	var pol uint32
	if v, ok := e.params.Retrieve(dvb.ParamPolarization); ok {
		pol = v
	}

	ifKHz := props[1].Data
	entry := channel.Entry{
		FrequencyKHz:   band.RFKHz(ifKHz),
		SymbolRate:     props[2].Data,
		DeliverySystem: dvb.DeliverySystem(props[3].Data),
		Pilot:          dvb.Pilot(props[4].Data),
		StreamID:       props[5].Data,
		Polarization:   dvb.Polarization(pol),
		SatNumber:      channel.SatNumberUnset,
	}
	list.Append(entry)
	e.recorder.StreamFound(entry.DeliverySystem.String())

	attrs := []any{
		slog.Float64("ifMHz", float64(ifKHz)/1e3),
		slog.Float64("frequencyMHz", float64(entry.FrequencyKHz)/1e3),
		slog.Float64("symbolRateMsps", float64(entry.SymbolRate)/1e6),
		slog.String("system", entry.DeliverySystem.String()),
		slog.String("polarization", entry.Polarization.String()),
	}
	if s := entry.Stream(); s.Kind != channel.StreamNone {
		attrs = append(attrs, slog.Int("isi", int(s.ISI)))
		if s.Kind == channel.StreamEmbedded {
			attrs = append(attrs,
				slog.String("t2miPID", fmt.Sprintf("0x%04x", s.PID)),
				slog.Int("t2miPLP", int(s.PLPID)))
		}
	}
	e.logger.Info("stream found", attrs...)

	return result, nil
}

// awaitTuning drains the event queue until the zero status event that marks
// the start of tuning, then discards the event that follows it. The wait is
// bounded by EventTimeout, polling the queue every eventPollInterval.
func (e *Engine) awaitTuning(ctx context.Context) error {
	deadline := time.Now().Add(e.timing.EventTimeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := e.fe.NextEvent()
		if err == nil && ev.Status == 0 {
			break
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			e.logger.Warn("no tuning event before timeout", slog.Duration("timeout", e.timing.EventTimeout))
			return nil
		}
		if err = sleep(ctx, min(eventPollInterval, remaining)); err != nil {
			return err
		}
	}

	// An empty queue here is fine.
	_, _ = e.fe.NextEvent()
	return nil
}

// pollStatus reads the lock status until LOCK or TIMEDOUT is reported or the
// attempts are spent. Read failures count as "no status".
func (e *Engine) pollStatus(ctx context.Context) (dvb.Status, error) {
	var status dvb.Status

	for i := 0; i < e.timing.StatusAttempts; i++ {
		if i > 0 {
			if err := sleep(ctx, e.timing.StatusInterval); err != nil {
				return 0, err
			}
		}

		s, err := e.fe.ReadStatus()
		if err != nil {
			e.recorder.DeviceError("FE_READ_STATUS")
			e.logger.Warn("reading status failed", slog.String("error", err.Error()))
			s = 0
		}
		status = s

		if status.Locked() || status.TimedOut() {
			break
		}
	}

	e.logger.Debug("status", slog.String("status", status.String()))
	return status, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
