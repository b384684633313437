package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
	"github.com/roman-kulish/blindscan/internal/lnb"
	"github.com/roman-kulish/blindscan/internal/scan"
	"github.com/roman-kulish/blindscan/internal/telemetry"
)

// Sweeper sweeps one band into a channel list
type Sweeper interface {
	Sweep(ctx context.Context, band scan.Band, list *channel.List) error
}

// WithOrchestratorLogger sets the logger for the orchestrator
func WithOrchestratorLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithFrequencyLimits clamps every band to the frontend range, in kHz
func WithFrequencyLimits(minKHz, maxKHz uint32) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.minKHz, o.maxKHz = minKHz, maxKHz
	}
}

// WithSatellite selects the DiSEqC input. A negative number disables DiSEqC.
func WithSatellite(satNumber int, diseqcWait time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.satNumber = satNumber
		o.diseqcWait = diseqcWait
	}
}

// WithPolarization overrides the polarization of every band
func WithPolarization(pol dvb.Polarization) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.polarization = pol
	}
}

// WithMetrics sets the metrics updated per band
func WithMetrics(m *telemetry.Metrics) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// Orchestrator sweeps the selected LNB bands one after another on a single
// frontend, accumulating every stream into one channel list.
type Orchestrator struct {
	sec     lnb.SEC
	sweeper Sweeper
	parms   *dvb.Parms

	minKHz, maxKHz uint32
	satNumber      int
	diseqcWait     time.Duration
	polarization   dvb.Polarization

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. parms is the tuning context
// shared with the sweeper.
func NewOrchestrator(sec lnb.SEC, sweeper Sweeper, parms *dvb.Parms, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		sec:       sec,
		sweeper:   sweeper,
		parms:     parms,
		satNumber: -1,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run sweeps bands in order. Bands outside the frontend range are skipped;
// any other failing band stops the run. Entries found until then stay in list.
func (o *Orchestrator) Run(ctx context.Context, bands []lnb.Band, list *channel.List) error {
	for _, band := range bands {
		if err := o.sweepBand(ctx, band, list); err != nil {
			return fmt.Errorf("band %d: %w", band.Index, err)
		}
	}
	return nil
}

func (o *Orchestrator) sweepBand(ctx context.Context, band lnb.Band, list *channel.List) error {
	sb, err := band.Sweep(o.minKHz, o.maxKHz)
	if errors.Is(err, lnb.ErrInvalidBand) {
		o.logger.Warn("skipping band outside the frontend range",
			slog.Int("band", band.Index),
			slog.String("error", err.Error()))
		return nil
	}
	if err != nil {
		return err
	}

	pol := band.PolarizationOr(o.polarization)
	o.parms.Store(dvb.ParamPolarization, uint32(pol))
	o.parms.Store(dvb.ParamFrequency, band.CenterKHz())
	if o.satNumber >= 0 {
		o.parms.Store(dvb.ParamSatNumber, uint32(o.satNumber))
	}

	setup := lnb.Setup{
		Polarization: pol,
		HighBand:     band.HighBand(),
		SatNumber:    o.satNumber,
		DiseqcWait:   o.diseqcWait,
	}
	if err = setup.Apply(ctx, o.sec); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The LNB may be powered externally, so sweep anyway.
		o.metrics.DeviceError("SEC")
		o.logger.Warn("LNB setup failed", slog.Int("band", band.Index), slog.String("error", err.Error()))
	}

	o.logger.Info("scanning frequency band",
		slog.String("band", band.String()),
		slog.Float64("ifStartMHz", float64(sb.StartHz)/1e6),
		slog.Float64("ifStopMHz", float64(sb.EndHz)/1e6),
		slog.String("polarization", pol.String()),
		slog.Bool("highBand", setup.HighBand))

	before := list.Len()
	if err = o.sweeper.Sweep(ctx, sb, list); err != nil {
		return err
	}
	o.metrics.BandCompleted()

	o.logger.Info("band complete",
		slog.Int("band", band.Index),
		slog.Int("streams", list.Len()-before))
	return nil
}
