package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
	"github.com/roman-kulish/blindscan/internal/scan"
	"github.com/roman-kulish/blindscan/internal/storage"
	"github.com/roman-kulish/blindscan/internal/telemetry"
)

const storageFile = "blindscan.sqlite"

// Run executes one blind scan session as configured.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	started := time.Now()

	l, err := config.ResolveLNB()
	if err != nil {
		return fmt.Errorf("resolving LNB: %w", err)
	}
	bands, err := l.Bands(config.LNB.Band)
	if err != nil {
		return err
	}
	pol, err := dvb.ParsePolarization(config.LNB.Polarization)
	if err != nil {
		return err
	}

	metrics := telemetry.New()
	if addr := config.Telemetry.ListenAddress; addr != "" {
		serveCtx, stopServing := context.WithCancel(ctx)
		defer stopServing()

		go func() {
			if err := metrics.Serve(serveCtx, addr, logger); err != nil {
				logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	fe, err := dvb.Open(config.Device.Adapter, config.Device.Frontend,
		dvb.WithLogger(logger),
		dvb.WithIoctlTimeout(config.Device.IoctlTimeout.Std()))
	if err != nil {
		return fmt.Errorf("opening frontend: %w", err)
	}
	defer fe.Close()

	info, err := fe.Info()
	if err != nil {
		return fmt.Errorf("querying frontend: %w", err)
	}
	logger.Info("frontend",
		slog.String("name", info.Name),
		slog.String("fmin", humanize.SIWithDigits(float64(info.FrequencyMin)*1e3, 3, "Hz")),
		slog.String("fmax", humanize.SIWithDigits(float64(info.FrequencyMax)*1e3, 3, "Hz")),
		slog.String("srmin", humanize.SIWithDigits(float64(info.SymbolRateMin), 3, "Sps")),
		slog.String("srmax", humanize.SIWithDigits(float64(info.SymbolRateMax), 3, "Sps")))

	modePath := config.Device.BlindScanModePath
	if modePath == "" {
		if modePath, err = dvb.BlindScanModePath(info.Name); err != nil {
			return err
		}
	}

	mode, err := dvb.NewBlindScanMode(modePath, fe.Index())
	if err != nil {
		return err
	}
	if err = mode.Enable(); err != nil {
		return err
	}
	defer func() {
		if dErr := mode.Disable(); dErr != nil {
			logger.Error("failed to leave blind scan mode", slog.String("path", mode.Path()), slog.String("error", dErr.Error()))
			if err == nil {
				err = dErr
			}
		}
	}()

	var store storage.Store
	var sessionID string
	if config.Storage.Enabled {
		if store, err = createStorage(&config.Storage); err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		sessionID, err = store.CreateSession(ctx, storage.SessionInfo{
			Adapter:      fe.Adapter(),
			Frontend:     fe.Index(),
			FrontendName: info.Name,
			LNB:          l.Name,
		}, config)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		logger = logger.With(slog.String("session", sessionID))
	}

	logger.Info("using LNB", slog.String("lnb", l.Name), slog.String("description", l.Description), slog.Int("bands", len(bands)))

	parms := dvb.NewParms()
	engine := scan.New(fe, parms,
		scan.WithLogger(logger),
		scan.WithTiming(config.Timing()),
		scan.WithTelemetry(metrics),
		scan.WithPlaceholderSymbolRate(config.Scan.SymbolRate),
		scan.WithMinStep(config.Scan.MinStepKHz),
		scan.WithMaxStreamsPerCarrier(config.Scan.MaxStreamsPerCarrier))

	orchestrator := NewOrchestrator(fe, engine, parms,
		WithOrchestratorLogger(logger),
		WithFrequencyLimits(info.FrequencyMin, info.FrequencyMax),
		WithSatellite(config.LNB.SatNumber, config.LNB.DiseqcWait.Std()),
		WithPolarization(pol),
		WithMetrics(metrics))

	list := channel.NewList()
	if err = orchestrator.Run(ctx, bands, list); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scan aborted: %w", err)
		}
		logger.Warn("scan interrupted, writing channels found so far", slog.Int("entries", list.Len()))
	}

	return finish(context.WithoutCancel(ctx), config, list, metrics, store, sessionID, logger, started)
}

// finish deduplicates the list and writes every output.
func finish(ctx context.Context, config *Config, list *channel.List, metrics *telemetry.Metrics,
	store storage.Store, sessionID string, logger *slog.Logger, started time.Time) error {

	list.Dedupe(func(removed, kept channel.Entry) {
		metrics.DuplicateRemoved()
		logger.Info("removing channel duplicate",
			slog.String("removed", removed.String()),
			slog.String("kept", kept.String()))
	})

	entries := list.Entries()
	metrics.SetChannels(len(entries))
	logger.Info(fmt.Sprintf("found a total of %d channels", len(entries)),
		slog.Duration("elapsed", time.Since(started).Round(time.Second)))

	if err := channel.WriteFile(config.Settings.Output, entries); err != nil {
		return err
	}
	logger.Info("channel file written", slog.String("path", config.Settings.Output))

	if store != nil {
		if err := store.StoreChannels(ctx, sessionID, entries); err != nil {
			return fmt.Errorf("storing channels: %w", err)
		}
	}

	metrics.ScanCompleted(time.Now())
	if path := config.Telemetry.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			return err
		}
	}
	return nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	dir := config.DataDirectory
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return nil, fmt.Errorf("checking storage directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return storage.NewSqliteStore(filepath.Join(dir, storageFile)), nil
}
