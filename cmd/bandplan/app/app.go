package app

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/storage"
)

var ErrNoSessions = errors.New("database has no scan sessions")

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	session, err := findSession(ctx, store, config.SessionID)
	if err != nil {
		return err
	}
	logger = logger.With(slog.String("session", session.ID))

	entries, err := readChannels(ctx, store, session.ID, config, logger)
	if err != nil {
		return err
	}

	plan, err := NewPlan(entries)
	if err != nil {
		return fmt.Errorf("session %s: %w", session.ID, err)
	}

	logger.Info("rendering band plan",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.Int("width", config.Width),
			slog.Int("rows", len(plan.Rows)),
		))

	renderer, err := NewPlanRenderer(RenderConfig{
		Width: config.Width,
		Title: fmt.Sprintf("%s, %s, %s", session.LNB, session.FrontendName,
			session.StartTime.Local().Format(time.DateTime)),
	})
	if err != nil {
		return fmt.Errorf("creating band plan renderer: %w", err)
	}

	img, err := renderer.Render(plan)
	if err != nil {
		return fmt.Errorf("rendering band plan: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	if err = png.Encode(out, img); err != nil {
		_ = out.Close()
		return fmt.Errorf("encoding %s: %w", config.OutputFile, err)
	}
	return out.Close()
}

// findSession returns the named session, or the most recent one when id is
// empty.
func findSession(ctx context.Context, store storage.Store, id string) (*storage.ScanSession, error) {
	if id != "" {
		return store.Session(ctx, id)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}
	return sessions[len(sessions)-1], nil
}

func readChannels(ctx context.Context, store storage.Store, sessionID string, config *Config, logger *slog.Logger) ([]channel.Entry, error) {
	var opts []storage.QueryOption
	var filters []any
	if config.MinFreqMHz != 0 || config.MaxFreqMHz != 0 {
		maxKHz := uint32(config.MaxFreqMHz) * 1000
		if config.MaxFreqMHz == 0 {
			maxKHz = ^uint32(0)
		}
		opts = append(opts, storage.WithFrequencyRange(uint32(config.MinFreqMHz)*1000, maxKHz))
		filters = append(filters,
			slog.Uint64("minFreqMHz", uint64(config.MinFreqMHz)),
			slog.Uint64("maxFreqMHz", uint64(config.MaxFreqMHz)))
	}
	logger.Debug("channel query", filters...)

	entries, err := store.Channels(ctx, sessionID, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("finished reading channels", slog.Int("channels", len(entries)))
	return entries, nil
}
