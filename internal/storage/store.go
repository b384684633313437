package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/blindscan/internal/channel"
)

// Store keeps scan sessions and the channels they discovered.
type Store interface {
	// CreateSession starts a new session and returns its UUID. config is
	// optional and may be a string, []byte or any JSON-serializable value.
	CreateSession(ctx context.Context, info SessionInfo, config any) (sessionID string, err error)

	// Session returns one session by ID.
	Session(ctx context.Context, id string) (*ScanSession, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*ScanSession, error)

	// StoreChannels saves the final channel list of a session in one
	// transaction, preserving list order.
	StoreChannels(ctx context.Context, sessionID string, entries []channel.Entry) error

	// Channels returns the channels of a session in list order, optionally filtered.
	Channels(ctx context.Context, sessionID string, opts ...QueryOption) ([]channel.Entry, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}
