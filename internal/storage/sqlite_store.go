package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
)

// maxChannelsPerInsert keeps a batch insert below SQLite's bound parameter limit.
const maxChannelsPerInsert = 100

// QueryOption narrows a Channels query.
type QueryOption func(q *channelQuery)

type channelQuery struct {
	polarization *dvb.Polarization
	minFreqKHz   *uint32
	maxFreqKHz   *uint32
}

// WithPolarization returns only channels of polarization p.
func WithPolarization(p dvb.Polarization) QueryOption {
	return func(q *channelQuery) {
		q.polarization = &p
	}
}

// WithFrequencyRange returns only channels between minKHz and maxKHz inclusive.
func WithFrequencyRange(minKHz, maxKHz uint32) QueryOption {
	return func(q *channelQuery) {
		q.minFreqKHz = &minKHz
		q.maxFreqKHz = &maxKHz
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the SQLite database at dbPath.
// Connections are opened on first use; the schema is created with the
// write connection.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, info SessionInfo, config any) (sessionID string, err error) {
	var configData sql.NullString

	if config != nil {
		switch c := config.(type) {
		case string:
			configData.Valid = true
			configData.String = c

		case []byte:
			configData.Valid = true
			configData.String = string(c)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	id := uuid.New().String()
	if _, err = stmt.ExecContext(ctx, id, info.Adapter, info.Frontend, info.FrontendName, info.LNB, configData); err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*ScanSession, error) {
	var sess ScanSession
	var config sql.NullString
	if err := row.Scan(&sess.ID, &sess.StartTime, &sess.Adapter, &sess.Frontend, &sess.FrontendName, &sess.LNB, &config); err != nil {
		return nil, err
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

func (s *SqliteStore) Session(ctx context.Context, id string) (session *ScanSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if session, err = scanSession(stmt.QueryRowContext(ctx, id)); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*ScanSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *ScanSession
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreChannels(ctx context.Context, sessionID string, entries []channel.Entry) (err error) {
	if len(entries) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for start := 0; start < len(entries); start += maxChannelsPerInsert {
		end := min(start+maxChannelsPerInsert, len(entries))
		if err = insertChannels(ctx, tx, sessionID, start, entries[start:end]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func insertChannels(ctx context.Context, tx *sql.Tx, sessionID string, offset int, entries []channel.Entry) error {
	// Prepare values array
	values := make([]any, 0, len(entries)*9)

	// Build batch insert query
	valuesPlaceholder := "(?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertChannelSQL)

	for i, e := range entries {
		data := toChannelData(sessionID, offset+i, e)
		values = append(values,
			data.SessionID,
			data.Position,
			data.Frequency,
			data.SymbolRate,
			data.DeliverySystem,
			data.Polarization,
			data.Pilot,
			data.StreamID,
			data.SatNumber,
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting channels: %w", err)
	}
	return nil
}

func (s *SqliteStore) Channels(ctx context.Context, sessionID string, opts ...QueryOption) (entries []channel.Entry, err error) {
	var q channelQuery
	for _, opt := range opts {
		opt(&q)
	}

	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var sb strings.Builder
	args := []any{sessionID}

	sb.WriteString(selectChannelsSQL)
	if q.polarization != nil {
		sb.WriteString(" AND polarization = ?")
		args = append(args, int64(*q.polarization))
	}
	if q.minFreqKHz != nil {
		sb.WriteString(" AND frequency >= ?")
		args = append(args, int64(*q.minFreqKHz))
	}
	if q.maxFreqKHz != nil {
		sb.WriteString(" AND frequency <= ?")
		args = append(args, int64(*q.maxFreqKHz))
	}
	sb.WriteString(" ORDER BY position")

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		err = fmt.Errorf("querying channels: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var d channelData
		if err = rows.Scan(
			&d.ID,
			&d.SessionID,
			&d.Position,
			&d.Frequency,
			&d.SymbolRate,
			&d.DeliverySystem,
			&d.Polarization,
			&d.Pilot,
			&d.StreamID,
			&d.SatNumber,
		); err != nil {
			err = fmt.Errorf("scanning channel: %w", err)
			return
		}
		entries = append(entries, d.entry())
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
