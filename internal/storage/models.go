package storage

import (
	"database/sql"
)

type channelData struct {
	ID             int64
	SessionID      string
	Position       int
	Frequency      int64
	SymbolRate     int64
	DeliverySystem int64
	Polarization   int64
	Pilot          int64
	StreamID       sql.NullInt64
	SatNumber      sql.NullInt64
}
