package storage

import (
	"database/sql"
	"errors"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toChannelData(sessionID string, position int, e channel.Entry) *channelData {
	var streamID sql.NullInt64
	if e.StreamID != dvb.NoStreamID {
		streamID.Int64 = int64(e.StreamID)
		streamID.Valid = true
	}

	var satNumber sql.NullInt64
	if e.SatNumber >= 0 {
		satNumber.Int64 = int64(e.SatNumber)
		satNumber.Valid = true
	}

	return &channelData{
		SessionID:      sessionID,
		Position:       position,
		Frequency:      int64(e.FrequencyKHz),
		SymbolRate:     int64(e.SymbolRate),
		DeliverySystem: int64(e.DeliverySystem),
		Polarization:   int64(e.Polarization),
		Pilot:          int64(e.Pilot),
		StreamID:       streamID,
		SatNumber:      satNumber,
	}
}

func (d *channelData) entry() channel.Entry {
	e := channel.Entry{
		FrequencyKHz:   uint32(d.Frequency),
		SymbolRate:     uint32(d.SymbolRate),
		DeliverySystem: dvb.DeliverySystem(d.DeliverySystem),
		Polarization:   dvb.Polarization(d.Polarization),
		Pilot:          dvb.Pilot(d.Pilot),
		StreamID:       dvb.NoStreamID,
		SatNumber:      channel.SatNumberUnset,
	}
	if d.StreamID.Valid {
		e.StreamID = uint32(d.StreamID.Int64)
	}
	if d.SatNumber.Valid {
		e.SatNumber = int32(d.SatNumber.Int64)
	}
	return e
}
