package channel

import (
	"fmt"

	"github.com/roman-kulish/blindscan/internal/dvb"
)

// StreamKind tells how a raw stream identifier is laid out.
type StreamKind int

const (
	// StreamNone is a carrier without multiple input streams.
	StreamNone StreamKind = iota

	// StreamSimple carries an input stream identifier only.
	StreamSimple

	// StreamEmbedded is a T2-MI stream: the ISI plus the PID and PLP of the
	// embedded DVB-T2 stream.
	StreamEmbedded
)

const (
	isiMask = 0xFF

	t2miFlagShift = 29
	t2miPIDShift  = 16
	t2miPIDMask   = 0x1FFF
	t2miPLPShift  = 8
	t2miPLPMask   = 0xFF
)

// StreamID is a decoded DTV_STREAM_ID word. Raw is kept because entries are
// compared and persisted by the raw value.
type StreamID struct {
	Kind  StreamKind
	ISI   uint8
	PID   uint16
	PLPID uint8
	Raw   uint32
}

func DecodeStreamID(raw uint32) StreamID {
	if raw == dvb.NoStreamID {
		return StreamID{Kind: StreamNone, Raw: raw}
	}

	s := StreamID{
		Kind: StreamSimple,
		ISI:  uint8(raw & isiMask),
		Raw:  raw,
	}
	if (raw>>t2miFlagShift)&1 == 1 {
		s.Kind = StreamEmbedded
		s.PID = uint16((raw >> t2miPIDShift) & t2miPIDMask)
		s.PLPID = uint8((raw >> t2miPLPShift) & t2miPLPMask)
	}
	return s
}

func (s StreamID) String() string {
	switch s.Kind {
	case StreamNone:
		return "no stream id"
	case StreamEmbedded:
		return fmt.Sprintf("ISI %d T2MI PID 0x%04x PLP %d", s.ISI, s.PID, s.PLPID)
	default:
		return fmt.Sprintf("ISI %d", s.ISI)
	}
}
