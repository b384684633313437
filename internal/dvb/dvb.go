package dvb

import (
	"fmt"
	"strings"
)

// Cmd identifies a DVBv5 frontend property.
type Cmd uint32

const (
	CmdTune           Cmd = 1
	CmdClear          Cmd = 2
	CmdFrequency      Cmd = 3
	CmdSymbolRate     Cmd = 8
	CmdPilot          Cmd = 12
	CmdDeliverySystem Cmd = 17

	// CmdBlindScanControl carries the Availink blind-scan control/result word.
	// The driver borrows the ISDB-T sub-band segment index property for it.
	CmdBlindScanControl Cmd = 21

	// CmdStreamID is DTV_STREAM_ID (formerly DTV_ISDBS_TS_ID).
	CmdStreamID Cmd = 42
)

var cmdNames = map[Cmd]string{
	CmdTune:             "TUNE",
	CmdClear:            "CLEAR",
	CmdFrequency:        "FREQUENCY",
	CmdSymbolRate:       "SYMBOL_RATE",
	CmdPilot:            "PILOT",
	CmdDeliverySystem:   "DELIVERY_SYSTEM",
	CmdBlindScanControl: "BS_CTRL",
	CmdStreamID:         "STREAM_ID",
}

func (c Cmd) String() string {
	if name, ok := cmdNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CMD(%d)", uint32(c))
}

// NoStreamID is reported for CmdStreamID when the carrier does not
// multiplex several input streams.
const NoStreamID uint32 = ^uint32(0)

// Property is a single DVBv5 command/value pair.
type Property struct {
	Cmd  Cmd
	Data uint32
}

// Prop is a shorthand for building a Property.
func Prop(cmd Cmd, data uint32) Property {
	return Property{Cmd: cmd, Data: data}
}

// Status is the fe_status_t bit set reported by FE_READ_STATUS and events.
type Status uint32

const (
	StatusHasSignal  Status = 0x01
	StatusHasCarrier Status = 0x02
	StatusHasViterbi Status = 0x04
	StatusHasSync    Status = 0x08
	StatusHasLock    Status = 0x10
	StatusTimedOut   Status = 0x20
	StatusReinit     Status = 0x40
)

func (s Status) Locked() bool {
	return s&StatusHasLock != 0
}

func (s Status) TimedOut() bool {
	return s&StatusTimedOut != 0
}

func (s Status) String() string {
	if s == 0 {
		return "NONE"
	}

	var parts []string
	for _, f := range []struct {
		bit  Status
		name string
	}{
		{StatusHasSignal, "SIGNAL"},
		{StatusHasCarrier, "CARRIER"},
		{StatusHasViterbi, "VITERBI"},
		{StatusHasSync, "SYNC"},
		{StatusHasLock, "LOCK"},
		{StatusTimedOut, "TIMEDOUT"},
		{StatusReinit, "REINIT"},
	} {
		if s&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Event is a frontend event as returned by FE_GET_EVENT.
type Event struct {
	Status    Status
	Frequency uint32
}

// DeliverySystem mirrors enum fe_delivery_system.
type DeliverySystem uint32

const (
	SysUndefined DeliverySystem = 0
	SysDVBS      DeliverySystem = 5
	SysDVBS2     DeliverySystem = 6
)

func (d DeliverySystem) String() string {
	switch d {
	case SysDVBS:
		return "DVBS"
	case SysDVBS2:
		return "DVBS2"
	default:
		return fmt.Sprintf("SYS(%d)", uint32(d))
	}
}

// Pilot mirrors enum fe_pilot. The scanner passes it through untouched.
type Pilot uint32

const (
	PilotOn   Pilot = 0
	PilotOff  Pilot = 1
	PilotAuto Pilot = 2
)

func (p Pilot) String() string {
	switch p {
	case PilotOn:
		return "ON"
	case PilotOff:
		return "OFF"
	case PilotAuto:
		return "AUTO"
	default:
		return fmt.Sprintf("PILOT(%d)", uint32(p))
	}
}

// Polarization follows the libdvbv5 numbering used in channel files.
type Polarization uint32

const (
	PolarizationOff Polarization = iota
	PolarizationH
	PolarizationV
	PolarizationL
	PolarizationR
)

func (p Polarization) String() string {
	switch p {
	case PolarizationOff:
		return "OFF"
	case PolarizationH:
		return "HORIZONTAL"
	case PolarizationV:
		return "VERTICAL"
	case PolarizationL:
		return "LEFT"
	case PolarizationR:
		return "RIGHT"
	default:
		return fmt.Sprintf("POL(%d)", uint32(p))
	}
}

// High reports whether the polarization is selected with the 18V supply.
func (p Polarization) High() bool {
	return p == PolarizationH || p == PolarizationL
}

// ParsePolarization accepts full names or single letters, case-insensitive.
func ParsePolarization(s string) (Polarization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return PolarizationOff, nil
	case "h", "horizontal":
		return PolarizationH, nil
	case "v", "vertical":
		return PolarizationV, nil
	case "l", "left":
		return PolarizationL, nil
	case "r", "right":
		return PolarizationR, nil
	default:
		return PolarizationOff, fmt.Errorf("unknown polarization %q", s)
	}
}

// Voltage mirrors enum fe_sec_voltage.
type Voltage uint32

const (
	Voltage13  Voltage = 0
	Voltage18  Voltage = 1
	VoltageOff Voltage = 2
)

// Tone mirrors enum fe_sec_tone_mode.
type Tone uint32

const (
	ToneOn  Tone = 0
	ToneOff Tone = 1
)

// Info is the subset of struct dvb_frontend_info the scanner uses.
// Satellite frontends report frequencies in kHz.
type Info struct {
	Name                string
	FrequencyMin        uint32
	FrequencyMax        uint32
	FrequencyStepSize   uint32
	FrequencyTolerance  uint32
	SymbolRateMin       uint32
	SymbolRateMax       uint32
	SymbolRateTolerance uint32
	Caps                uint32
}
