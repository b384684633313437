package scan

// Availink blind scan control/result word, carried in dvb.CmdBlindScanControl.
const (
	ctrlValidStream = 0x80000000
	ctrlNewTune     = 0x40000000
	ctrlMoreResults = 0x20000000
	ctrlTunerStep   = 0x0001FFFF
)

// Control is the decoded blind scan control/result word. NewTune is the only
// field the host sets; the others are reported back by the demodulator.
type Control struct {
	ValidStream  bool   // the current lock holds a stream
	NewTune      bool   // start a new carrier search rather than enumerate the current carrier
	MoreResults  bool   // the current carrier holds further streams
	TunerStepKHz uint32 // estimated carrier bandwidth, used to move to the next carrier
}

func DecodeControl(w uint32) Control {
	return Control{
		ValidStream:  w&ctrlValidStream != 0,
		NewTune:      w&ctrlNewTune != 0,
		MoreResults:  w&ctrlMoreResults != 0,
		TunerStepKHz: w & ctrlTunerStep,
	}
}

func (c Control) Encode() uint32 {
	var w uint32
	if c.ValidStream {
		w |= ctrlValidStream
	}
	if c.NewTune {
		w |= ctrlNewTune
	}
	if c.MoreResults {
		w |= ctrlMoreResults
	}
	return w | c.TunerStepKHz&ctrlTunerStep
}
