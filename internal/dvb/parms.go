package dvb

// Param names a value kept on the tuning context rather than sent to the device.
type Param int

const (
	ParamPolarization Param = iota
	ParamFrequency
	ParamSatNumber
)

// Parms is the session-level tuning context. It is owned by a single scan
// session and is not safe for concurrent use.
type Parms struct {
	values map[Param]uint32
}

func NewParms() *Parms {
	return &Parms{values: make(map[Param]uint32)}
}

// Store sets a context parameter, replacing any previous value.
func (p *Parms) Store(param Param, value uint32) {
	p.values[param] = value
}

// Retrieve returns the stored value and whether it was set.
func (p *Parms) Retrieve(param Param) (uint32, bool) {
	v, ok := p.values[param]
	return v, ok
}
