package app

import (
	"errors"
	"slices"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
)

// rollOffPercent is the widest DVB-S2 roll-off; the plotted width of a
// carrier is its symbol rate times (1 + roll-off).
const rollOffPercent = 35

var ErrEmptyPlan = errors.New("no channels to plot")

// rowOrder is the top-to-bottom order of polarization rows.
var rowOrder = []dvb.Polarization{
	dvb.PolarizationH,
	dvb.PolarizationV,
	dvb.PolarizationL,
	dvb.PolarizationR,
	dvb.PolarizationOff,
}

// Carrier is one channel with its occupied bandwidth.
type Carrier struct {
	channel.Entry
	StartKHz float64
	EndKHz   float64
}

type Row struct {
	Polarization dvb.Polarization
	Carriers     []Carrier
}

// Plan groups channels into one row per polarization over a common
// frequency axis.
type Plan struct {
	FrequencyMinKHz float64
	FrequencyMaxKHz float64
	Rows            []Row
	Channels        int
}

func occupiedKHz(symbolRate uint32) float64 {
	return float64(symbolRate) * (100 + rollOffPercent) / 100 / 1e3
}

func NewPlan(entries []channel.Entry) (*Plan, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyPlan
	}

	byPol := make(map[dvb.Polarization][]Carrier)
	p := Plan{Channels: len(entries)}
	for i, e := range entries {
		half := occupiedKHz(e.SymbolRate) / 2
		c := Carrier{
			Entry:    e,
			StartKHz: float64(e.FrequencyKHz) - half,
			EndKHz:   float64(e.FrequencyKHz) + half,
		}
		if i == 0 || c.StartKHz < p.FrequencyMinKHz {
			p.FrequencyMinKHz = c.StartKHz
		}
		if i == 0 || c.EndKHz > p.FrequencyMaxKHz {
			p.FrequencyMaxKHz = c.EndKHz
		}
		byPol[e.Polarization] = append(byPol[e.Polarization], c)
	}

	for _, pol := range rowOrder {
		carriers, ok := byPol[pol]
		if !ok {
			continue
		}
		sortCarriers(carriers)
		p.Rows = append(p.Rows, Row{Polarization: pol, Carriers: carriers})
		delete(byPol, pol)
	}

	// Polarization values outside the known set go last, in one row each.
	var rest []dvb.Polarization
	for pol := range byPol {
		rest = append(rest, pol)
	}
	slices.Sort(rest)
	for _, pol := range rest {
		sortCarriers(byPol[pol])
		p.Rows = append(p.Rows, Row{Polarization: pol, Carriers: byPol[pol]})
	}

	// Pad the axis so a single carrier still has some room around it.
	if span := p.FrequencyMaxKHz - p.FrequencyMinKHz; span < 1000 {
		pad := (1000 - span) / 2
		p.FrequencyMinKHz -= pad
		p.FrequencyMaxKHz += pad
	}
	return &p, nil
}

func sortCarriers(carriers []Carrier) {
	slices.SortStableFunc(carriers, func(a, b Carrier) int {
		switch {
		case a.StartKHz < b.StartKHz:
			return -1
		case a.StartKHz > b.StartKHz:
			return 1
		}
		return 0
	})
}

// X maps a frequency to a pixel column in [0, width].
func (p *Plan) X(freqKHz float64, width int) int {
	ratio := (freqKHz - p.FrequencyMinKHz) / (p.FrequencyMaxKHz - p.FrequencyMinKHz)
	return int(ratio * float64(width))
}
