package lnb

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roman-kulish/blindscan/internal/dvb"
)

var (
	// ErrUnknownLNB is returned by Lookup for a name not in the table.
	ErrUnknownLNB = errors.New("unknown LNB")

	// ErrInvalidBand is returned for a band index or range that cannot be swept.
	ErrInvalidBand = errors.New("invalid LNB band")
)

// Range is one frequency band of an LNB, in MHz.
type Range struct {
	LowMHz       uint32
	HighMHz      uint32
	LOMHz        uint32
	Polarization dvb.Polarization // PolarizationOff when selected by voltage
}

// LNB describes a low-noise block downconverter.
type LNB struct {
	Name           string
	Description    string
	RangeSwitchMHz uint32 // bands whose centre is at or above it need the 22 kHz tone, 0 for none
	Ranges         []Range
}

var table = []LNB{
	{
		Name:           "UNIVERSAL",
		Description:    "Universal, Europe",
		RangeSwitchMHz: 11700,
		Ranges: []Range{
			{LowMHz: 10800, HighMHz: 11800, LOMHz: 9750},
			{LowMHz: 11600, HighMHz: 12700, LOMHz: 10600},
		},
	},
	{
		Name:        "DBS",
		Description: "Expressvu, North America",
		Ranges:      []Range{{LowMHz: 12200, HighMHz: 12700, LOMHz: 11250}},
	},
	{
		Name:        "STANDARD",
		Description: "10945 to 11450 MHz",
		Ranges:      []Range{{LowMHz: 10945, HighMHz: 11450, LOMHz: 10000}},
	},
	{
		Name:        "ENHANCED",
		Description: "Astra",
		Ranges:      []Range{{LowMHz: 10700, HighMHz: 11700, LOMHz: 9750}},
	},
	{
		Name:        "L10700",
		Description: "Ku band, LO 10700 MHz",
		Ranges:      []Range{{LowMHz: 11750, HighMHz: 12750, LOMHz: 10700}},
	},
	{
		Name:        "L10750",
		Description: "Ku band, LO 10750 MHz",
		Ranges:      []Range{{LowMHz: 11700, HighMHz: 12750, LOMHz: 10750}},
	},
	{
		Name:        "L11300",
		Description: "Ku band, LO 11300 MHz",
		Ranges:      []Range{{LowMHz: 12250, HighMHz: 12750, LOMHz: 11300}},
	},
	{
		Name:        "C-BAND",
		Description: "C band, LO 5150 MHz",
		Ranges:      []Range{{LowMHz: 3700, HighMHz: 4200, LOMHz: 5150}},
	},
	{
		Name:        "C-MULT",
		Description: "C band multipoint, right and left circular",
		Ranges: []Range{
			{LowMHz: 3700, HighMHz: 4200, LOMHz: 5150, Polarization: dvb.PolarizationR},
			{LowMHz: 3700, HighMHz: 4200, LOMHz: 5750, Polarization: dvb.PolarizationL},
		},
	},
	{
		Name:        "110BS",
		Description: "Japan 110BS/CS",
		Ranges:      []Range{{LowMHz: 11710, HighMHz: 12751, LOMHz: 10678}},
	},
}

// Lookup finds a built-in LNB by name, ignoring case.
func Lookup(name string) (*LNB, error) {
	for i := range table {
		if strings.EqualFold(table[i].Name, name) {
			l := table[i]
			l.Ranges = append([]Range(nil), table[i].Ranges...)
			return &l, nil
		}
	}
	return nil, fmt.Errorf("%w: '%s', known: %s", ErrUnknownLNB, name, strings.Join(Names(), ", "))
}

// Names lists the built-in LNBs in alphabetical order.
func Names() []string {
	names := make([]string, len(table))
	for i, l := range table {
		names[i] = l.Name
	}
	sort.Strings(names)
	return names
}

// Custom builds an LNB from user supplied ranges.
func Custom(name string, rangeSwitchMHz uint32, ranges []Range) (*LNB, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: custom LNB '%s' has no bands", ErrInvalidBand, name)
	}
	for i, r := range ranges {
		if r.LowMHz == 0 || r.HighMHz < r.LowMHz || r.LOMHz == 0 {
			return nil, fmt.Errorf("%w: custom LNB '%s' band %d: %s", ErrInvalidBand, name, i, r)
		}
	}
	return &LNB{Name: name, Description: "custom", RangeSwitchMHz: rangeSwitchMHz, Ranges: ranges}, nil
}

// Bands returns the bands to sweep: all of them when index is negative,
// otherwise only the one at index.
func (l *LNB) Bands(index int) ([]Band, error) {
	if index >= len(l.Ranges) {
		var sb strings.Builder
		for i, r := range l.Ranges {
			fmt.Fprintf(&sb, "\n\t%d: %s", i, r)
		}
		return nil, fmt.Errorf("%w: %d, LNB %s has %d frequency bands:%s",
			ErrInvalidBand, index, l.Name, len(l.Ranges), sb.String())
	}

	first, last := 0, len(l.Ranges)-1
	if index >= 0 {
		first, last = index, index
	}

	bands := make([]Band, 0, last-first+1)
	for i := first; i <= last; i++ {
		bands = append(bands, Band{Index: i, Range: l.Ranges[i], rangeSwitchMHz: l.RangeSwitchMHz})
	}
	return bands, nil
}

func (r Range) String() string {
	s := fmt.Sprintf("%d to %d MHz, LO: %d MHz", r.LowMHz, r.HighMHz, r.LOMHz)
	if r.Polarization != dvb.PolarizationOff {
		s += ", " + r.Polarization.String()
	}
	return s
}
