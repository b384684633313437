package channel

const (
	// FrequencyTolerance is the largest frequency difference, in kHz, at
	// which two entries are considered the same carrier.
	FrequencyTolerance = 5000

	// SymbolRateTolerance is the largest symbol rate difference, in symbols
	// per second, at which two entries are considered the same carrier.
	SymbolRateTolerance = 500000
)

// IsDuplicate reports whether b describes the same logical stream as a.
// Both tolerances are inclusive.
func IsDuplicate(a, b Entry) bool {
	return a.Polarization == b.Polarization &&
		absDiff(a.FrequencyKHz, b.FrequencyKHz) <= FrequencyTolerance &&
		absDiff(a.SymbolRate, b.SymbolRate) <= SymbolRateTolerance &&
		a.StreamID == b.StreamID
}

// Dedupe removes every entry that duplicates an earlier surviving entry and
// returns the number removed. Survivors keep their relative order. onRemove,
// if not nil, is called for each removed entry with the entry it matched.
func (l *List) Dedupe(onRemove func(removed, kept Entry)) int {
	kept := l.entries[:0]

next:
	for _, e := range l.entries {
		for _, k := range kept {
			if IsDuplicate(k, e) {
				if onRemove != nil {
					onRemove(e, k)
				}
				continue next
			}
		}
		kept = append(kept, e)
	}

	removed := len(l.entries) - len(kept)
	clear(l.entries[len(kept):])
	l.entries = kept
	return removed
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
