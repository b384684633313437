package scan

import "testing"

func TestBandRFKHz(t *testing.T) {
	normal := Band{LOKHz: 9_750_000}
	if got := normal.RFKHz(1_000_000); got != 10_750_000 {
		t.Errorf("expected 10750000, got %d", got)
	}

	inverted := Band{LOKHz: 5_150_000, InvertLO: true}
	if got := inverted.RFKHz(1_000_000); got != 4_150_000 {
		t.Errorf("expected 4150000, got %d", got)
	}
}
