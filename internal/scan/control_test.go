package scan

import "testing"

func TestDecodeControl(t *testing.T) {
	testCases := []struct {
		name string
		word uint32
		want Control
	}{
		{"empty", 0, Control{}},
		{"new tune request", 0x40000000, Control{NewTune: true}},
		{"valid with step", 0x80007530, Control{ValidStream: true, TunerStepKHz: 30000}},
		{"more results", 0xA0000000, Control{ValidStream: true, MoreResults: true}},
		{"step uses 17 bits", 0x0003FFFF, Control{TunerStepKHz: 0x1FFFF}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeControl(tc.word); got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestControlEncode(t *testing.T) {
	if got := (Control{NewTune: true}).Encode(); got != 0x40000000 {
		t.Errorf("expected 0x40000000, got %#x", got)
	}
	if got := (Control{}).Encode(); got != 0 {
		t.Errorf("expected 0, got %#x", got)
	}
}
