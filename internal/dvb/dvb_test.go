package dvb

import "testing"

func TestParsePolarization(t *testing.T) {
	testCases := []struct {
		in      string
		want    Polarization
		wantErr bool
	}{
		{"", PolarizationOff, false},
		{"h", PolarizationH, false},
		{"Vertical", PolarizationV, false},
		{" LEFT ", PolarizationL, false},
		{"r", PolarizationR, false},
		{"diagonal", PolarizationOff, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePolarization(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPolarizationHigh(t *testing.T) {
	for pol, want := range map[Polarization]bool{
		PolarizationOff: false,
		PolarizationH:   true,
		PolarizationV:   false,
		PolarizationL:   true,
		PolarizationR:   false,
	} {
		if got := pol.High(); got != want {
			t.Errorf("%s: expected %v, got %v", pol, want, got)
		}
	}
}

func TestStatus(t *testing.T) {
	s := StatusHasSignal | StatusHasCarrier | StatusHasLock
	if !s.Locked() {
		t.Error("expected locked")
	}
	if s.TimedOut() {
		t.Error("did not expect timed out")
	}
	if got := s.String(); got != "SIGNAL|CARRIER|LOCK" {
		t.Errorf("unexpected string %q", got)
	}
	if got := Status(0).String(); got != "NONE" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestParms(t *testing.T) {
	p := NewParms()
	if _, ok := p.Retrieve(ParamPolarization); ok {
		t.Fatal("expected empty context")
	}

	p.Store(ParamPolarization, uint32(PolarizationV))
	v, ok := p.Retrieve(ParamPolarization)
	if !ok || Polarization(v) != PolarizationV {
		t.Errorf("expected VERTICAL, got %d (set=%v)", v, ok)
	}
}
