package channel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/roman-kulish/blindscan/internal/dvb"
)

func TestWrite(t *testing.T) {
	entries := []Entry{
		{
			FrequencyKHz:   11_766_000,
			SymbolRate:     27_500_000,
			DeliverySystem: dvb.SysDVBS2,
			Polarization:   dvb.PolarizationH,
			Pilot:          dvb.PilotOn,
			StreamID:       dvb.NoStreamID,
			SatNumber:      SatNumberUnset,
		},
		{
			FrequencyKHz:   10_714_000,
			SymbolRate:     22_000_000,
			DeliverySystem: dvb.SysDVBS,
			Polarization:   dvb.PolarizationV,
			Pilot:          dvb.PilotOff,
			StreamID:       2,
			SatNumber:      1,
		},
	}

	want := "[CHANNEL]\n" +
		"\tDELIVERY_SYSTEM = DVBS2\n" +
		"\tFREQUENCY = 11766000\n" +
		"\tSYMBOL_RATE = 27500000\n" +
		"\tPILOT = ON\n" +
		"\tPOLARIZATION = HORIZONTAL\n" +
		"\n" +
		"[CHANNEL]\n" +
		"\tDELIVERY_SYSTEM = DVBS\n" +
		"\tFREQUENCY = 10714000\n" +
		"\tSYMBOL_RATE = 22000000\n" +
		"\tPILOT = OFF\n" +
		"\tSTREAM_ID = 2\n" +
		"\tPOLARIZATION = VERTICAL\n" +
		"\tSAT_NUMBER = 1\n" +
		"\n"

	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}

	path := filepath.Join(t.TempDir(), "channels.conf")
	if err := WriteFile(path, entries); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	p, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading channel file: %v", err)
	}
	if string(p) != want {
		t.Errorf("file content differs from Write output")
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output, got %q", buf.String())
	}
}
