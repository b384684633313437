package channel

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/roman-kulish/blindscan/internal/dvb"
)

// Write encodes entries in the libdvbv5 DVBv5 channel file format.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)

	for _, e := range entries {
		fmt.Fprintln(bw, "[CHANNEL]")
		writeProp(bw, "DELIVERY_SYSTEM", e.DeliverySystem.String())
		writeProp(bw, "FREQUENCY", e.FrequencyKHz)
		writeProp(bw, "SYMBOL_RATE", e.SymbolRate)
		writeProp(bw, "PILOT", e.Pilot.String())
		if e.StreamID != dvb.NoStreamID {
			writeProp(bw, "STREAM_ID", e.StreamID)
		}
		writeProp(bw, "POLARIZATION", e.Polarization.String())
		if e.SatNumber >= 0 {
			writeProp(bw, "SAT_NUMBER", e.SatNumber)
		}
		fmt.Fprintln(bw)
	}

	return bw.Flush()
}

func writeProp(w io.Writer, name string, value any) {
	fmt.Fprintf(w, "\t%s = %v\n", name, value)
}

// WriteFile writes entries to path, replacing any existing file.
func WriteFile(path string, entries []Entry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating channel file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing channel file: %w", cerr)
		}
	}()

	if err = Write(f, entries); err != nil {
		return fmt.Errorf("writing channel file: %w", err)
	}
	return nil
}
