package scan

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrInvalidBand is returned for a band whose start lies above its end.
var ErrInvalidBand = errors.New("invalid band")

// ProbeError is a device failure that aborted a sweep, with the cursor
// position at which it happened.
type ProbeError struct {
	FrequencyHz uint32
	Op          string
	Err         error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Op, humanize.SIWithDigits(float64(e.FrequencyHz), 3, "Hz"), e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
