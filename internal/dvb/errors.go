package dvb

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceIO matches every IoctlError through errors.Is.
	ErrDeviceIO = errors.New("device i/o failure")

	// ErrUnsupportedFrontend is returned for frontends without Availink blind scan support.
	ErrUnsupportedFrontend = errors.New("frontend not supported")

	// ErrUnsupportedPlatform is returned by Open outside Linux.
	ErrUnsupportedPlatform = errors.New("dvb frontends are only available on linux")

	// ErrClosed is returned when using a closed frontend.
	ErrClosed = errors.New("frontend closed")
)

// IoctlError is a frontend request that failed after the retry budget was spent.
type IoctlError struct {
	Op  string
	Err error
}

func (e *IoctlError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IoctlError) Unwrap() error {
	return e.Err
}

func (e *IoctlError) Is(target error) bool {
	return target == ErrDeviceIO
}
