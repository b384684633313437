package dvb

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

var blindScanModePaths = map[string]string{
	"Availink avl62x1": "/sys/module/avl62x1/parameters/bs_mode",
	"Availink avl68x2": "/sys/module/avl68x2/parameters/bs_mode",
}

// BlindScanModePath maps a frontend name, as reported by FE_GET_INFO, to the
// driver parameter that switches it into blind scan mode.
func BlindScanModePath(frontendName string) (string, error) {
	path, ok := blindScanModePaths[frontendName]
	if !ok {
		return "", fmt.Errorf("%w: '%s', only 'Availink avl62x1' and 'Availink avl68x2' are supported",
			ErrUnsupportedFrontend, frontendName)
	}
	return path, nil
}

// BlindScanMode toggles one frontend's bit in the driver's bs_mode bitmask.
// Enable and Disable are idempotent.
type BlindScanMode struct {
	path     string
	frontend int
}

// MaxBlindScanFrontends is the width of the bs_mode mask.
const MaxBlindScanFrontends = 32

func NewBlindScanMode(path string, frontend int) (*BlindScanMode, error) {
	if frontend < 0 || frontend >= MaxBlindScanFrontends {
		return nil, fmt.Errorf("%w: frontend %d has no bit in the %d bit blind scan mask",
			ErrUnsupportedFrontend, frontend, MaxBlindScanFrontends)
	}
	return &BlindScanMode{path: path, frontend: frontend}, nil
}

func (m *BlindScanMode) Path() string {
	return m.path
}

func (m *BlindScanMode) Enable() error {
	if err := m.update(func(mask uint64) uint64 { return mask | m.bit() }); err != nil {
		return fmt.Errorf("setting blind scan mode: %w", err)
	}
	return nil
}

func (m *BlindScanMode) Disable() error {
	if err := m.update(func(mask uint64) uint64 { return mask &^ m.bit() }); err != nil {
		return fmt.Errorf("unsetting blind scan mode: %w", err)
	}
	return nil
}

// Enabled reports whether the frontend's bit is currently set.
func (m *BlindScanMode) Enabled() (bool, error) {
	mask, err := m.read()
	if err != nil {
		return false, err
	}
	return mask&m.bit() != 0, nil
}

func (m *BlindScanMode) bit() uint64 {
	return 1 << uint(m.frontend)
}

func (m *BlindScanMode) read() (uint64, error) {
	p, err := os.ReadFile(m.path)
	if err != nil {
		return 0, err
	}

	s := strings.TrimSpace(string(p))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	mask, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", m.path, err)
	}
	return mask, nil
}

func (m *BlindScanMode) update(fn func(uint64) uint64) error {
	mask, err := m.read()
	if err != nil {
		return err
	}

	next := fn(mask)
	if next == mask {
		return nil
	}

	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(f, "0x%04x", next); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
