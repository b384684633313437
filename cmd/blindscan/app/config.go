package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/blindscan/internal/dvb"
	"github.com/roman-kulish/blindscan/internal/lnb"
	"github.com/roman-kulish/blindscan/internal/scan"
)

const (
	defaultOutput        = "channels.conf"
	defaultDataDirectory = "data"
)

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Device    DeviceConfig    `yaml:"device"`
	LNB       LNBConfig       `yaml:"lnb"`
	Scan      ScanConfig      `yaml:"scan"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel        slog.Level `yaml:"logLevel"`
	Output          string     `yaml:"output"`          // channel file to write
	TimeoutMultiply int        `yaml:"timeoutMultiply"` // scales the lock status attempts
}

// DeviceConfig selects the DVB frontend
type DeviceConfig struct {
	Adapter           int      `yaml:"adapter"`
	Frontend          int      `yaml:"frontend"`
	BlindScanModePath string   `yaml:"blindScanModePath"` // overrides the path derived from the frontend name
	IoctlTimeout      Duration `yaml:"ioctlTimeout"`
}

// LNBConfig selects the LNB, its bands and the satellite input
type LNBConfig struct {
	Name           string       `yaml:"name"`
	Custom         []BandConfig `yaml:"custom"`
	RangeSwitchMHz uint32       `yaml:"rangeSwitch"`
	Band           int          `yaml:"band"`         // -1 sweeps every band
	SatNumber      int          `yaml:"satNumber"`    // DiSEqC input, -1 disables DiSEqC
	DiseqcWait     Duration     `yaml:"diseqcWait"`   // extra wait after a DiSEqC command
	Polarization   string       `yaml:"polarization"` // overrides the band polarization
}

// BandConfig is one custom LNB band, in MHz
type BandConfig struct {
	Low          uint32 `yaml:"low"`
	High         uint32 `yaml:"high"`
	LO           uint32 `yaml:"lo"`
	Polarization string `yaml:"polarization"`
}

// ScanConfig represents the sweep timing and limits
type ScanConfig struct {
	ClearSettle          Duration `yaml:"clearSettle"`
	TuneSettle           Duration `yaml:"tuneSettle"`
	StatusAttempts       int      `yaml:"statusAttempts"`
	StatusInterval       Duration `yaml:"statusInterval"`
	EventTimeout         Duration `yaml:"eventTimeout"`
	MinStepKHz           uint32   `yaml:"minStep"`
	MaxStreamsPerCarrier int      `yaml:"maxStreamsPerCarrier"`
	SymbolRate           uint32   `yaml:"symbolRate"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
}

// TelemetryConfig represents metrics settings
type TelemetryConfig struct {
	ListenAddress string `yaml:"listenAddress"`
	Textfile      string `yaml:"textfile"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the configuration used for anything the file leaves out.
func DefaultConfig() *Config {
	timing := scan.DefaultTiming()

	return &Config{
		Settings: Settings{
			LogLevel:        slog.LevelInfo,
			Output:          defaultOutput,
			TimeoutMultiply: 1,
		},
		Device: DeviceConfig{
			IoctlTimeout: Duration(dvb.DefaultIoctlTimeout),
		},
		LNB: LNBConfig{
			Band:      -1,
			SatNumber: -1,
		},
		Scan: ScanConfig{
			ClearSettle:          Duration(timing.ClearSettle),
			TuneSettle:           Duration(timing.TuneSettle),
			StatusAttempts:       timing.StatusAttempts,
			StatusInterval:       Duration(timing.StatusInterval),
			EventTimeout:         Duration(timing.EventTimeout),
			MinStepKHz:           scan.DefaultMinStepKHz,
			MaxStreamsPerCarrier: scan.DefaultMaxStreamsPerCarrier,
			SymbolRate:           scan.DefaultSymbolRate,
		},
		Storage: StorageConfig{
			DataDirectory: defaultDataDirectory,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the scan cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Settings.Output == "" {
		errs = append(errs, errors.New("settings.output must not be empty"))
	}
	if c.Settings.TimeoutMultiply < 1 {
		errs = append(errs, fmt.Errorf("settings.timeoutMultiply must be at least 1, got %d", c.Settings.TimeoutMultiply))
	}
	if c.Device.Adapter < 0 || c.Device.Frontend < 0 {
		errs = append(errs, errors.New("device.adapter and device.frontend must not be negative"))
	}
	if c.Device.Frontend >= dvb.MaxBlindScanFrontends {
		errs = append(errs, fmt.Errorf("device.frontend must be below %d, got %d", dvb.MaxBlindScanFrontends, c.Device.Frontend))
	}

	switch {
	case c.LNB.Name == "" && len(c.LNB.Custom) == 0:
		errs = append(errs, fmt.Errorf("lnb.name or lnb.custom is required, known LNBs: %v", lnb.Names()))
	case c.LNB.Name != "" && len(c.LNB.Custom) > 0:
		errs = append(errs, errors.New("lnb.name and lnb.custom are mutually exclusive"))
	}
	if c.LNB.Band < -1 {
		errs = append(errs, fmt.Errorf("lnb.band must be -1 or a band index, got %d", c.LNB.Band))
	}
	if _, err := dvb.ParsePolarization(c.LNB.Polarization); err != nil {
		errs = append(errs, fmt.Errorf("lnb.polarization: %w", err))
	}
	for i, b := range c.LNB.Custom {
		if _, err := dvb.ParsePolarization(b.Polarization); err != nil {
			errs = append(errs, fmt.Errorf("lnb.custom[%d].polarization: %w", i, err))
		}
	}

	if c.Scan.StatusAttempts < 1 {
		errs = append(errs, fmt.Errorf("scan.statusAttempts must be at least 1, got %d", c.Scan.StatusAttempts))
	}
	if c.Scan.MinStepKHz == 0 {
		errs = append(errs, errors.New("scan.minStep must be positive"))
	}
	if c.Scan.MaxStreamsPerCarrier < 1 {
		errs = append(errs, errors.New("scan.maxStreamsPerCarrier must be positive"))
	}
	if c.Scan.SymbolRate == 0 {
		errs = append(errs, errors.New("scan.symbolRate must be positive"))
	}

	if c.Storage.Enabled && c.Storage.DataDirectory == "" {
		errs = append(errs, errors.New("storage.dataDirectory must not be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ResolveLNB returns the configured LNB, built-in or custom.
func (c *Config) ResolveLNB() (*lnb.LNB, error) {
	if c.LNB.Name != "" && len(c.LNB.Custom) == 0 {
		return lnb.Lookup(c.LNB.Name)
	}

	ranges := make([]lnb.Range, len(c.LNB.Custom))
	for i, b := range c.LNB.Custom {
		pol, err := dvb.ParsePolarization(b.Polarization)
		if err != nil {
			return nil, err
		}
		ranges[i] = lnb.Range{LowMHz: b.Low, HighMHz: b.High, LOMHz: b.LO, Polarization: pol}
	}

	name := c.LNB.Name
	if name == "" {
		name = "CUSTOM"
	}
	return lnb.Custom(name, c.LNB.RangeSwitchMHz, ranges)
}

// Timing converts the scan section into sweep timings.
func (c *Config) Timing() scan.Timing {
	return scan.Timing{
		ClearSettle:    c.Scan.ClearSettle.Std(),
		TuneSettle:     c.Scan.TuneSettle.Std(),
		EventTimeout:   c.Scan.EventTimeout.Std(),
		StatusAttempts: c.Scan.StatusAttempts * c.Settings.TimeoutMultiply,
		StatusInterval: c.Scan.StatusInterval.Std(),
	}
}
