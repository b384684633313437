package app

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultWidth = 1600
	minWidth     = 400
)

type Config struct {
	DBPath     string
	SessionID  string // empty selects the most recent session
	OutputFile string
	Width      int
	MinFreqMHz uint
	MaxFreqMHz uint
	Verbose    bool
}

func NewConfig() *Config {
	return &Config{
		Width: defaultWidth,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	flag.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flag.StringVar(&c.SessionID, "s", "", "Session ID, defaults to the latest session")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output PNG file")
	flag.IntVar(&c.Width, "w", defaultWidth, "Width of the plot area in pixels")
	flag.UintVar(&c.MinFreqMHz, "min-freq", 0, "Only plot channels at or above this frequency (MHz)")
	flag.UintVar(&c.MaxFreqMHz, "max-freq", 0, "Only plot channels at or below this frequency (MHz)")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.Parse()

	if err := c.Validate(); err != nil {
		flag.Usage()
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("db path is required")
	case c.OutputFile == "":
		return errors.New("output file is required")
	case c.Width < minWidth:
		return fmt.Errorf("width must be at least %d pixels", minWidth)
	case c.MaxFreqMHz != 0 && c.MinFreqMHz > c.MaxFreqMHz:
		return fmt.Errorf("min-freq %d MHz is above max-freq %d MHz", c.MinFreqMHz, c.MaxFreqMHz)
	}

	if ext := strings.ToLower(filepath.Ext(c.OutputFile)); ext != ".png" {
		c.OutputFile += ".png"
	}
	return nil
}
