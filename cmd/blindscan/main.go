package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/blindscan/cmd/blindscan/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var (
		configPath string
		output     string
		band       int
		verbose    bool
	)
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&output, "o", "", "Channel file to write, overrides settings.output")
	flag.IntVar(&band, "band", -1, "LNB band index to scan, -1 for all, overrides lnb.band")
	flag.BoolVar(&verbose, "v", false, "Verbose (debug) logging")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			config.Settings.Output = output
		case "band":
			config.LNB.Band = band
		case "v":
			if verbose {
				config.Settings.LogLevel = slog.LevelDebug
			}
		}
	})
	if err = config.Validate(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	logLevel.Set(config.Settings.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
