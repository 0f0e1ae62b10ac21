// Command astrotrace runs the scan/capture/demod loop from a YAML config
// file, printing events and now-playing updates to stderr until
// interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"hz.tools/astrotrace/config"
	"hz.tools/astrotrace/eventlog"
	"hz.tools/astrotrace/scanner"
)

func main() {
	os.Exit(run())
}

// run does the real work and returns a process exit code; main only
// calls os.Exit so this function stays testable-by-reading.
func run() int {
	configPath := pflag.StringP("config", "c", "astrotrace.yaml", "Path to the run configuration.")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level: debug, info, warn, error.")
	once := pflag.BoolP("once", "1", false, "Exit when the scan loop first returns instead of restarting it; this does not stop after one sweep.")
	pflag.Parse()

	logger := log.New(os.Stderr)
	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unrecognized log level, defaulting to info", "given", *logLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "err", err)
		return 1
	}

	scfg := cfg.ToScannerConfig()
	scfg.Logger = logger
	scfg.Sinks = scanner.Sinks{
		Event: func(payload any) {
			switch v := payload.(type) {
			case eventlog.Event:
				logger.Info("event", "freq_hz", v.FreqHz, "text", v.Text)
			case string:
				logger.Info(v)
			}
		},
		NowPlaying: func(freqHz float64, mode string) {
			logger.Info("now playing", "freq_hz", freqHz, "mode", mode)
		},
		DeviceInfo: func(info map[string]any) {
			logger.Info("device opened", "info", info)
		},
	}

	s, err := scanner.New(scfg)
	if err != nil {
		logger.Error("failed to construct scanner", "err", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown requested")
		s.Stop()
		cancel()
	}()

	// Run keeps sweeping until Stop, ctx cancellation, or the source running
	// dry; --once exits after its first return, otherwise Run is restarted
	// until SIGINT cancels ctx.
	for {
		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scan loop exited with error", "err", err)
			return 1
		}
		if *once || ctx.Err() != nil {
			break
		}
	}

	recent := eventlog.Recent(20)
	fmt.Fprintf(os.Stderr, "\n%d event(s) in this run:\n", len(recent))
	for _, e := range recent {
		fmt.Fprintf(os.Stderr, "  %s  %.4f MHz  %s\n", e.Time, e.FreqHz/1e6, e.Text)
	}
	return 0
}
