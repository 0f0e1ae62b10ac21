// Package config loads the YAML run configuration and maps it onto
// scanner.Config, the way the reference CLI's config.yaml feeds its
// scanner constructor.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hz.tools/rf"

	"hz.tools/astrotrace/demod"
	"hz.tools/astrotrace/iqsource"
	"hz.tools/astrotrace/multidemod"
	"hz.tools/astrotrace/scanner"
)

// Channel is one secondary-channel entry in the YAML document.
type Channel struct {
	FreqHz       float64 `yaml:"freq_hz"`
	Mode         string  `yaml:"mode"`
	SquelchDB    float64 `yaml:"squelch_db"`
	Enabled      bool    `yaml:"enabled"`
	Label        string  `yaml:"label"`
	AudioRate    float64 `yaml:"audio_rate"`
	PreFilter    bool    `yaml:"pre_filter"`
	FilterHalfBW float64 `yaml:"filter_half_bw_hz"`
}

// Config is the on-disk run configuration.
type Config struct {
	Source struct {
		Kind       string   `yaml:"kind"`
		SampleRate uint     `yaml:"sample_rate"`
		Gain       *float64 `yaml:"gain"`
		FilePath   string   `yaml:"file_path"`
	} `yaml:"source"`

	Frequency struct {
		StartHz  float64 `yaml:"start_hz"`
		StopHz   float64 `yaml:"stop_hz"`
		StepHz   float64 `yaml:"step_hz"`
		ScanMode bool    `yaml:"scan_mode"`
	} `yaml:"frequency"`

	Demod struct {
		Mode      string  `yaml:"mode"`
		AudioRate float64 `yaml:"audio_rate"`
		SquelchDB float64 `yaml:"squelch_db"`
	} `yaml:"demod"`

	Timing struct {
		DwellSeconds    float64 `yaml:"dwell_seconds"`
		HoldSeconds     float64 `yaml:"hold_seconds"`
		HuntMode        bool    `yaml:"hunt_mode"`
		MaxEventSeconds float64 `yaml:"max_event_seconds"`
		MinEventSeconds float64 `yaml:"min_event_seconds"`
	} `yaml:"timing"`

	UI struct {
		MaxFPS float64 `yaml:"max_fps"`
	} `yaml:"ui"`

	Channels []Channel `yaml:"channels"`

	Bundles struct {
		Save bool   `yaml:"save"`
		Root string `yaml:"root"`
	} `yaml:"bundles"`

	Journal struct {
		CSVPath   string `yaml:"csv_path"`
		JSONLPath string `yaml:"jsonl_path"`
	} `yaml:"journal"`
}

// Load reads and parses the YAML config at path.
func Load(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ToScannerConfig maps the YAML document onto scanner.Config. Sinks and
// collaborators (Transcriber, TranscriptIndex, Logger) are left for the
// caller to attach afterward, since those are Go-native wiring the YAML
// document has no vocabulary for.
func (c Config) ToScannerConfig() scanner.Config {
	channels := make([]multidemod.ChannelConfig, 0, len(c.Channels))
	for _, ch := range c.Channels {
		channels = append(channels, multidemod.ChannelConfig{
			FreqHz:       rf.Hz(ch.FreqHz),
			Mode:         demod.Mode(ch.Mode),
			SquelchDB:    ch.SquelchDB,
			Enabled:      ch.Enabled,
			Label:        ch.Label,
			AudioRate:    ch.AudioRate,
			PreFilter:    ch.PreFilter,
			FilterHalfBW: rf.Hz(ch.FilterHalfBW),
		})
	}

	return scanner.Config{
		Plan: scanner.FrequencyPlan{
			Start:    rf.Hz(c.Frequency.StartHz),
			Stop:     rf.Hz(c.Frequency.StopHz),
			Step:     rf.Hz(c.Frequency.StepHz),
			ScanMode: c.Frequency.ScanMode,
		},
		SourceKind:      iqsource.Kind(c.Source.Kind),
		SampleRate:      c.Source.SampleRate,
		Gain:            c.Source.Gain,
		SourceFile:      c.Source.FilePath,
		Mode:            demod.Mode(c.Demod.Mode),
		AudioRate:       c.Demod.AudioRate,
		SquelchDB:       c.Demod.SquelchDB,
		DwellSeconds:    c.Timing.DwellSeconds,
		HoldSeconds:     c.Timing.HoldSeconds,
		HuntMode:        c.Timing.HuntMode,
		MaxEventSeconds: c.Timing.MaxEventSeconds,
		MinEventSeconds: c.Timing.MinEventSeconds,
		UIMaxFPS:        c.UI.MaxFPS,
		Channels:        channels,
		SaveBundles:     c.Bundles.Save,
		BundleRoot:      c.Bundles.Root,
		EventCSVPath:    c.Journal.CSVPath,
		EventJSONLPath:  c.Journal.JSONLPath,
	}
}
