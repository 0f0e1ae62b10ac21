package scanner

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"hz.tools/rf"

	"hz.tools/astrotrace/demod"
	"hz.tools/astrotrace/eventlog"
	"hz.tools/astrotrace/iqsource"
	"hz.tools/astrotrace/multidemod"
)

// Transcriber turns a closed event's audio into text. It is an external
// collaborator: Scanner never constructs one itself, only calls it.
type Transcriber interface {
	Transcribe(audio []float32, audioRate float64) (string, error)
}

// FrequencyPlan describes the span Scanner sweeps.
type FrequencyPlan struct {
	Start rf.Hz
	Stop  rf.Hz
	Step  rf.Hz
	// ScanMode, when false, degenerates the plan to a single frequency
	// (Start) regardless of Stop/Step, matching manual-tune operation.
	ScanMode bool
}

// Build expands the plan to its concrete frequency list. A scan plan
// whose Step is non-positive also degenerates to [Start] — sweeping with
// a zero or negative step can never make progress, so it is treated the
// same as manual mode rather than looping forever.
func (p FrequencyPlan) Build() []rf.Hz {
	if !p.ScanMode || p.Step <= 0 {
		return []rf.Hz{p.Start}
	}
	var out []rf.Hz
	for f := p.Start; f <= p.Stop; f += p.Step {
		out = append(out, f)
	}
	if len(out) == 0 {
		out = append(out, p.Start)
	}
	return out
}

// Config collects every constructor parameter spec.md §4.7 lists for
// Scanner. Zero values for the optional fields fall back to the defaults
// noted per field.
type Config struct {
	Plan       FrequencyPlan
	SourceKind iqsource.Kind
	SampleRate uint
	Gain       *float64
	SourceFile string

	Mode      demod.Mode
	AudioRate float64 // default 48000 if zero

	SquelchDB float64

	DwellSeconds float64 // scan-mode settle sleep after tuning, before the next read
	HoldSeconds  float64 // scan-mode pause after an event closes before resuming
	HuntMode     bool    // clamps DwellSeconds to <=0.12s for fast sweeps

	MaxEventSeconds float64 // default 6
	MinEventSeconds float64 // default 1, bundles below this are diagnostic-only

	UIMaxFPS float64 // spectrum sink rate limit, default 20

	Channels []multidemod.ChannelConfig // optional secondary demod channels

	Transcriber     Transcriber // optional
	TranscriptIndex eventlog.TranscriptIndex

	SaveBundles bool
	BundleRoot  string // default "./events" if empty and SaveBundles is true

	EventCSVPath   string
	EventJSONLPath string

	Logger *log.Logger
	Sinks  Sinks
}

// Validate checks invariants Scanner's loop depends on and fills in
// documented defaults.
func (c *Config) Validate() error {
	if err := c.SourceKind.Validate(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	if c.SampleRate == 0 {
		return fmt.Errorf("scanner: sample rate must be > 0")
	}
	if c.Plan.Start <= 0 {
		return fmt.Errorf("scanner: plan start frequency must be > 0")
	}
	if c.AudioRate <= 0 {
		c.AudioRate = 48000
	}
	if c.MaxEventSeconds <= 0 {
		c.MaxEventSeconds = 6
	}
	if c.MinEventSeconds <= 0 {
		c.MinEventSeconds = 1
	}
	if c.MinEventSeconds > c.MaxEventSeconds {
		return fmt.Errorf("scanner: min_event_seconds must be <= max_event_seconds")
	}
	if c.UIMaxFPS <= 0 {
		c.UIMaxFPS = 20
	}
	if c.DwellSeconds <= 0 {
		c.DwellSeconds = 0.05
	}
	if c.HuntMode && c.DwellSeconds > 0.12 {
		c.DwellSeconds = 0.12
	}
	if c.SaveBundles && c.BundleRoot == "" {
		c.BundleRoot = "./events"
	}
	if c.Logger == nil {
		c.Logger = log.New(os.Stderr)
	}
	return nil
}
