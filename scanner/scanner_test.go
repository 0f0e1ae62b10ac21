package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/rf"

	"hz.tools/astrotrace/demod"
	"hz.tools/astrotrace/eventlog"
	"hz.tools/astrotrace/iqsource"
)

// sinkCollector records every event delivered to the Event sink,
// including diagnostic strings, guarded by a mutex since Run's loop
// calls sinks from its own goroutine.
type sinkCollector struct {
	mu     sync.Mutex
	events []any
}

func (c *sinkCollector) record(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, v)
}

func (c *sinkCollector) snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.events))
	copy(out, c.events)
	return out
}

func baseConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Plan:            FrequencyPlan{Start: 100e6, ScanMode: false},
		SourceKind:      iqsource.KindSynthetic,
		SampleRate:      250000,
		Mode:            demod.ModeFM,
		AudioRate:       48000,
		SquelchDB:       -40,
		DwellSeconds:    0.3,
		HoldSeconds:     0,
		MaxEventSeconds: 2,
		MinEventSeconds: 0.05,
		EventCSVPath:    t.TempDir() + "/events.log",
		EventJSONLPath:  t.TempDir() + "/events.jsonl",
	}
}

func TestRunEmitsEventWithBundleForSyntheticTone(t *testing.T) {
	cfg := baseConfig(t)
	cfg.SaveBundles = true
	cfg.BundleRoot = t.TempDir()
	col := &sinkCollector{}
	cfg.Sinks.Event = col.record

	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	var sawEvent bool
	for _, e := range col.snapshot() {
		if _, ok := e.(eventlog.Event); ok {
			sawEvent = true
		}
	}
	assert.True(t, sawEvent, "expected at least one eventlog.Event on the Event sink")
}

func TestRunWithSilenceProducesNoEvents(t *testing.T) {
	cfg := baseConfig(t)
	cfg.SquelchDB = 40 // linear threshold far above any synthetic signal power
	col := &sinkCollector{}
	cfg.Sinks.Event = col.record

	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.Empty(t, col.snapshot())
}

func TestRunTrimsEventAtMaxEventSeconds(t *testing.T) {
	cfg := baseConfig(t)
	cfg.SquelchDB = -60 // low enough quiet gaps in the synthetic tone don't close it early
	cfg.MaxEventSeconds = 0.05
	cfg.DwellSeconds = 0.3
	col := &sinkCollector{}
	cfg.Sinks.Event = col.record

	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.NotEmpty(t, col.snapshot())
}

func TestRunBelowMinDurationSkipsBundleButLogsEvent(t *testing.T) {
	cfg := baseConfig(t)
	cfg.SquelchDB = -60
	cfg.MaxEventSeconds = 0.02
	cfg.MinEventSeconds = 10 // no event can ever meet this, forcing the skip path
	cfg.SaveBundles = true
	cfg.BundleRoot = t.TempDir()
	col := &sinkCollector{}
	cfg.Sinks.Event = col.record

	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	var sawSkipped bool
	for _, e := range col.snapshot() {
		if str, ok := e.(string); ok && str != "" {
			sawSkipped = true
		}
	}
	assert.True(t, sawSkipped, "expected at least one diagnostic 'bundle skipped' string event")
}

func TestStopEndsRunPromptly(t *testing.T) {
	cfg := baseConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.Stop()
	}()

	start := time.Now()
	require.NoError(t, s.Run(ctx))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func hzToFloat(in []rf.Hz) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func TestFrequencyPlanDegeneratesWithoutScanMode(t *testing.T) {
	p := FrequencyPlan{Start: 100e6, Stop: 200e6, Step: 1e6, ScanMode: false}
	assert.Equal(t, []float64{100e6}, hzToFloat(p.Build()))
}

func TestFrequencyPlanDegeneratesWithZeroStep(t *testing.T) {
	p := FrequencyPlan{Start: 100e6, Stop: 200e6, Step: 0, ScanMode: true}
	assert.Equal(t, []float64{100e6}, hzToFloat(p.Build()))
}

func TestFrequencyPlanSweepsWhenScanModeWithPositiveStep(t *testing.T) {
	p := FrequencyPlan{Start: 100e6, Stop: 102e6, Step: 1e6, ScanMode: true}
	assert.Equal(t, []float64{100e6, 101e6, 102e6}, hzToFloat(p.Build()))
}
