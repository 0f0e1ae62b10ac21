package iqsource

import (
	"math"
	"math/rand"
	"time"

	"hz.tools/rf"
	"hz.tools/sdr"
)

const (
	syntheticNoiseAmplitude = 0.08
	syntheticToneHz         = 25_000.0
	syntheticBurstPeriodS   = 10.0
	syntheticBurstOnS       = 3.0
)

// SyntheticConfig tunes the deterministic-ish generator. A nil Seed uses
// the current time at construction as entropy (fine for a running receiver); tests
// should set a fixed Seed so repeated runs produce identical noise, per
// the determinism requirement in spec.md §9.
type SyntheticConfig struct {
	Seed *int64
}

// syntheticSource produces complex-Gaussian noise plus a tone that gates
// on for syntheticBurstOnS seconds out of every syntheticBurstPeriodS,
// with a phase continuous across blocks. The accumulate-a-running-sample-
// counter-then-derive-phase approach is adapted from the teacher's
// Modulator.write, which tracks timeOffset across Write calls the same
// way so a carrier's phase never resets at a buffer boundary.
type syntheticSource struct {
	sampleRate uint
	centerFreq rf.Hz
	rng        *rand.Rand
	sampleIdx  uint64
}

// NewSynthetic builds a synthetic IQ source. Close is a no-op.
func NewSynthetic(sampleRate uint, centerFreq rf.Hz, cfg SyntheticConfig) Source {
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	return &syntheticSource{
		sampleRate: sampleRate,
		centerFreq: centerFreq,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (s *syntheticSource) ReadSamples(n int) (sdr.SamplesC64, error) {
	if n <= 0 {
		return sdr.SamplesC64{}, nil
	}
	sr := float64(s.sampleRate)
	n0 := s.sampleIdx
	out := make(sdr.SamplesC64, n)

	for i := 0; i < n; i++ {
		sampleN := n0 + uint64(i)
		noiseI := syntheticNoiseAmplitude * float32(s.rng.NormFloat64())
		noiseQ := syntheticNoiseAmplitude * float32(s.rng.NormFloat64())

		nominalT := float64(sampleN) / sr
		phaseInBurst := math.Mod(nominalT, syntheticBurstPeriodS)

		var toneI, toneQ float32
		if phaseInBurst < syntheticBurstOnS {
			theta := 2.0 * math.Pi * syntheticToneHz * float64(sampleN) / sr
			toneI = float32(math.Cos(theta))
			toneQ = float32(math.Sin(theta))
		}

		out[i] = complex(noiseI+toneI, noiseQ+toneQ)
	}

	s.sampleIdx += uint64(n)
	return out, nil
}

func (s *syntheticSource) Tune(freqHz rf.Hz) error {
	s.centerFreq = freqHz
	return nil
}

func (s *syntheticSource) Close() error { return nil }

func (s *syntheticSource) Info() map[string]any {
	return map[string]any{
		"name":        "Synthetic Source",
		"sample_rate": s.sampleRate,
		"center_freq": float64(s.centerFreq),
	}
}
