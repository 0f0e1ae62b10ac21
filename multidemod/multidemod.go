// Package multidemod mixes and demodulates many narrow channels out of
// one wideband IQ block.
package multidemod

import (
	"math"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/astrotrace/demod"
	"hz.tools/astrotrace/dsp"
)

// ChannelConfig describes one narrow channel to carve out of the
// wideband stream.
type ChannelConfig struct {
	FreqHz    rf.Hz
	Mode      demod.Mode
	SquelchDB float64
	Enabled   bool
	Label     string
	AudioRate float64
	// PreFilter opts this channel into a bandpass filter (no decimation)
	// ahead of power measurement (see prefilter.go). Off by default;
	// this is the resolution of the §9 Open Question on pre-filtering.
	PreFilter    bool
	FilterHalfBW rf.Hz
}

// SquelchLinear converts SquelchDB to linear amplitude: 10^(db/20).
func (c ChannelConfig) SquelchLinear() float64 {
	return math.Pow(10, c.SquelchDB/20.0)
}

// ChannelState holds the runtime demodulator and last-observed readings
// for one configured channel.
type ChannelState struct {
	Config      ChannelConfig
	demod       demod.Demodulator
	AudioRMS    float64
	LastAudio   []float32
	LastPowerDB float64
}

// Result is what Process returns for each channel that passed squelch
// and produced non-empty audio.
type Result struct {
	FreqHz   float64
	Mode     demod.Mode
	Audio    []float32
	AudioRMS float64
	PowerDB  float64
}

// MultiChannelDemod manages a set of channels demodulated out of a single
// wideband IQ stream every block.
type MultiChannelDemod struct {
	sampleRate float64
	channels   []*ChannelState
}

// New builds a MultiChannelDemod for samples arriving at sampleRate.
func New(sampleRate float64) *MultiChannelDemod {
	return &MultiChannelDemod{sampleRate: sampleRate}
}

// SetChannels replaces the full channel set.
func (m *MultiChannelDemod) SetChannels(cfgs []ChannelConfig) {
	m.channels = make([]*ChannelState, 0, len(cfgs))
	for _, cfg := range cfgs {
		audioRate := cfg.AudioRate
		if audioRate == 0 {
			audioRate = 16000
		}
		m.channels = append(m.channels, &ChannelState{
			Config: cfg,
			demod:  demod.New(cfg.Mode, audioRate),
		})
	}
}

// Channels returns the current channel states (read-only use; callers
// must not mutate LastAudio in place).
func (m *MultiChannelDemod) Channels() []*ChannelState {
	return m.channels
}

// Process mixes each enabled channel down to baseband, measures its
// linear power, and demodulates it if it clears squelch. The local
// oscillator phase resets every block (n runs 0..N-1 each call); no
// cross-block phase continuity is required by spec.
func (m *MultiChannelDemod) Process(centerFreq rf.Hz, block sdr.SamplesC64) []Result {
	if len(block) == 0 || len(m.channels) == 0 {
		return nil
	}

	var results []Result
	for _, ch := range m.channels {
		if !ch.Config.Enabled {
			continue
		}

		baseband := mixDown(block, float64(ch.Config.FreqHz-centerFreq), m.sampleRate)
		if ch.Config.PreFilter {
			// After mixDown the channel sits at 0 Hz, so the passband is centered there.
			baseband = bandpass(baseband, uint(m.sampleRate), 0, ch.Config.FilterHalfBW)
		}

		powerLin := dsp.RMS(baseband)
		powerDB := 20 * math.Log10(powerLin+1e-6)
		ch.LastPowerDB = powerDB

		if powerLin < ch.Config.SquelchLinear() {
			ch.LastAudio = nil
			ch.AudioRMS = 0
			continue
		}

		audio := ch.demod.Demod(baseband, m.sampleRate)
		if len(audio) == 0 {
			continue
		}
		ch.LastAudio = audio
		ch.AudioRMS = dsp.RMSReal(audio)

		results = append(results, Result{
			FreqHz:   float64(ch.Config.FreqHz),
			Mode:     ch.Config.Mode,
			Audio:    audio,
			AudioRMS: ch.AudioRMS,
			PowerDB:  powerDB,
		})
	}
	return results
}

// mixDown multiplies block by a complex local oscillator at offsetHz,
// resetting phase at the start of every call (n = 0..N-1).
func mixDown(block sdr.SamplesC64, offsetHz, sampleRate float64) sdr.SamplesC64 {
	out := make(sdr.SamplesC64, len(block))
	for n, c := range block {
		theta := -2 * math.Pi * offsetHz * float64(n) / sampleRate
		lo := complex(float32(math.Cos(theta)), float32(math.Sin(theta)))
		out[n] = c * lo
	}
	return out
}
