// Package scanner drives the capture→squelch→demodulate→log→bundle loop
// over one or more frequencies. It is the component every other package
// in this module feeds.
package scanner

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/astrotrace/bundle"
	"hz.tools/astrotrace/demod"
	"hz.tools/astrotrace/dsp"
	"hz.tools/astrotrace/eventlog"
	"hz.tools/astrotrace/iqsource"
	"hz.tools/astrotrace/multidemod"
)

// blockSize is the number of complex samples read from the source per
// loop iteration.
const blockSize = 4096

// squelchState is the main-channel event state machine (spec.md §4.7 f-i).
type squelchState int

const (
	stateIdle squelchState = iota
	stateActive
)

// Scanner owns one IQ source and runs the capture/demod/event loop
// against it until Stop is called or its context is cancelled.
type Scanner struct {
	cfg    Config
	source iqsource.Source
	evlog  *eventlog.EventLogger
	multi  *multidemod.MultiChannelDemod
	demod  demod.Demodulator

	stopped atomic.Bool
}

// New validates cfg and constructs a Scanner. The IQ source itself is
// opened lazily, inside Run, so that a BackendUnavailableError surfaces
// from Run rather than from New.
func New(cfg Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scanner{cfg: cfg}
	s.multi = multidemod.New(float64(cfg.SampleRate))
	s.multi.SetChannels(cfg.Channels)
	s.demod = demod.New(cfg.Mode, cfg.AudioRate)
	return s, nil
}

// Stop requests the run loop exit at its next safe point. Safe to call
// from any goroutine, any number of times.
func (s *Scanner) Stop() {
	s.stopped.Store(true)
}

// Run opens the source, builds the event logger, and drives the scan
// loop over cfg.Plan's frequencies until Stop is called, the source runs
// dry, or ctx is cancelled. ctx also bounds the dwell/hold sleeps between
// blocks.
func (s *Scanner) Run(ctx context.Context) error {
	src, err := iqsource.New(iqsource.Descriptor{
		Kind:       s.cfg.SourceKind,
		SampleRate: s.cfg.SampleRate,
		CenterFreq: s.cfg.Plan.Start,
		Gain:       s.cfg.Gain,
		FilePath:   s.cfg.SourceFile,
	})
	if err != nil {
		return fmt.Errorf("scanner: opening source: %w", err)
	}
	s.source = src
	defer s.source.Close()

	safeInvoke(s.cfg.Logger, "device_info", func() {
		if s.cfg.Sinks.DeviceInfo != nil {
			s.cfg.Sinks.DeviceInfo(s.source.Info())
		}
	})

	s.evlog = eventlog.New(eventlog.Options{
		CSVPath:         s.cfg.EventCSVPath,
		JSONLPath:       s.cfg.EventJSONLPath,
		TranscriptIndex: s.cfg.TranscriptIndex,
		Logger:          s.cfg.Logger,
	})
	defer s.evlog.Close()

	freqs := s.cfg.Plan.Build()
	sampleRate := float64(s.cfg.SampleRate)
	squelchLinear := math.Pow(10, s.cfg.SquelchDB/20.0)
	scanMode := s.cfg.Plan.ScanMode

	lastSpectrum := time.Time{}
	spectrumInterval := time.Duration(float64(time.Second) / s.cfg.UIMaxFPS)

	idx := 0
	state := stateIdle
	quietBlocks := 0
	var activeFreq rf.Hz
	var activeStart time.Time
	var collectedAudio []float32
	var collectedIQ sdr.SamplesC64

	for {
		if s.stopped.Load() || ctx.Err() != nil {
			return nil
		}

		freq := freqs[idx]

		// Retune and let the hardware settle only while not riding out an
		// active event: an event's block stream must stay on one
		// frequency start to finish.
		if scanMode && state != stateActive {
			if err := s.source.Tune(freq); err != nil {
				s.cfg.Logger.Error("tune failed, skipping frequency", "freq_hz", float64(freq), "err", err)
				idx = (idx + 1) % len(freqs)
				continue
			}
			sleepCtx(ctx, time.Duration(s.cfg.DwellSeconds*float64(time.Second)))
		}

		block, err := s.source.ReadSamples(blockSize)
		if err != nil {
			s.cfg.Logger.Error("read failed", "err", err)
			return err
		}
		if len(block) == 0 {
			return nil
		}

		powerLin := dsp.RMS(block)
		powerDB := 20 * math.Log10(powerLin+1e-9)

		if time.Since(lastSpectrum) >= spectrumInterval {
			axis, power := spectrumFrame(block, sampleRate, float64(freq))
			safeInvoke(s.cfg.Logger, "spectrum", func() {
				if s.cfg.Sinks.Spectrum != nil {
					s.cfg.Sinks.Spectrum(axis, power)
				}
			})
			lastSpectrum = time.Now()
		}

		for _, r := range s.multi.Process(freq, block) {
			r := r
			safeInvoke(s.cfg.Logger, "audio_frame", func() {
				if s.cfg.Sinks.AudioFrame != nil {
					s.cfg.Sinks.AudioFrame(r.Audio)
				}
			})
			safeInvoke(s.cfg.Logger, "audio_level", func() {
				if s.cfg.Sinks.AudioLevel != nil {
					s.cfg.Sinks.AudioLevel(r.AudioRMS)
				}
			})
		}

		if state == stateIdle && powerLin >= squelchLinear {
			state = stateActive
			activeFreq = freq
			quietBlocks = 0
			activeStart = time.Now()
			collectedAudio = nil
			collectedIQ = nil
			nowFreq, nowMode := float64(freq), string(s.cfg.Mode)
			safeInvoke(s.cfg.Logger, "now_playing", func() {
				if s.cfg.Sinks.NowPlaying != nil {
					s.cfg.Sinks.NowPlaying(nowFreq, nowMode)
				}
			})
		}

		if state == stateActive {
			audio := s.demod.Demod(block, sampleRate)
			collectedAudio = append(collectedAudio, audio...)
			collectedIQ = append(collectedIQ, block...)

			safeInvoke(s.cfg.Logger, "audio_frame", func() {
				if s.cfg.Sinks.AudioFrame != nil {
					s.cfg.Sinks.AudioFrame(audio)
				}
			})
			rms := dsp.RMSReal(audio)
			safeInvoke(s.cfg.Logger, "audio_level", func() {
				if s.cfg.Sinks.AudioLevel != nil {
					s.cfg.Sinks.AudioLevel(rms)
				}
			})

			if powerLin < squelchLinear {
				quietBlocks++
			} else {
				quietBlocks = 0
			}
			elapsed := time.Since(activeStart).Seconds()

			if quietBlocks >= 5 || elapsed >= s.cfg.MaxEventSeconds {
				s.closeEvent(activeFreq, sampleRate, powerDB, elapsed, collectedAudio, collectedIQ)
				state = stateIdle
				safeInvoke(s.cfg.Logger, "audio_level_reset", func() {
					if s.cfg.Sinks.AudioLevel != nil {
						s.cfg.Sinks.AudioLevel(0)
					}
				})
				if scanMode {
					sleepCtx(ctx, time.Duration(s.cfg.HoldSeconds*float64(time.Second)))
				}
			}
		}

		if scanMode && state != stateActive {
			idx = (idx + 1) % len(freqs)
		}
	}
}

// closeEvent logs the finished event, optionally transcribes its audio,
// and writes a bundle when the event met min_event_seconds.
func (s *Scanner) closeEvent(freq rf.Hz, sampleRate, powerDB, elapsed float64, audio []float32, iq sdr.SamplesC64) {
	text := ""
	if s.cfg.Transcriber != nil && len(audio) > 0 {
		t, err := s.cfg.Transcriber.Transcribe(audio, s.cfg.AudioRate)
		if err != nil {
			text = "[Transcription Error]"
		} else {
			text = t
		}
	}

	event := s.evlog.LogEvent(float64(freq), text, map[string]any{
		"power_db":   powerDB,
		"duration_s": elapsed,
	})
	safeInvoke(s.cfg.Logger, "event", func() {
		if s.cfg.Sinks.Event != nil {
			s.cfg.Sinks.Event(event)
		}
	})

	if !s.cfg.SaveBundles {
		return
	}
	if elapsed < s.cfg.MinEventSeconds {
		safeInvoke(s.cfg.Logger, "event", func() {
			if s.cfg.Sinks.Event != nil {
				s.cfg.Sinks.Event(fmt.Sprintf("bundle skipped: event duration %.2fs below min_event_seconds", elapsed))
			}
		})
		return
	}

	if _, err := bundle.WriteEventBundle(event, iq, sampleRate, float64(freq), string(s.cfg.Mode), s.cfg.BundleRoot, true); err != nil {
		s.cfg.Logger.Error("bundle write failed", "err", err)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
