package iqsource

import (
	"hz.tools/rf"
	"hz.tools/sdr"
	"hz.tools/sdr/rtl"
)

// rtlSource wraps an RTL-SDR dongle opened through hz.tools/sdr/rtl.
type rtlSource struct {
	dev        *rtl.Sdr
	sampleRate uint
	centerFreq rf.Hz
	gain       *float64
}

// newRTL opens the first attached RTL-SDR dongle. Any failure to open the
// device (driver missing, no dongle attached, permissions) is reported as
// a BackendUnavailableError rather than a bare error, so the caller can
// treat it as the terminal, expected-in-CI condition it is.
func newRTL(sampleRate uint, centerFreq rf.Hz, gain *float64) (Source, error) {
	dev, err := rtl.Open(0)
	if err != nil {
		return nil, &BackendUnavailableError{
			Backend: "rtl",
			Cause:   err,
			Hint:    "install librtlsdr and attach an RTL-SDR dongle",
		}
	}
	if err := dev.SetSampleRate(sampleRate); err != nil {
		dev.Close()
		return nil, &BackendUnavailableError{Backend: "rtl", Cause: err}
	}
	if err := dev.SetCenterFrequency(centerFreq); err != nil {
		dev.Close()
		return nil, &BackendUnavailableError{Backend: "rtl", Cause: err}
	}
	if gain != nil {
		_ = dev.SetGain(*gain)
	} else {
		_ = dev.SetAutoGain(true)
	}
	return &rtlSource{dev: dev, sampleRate: sampleRate, centerFreq: centerFreq, gain: gain}, nil
}

func (s *rtlSource) ReadSamples(n int) (sdr.SamplesC64, error) {
	buf := make(sdr.SamplesC64, n)
	i, err := s.dev.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:i], nil
}

func (s *rtlSource) Tune(freqHz rf.Hz) error {
	s.centerFreq = freqHz
	return s.dev.SetCenterFrequency(freqHz)
}

func (s *rtlSource) Close() error {
	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	return err
}

func (s *rtlSource) Info() map[string]any {
	info := map[string]any{
		"name":        "RTL-SDR",
		"sample_rate": s.sampleRate,
		"center_freq": float64(s.centerFreq),
	}
	if s.gain != nil {
		info["gain"] = *s.gain
	} else {
		info["gain"] = "auto"
	}
	if s.dev != nil {
		if name, err := s.dev.Name(); err == nil {
			info["product"] = name
		}
	}
	return info
}
