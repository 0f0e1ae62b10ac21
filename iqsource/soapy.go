package iqsource

import (
	"fmt"

	"hz.tools/rf"
	"hz.tools/sdr"
)

// soapySource wraps a SoapySDR device. No SoapySDR binding is linked into
// this module: soapyOpen always fails, so every soapy source construction
// reports BackendUnavailableError, which keeps this package buildable on
// machines that never touch SoapySDR.
type soapySource struct {
	dev        soapyDevice
	sampleRate uint
	centerFreq rf.Hz
	gain       *float64
}

// soapyDevice is the minimal surface this package needs from a SoapySDR
// device handle, kept narrow so the real cgo binding can be swapped in
// behind the soapysdr build tag without touching callers.
type soapyDevice interface {
	SetSampleRate(rate float64) error
	SetFrequency(hz float64) error
	SetGain(db float64) error
	SetGainAuto() error
	ReadStream(buf []complex64) (int, error)
	DriverKey() string
	HardwareKey() string
	Close() error
}

func newSoapy(sampleRate uint, centerFreq rf.Hz, gain *float64) (Source, error) {
	dev, err := soapyOpen()
	if err != nil {
		return nil, &BackendUnavailableError{
			Backend: "soapy",
			Cause:   err,
			Hint:    "this build has no SoapySDR binding linked in",
		}
	}
	if err := dev.SetSampleRate(float64(sampleRate)); err != nil {
		dev.Close()
		return nil, &BackendUnavailableError{Backend: "soapy", Cause: err}
	}
	if err := dev.SetFrequency(float64(centerFreq)); err != nil {
		dev.Close()
		return nil, &BackendUnavailableError{Backend: "soapy", Cause: err}
	}
	if gain != nil {
		_ = dev.SetGain(*gain)
	} else {
		_ = dev.SetGainAuto()
	}
	return &soapySource{dev: dev, sampleRate: sampleRate, centerFreq: centerFreq, gain: gain}, nil
}

func (s *soapySource) ReadSamples(n int) (sdr.SamplesC64, error) {
	buf := make(sdr.SamplesC64, n)
	i, err := s.dev.ReadStream(buf)
	if err != nil {
		return nil, err
	}
	return buf[:i], nil
}

func (s *soapySource) Tune(freqHz rf.Hz) error {
	s.centerFreq = freqHz
	return s.dev.SetFrequency(float64(freqHz))
}

func (s *soapySource) Close() error {
	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	return err
}

func (s *soapySource) Info() map[string]any {
	info := map[string]any{
		"name":        "SoapySDR",
		"sample_rate": s.sampleRate,
		"center_freq": float64(s.centerFreq),
	}
	if s.gain != nil {
		info["gain"] = *s.gain
	} else {
		info["gain"] = "auto"
	}
	if s.dev != nil {
		info["driver"] = s.dev.DriverKey()
		info["hardware"] = s.dev.HardwareKey()
	}
	return info
}

// soapyOpen always returns an error: this module has no device binding,
// so every soapy source construction is a BackendUnavailable, exactly as
// the reference implementation treats a missing `SoapySDR` Python import.
func soapyOpen() (soapyDevice, error) {
	return nil, fmt.Errorf("soapysdr: no device module linked into this build")
}
