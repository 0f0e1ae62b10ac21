// Package iqsource defines the uniform interface for producing complex
// baseband samples and the concrete backends (hardware, file, synthetic)
// that implement it.
package iqsource

import (
	"fmt"

	"hz.tools/rf"
	"hz.tools/sdr"
)

// Kind identifies which backend a Source descriptor refers to.
type Kind string

const (
	KindRTL       Kind = "rtl"
	KindSoapy     Kind = "soapy"
	KindFile      Kind = "file"
	KindSynthetic Kind = "synthetic"
)

// Validate reports whether k is one of the known backend kinds.
func (k Kind) Validate() error {
	switch k {
	case KindRTL, KindSoapy, KindFile, KindSynthetic:
		return nil
	default:
		return fmt.Errorf("iqsource: unknown source kind %q", k)
	}
}

// Descriptor describes a Source at construction time. It is immutable
// except for CenterFreq, which Source.Tune updates.
type Descriptor struct {
	Kind        Kind
	SampleRate  uint
	CenterFreq  rf.Hz
	Gain        *float64 // nil means "auto"
	FilePath    string
	SyntheticCfg SyntheticConfig
}

// Source is the uniform interface every backend implements.
//
// ReadSamples may return fewer than n samples. An empty, error-free block
// signals end of stream and tells the caller to terminate. Tune and Close
// must be idempotent where the backend allows it.
type Source interface {
	ReadSamples(n int) (sdr.SamplesC64, error)
	Tune(freqHz rf.Hz) error
	Close() error
	Info() map[string]any
}

// BackendUnavailableError wraps the underlying cause of a hardware backend
// failing to initialize (missing driver, missing library, no device
// attached). Construction code should surface Error() directly to the
// user and treat it as fatal to the run.
type BackendUnavailableError struct {
	Backend string
	Cause   error
	Hint    string
}

func (e *BackendUnavailableError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("%s backend unavailable: %v (%s)", e.Backend, e.Cause, e.Hint)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }

// New constructs a Source from a Descriptor.
func New(d Descriptor) (Source, error) {
	if err := d.Kind.Validate(); err != nil {
		return nil, err
	}
	switch d.Kind {
	case KindSynthetic:
		return NewSynthetic(d.SampleRate, d.CenterFreq, d.SyntheticCfg), nil
	case KindFile:
		if d.FilePath == "" {
			return nil, fmt.Errorf("iqsource: file source requires FilePath")
		}
		return NewFile(d.SampleRate, d.CenterFreq, d.FilePath)
	case KindRTL:
		return newRTL(d.SampleRate, d.CenterFreq, d.Gain)
	case KindSoapy:
		return newSoapy(d.SampleRate, d.CenterFreq, d.Gain)
	default:
		return nil, fmt.Errorf("iqsource: unknown source kind %q", d.Kind)
	}
}
