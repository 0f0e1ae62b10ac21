// Package demod implements the FM / AM / passthrough demodulator family.
// Every Demodulator is a pure function of (block, sourceRate): no state is
// retained across calls, trading transient artifacts at block boundaries
// for trivial testability, exactly as spec'd.
package demod

import "hz.tools/sdr"

// Mode selects which Demodulator New builds.
type Mode string

const (
	ModeFM          Mode = "FM"
	ModeAM          Mode = "AM"
	ModePassthrough Mode = "PASSTHROUGH"
)

// Demodulator converts a complex baseband block sampled at srcRate into
// real audio at its configured AudioRate. Empty input returns empty
// output.
type Demodulator interface {
	Demod(block sdr.SamplesC64, srcRate float64) []float32
	AudioRate() float64
}

// New builds the Demodulator for mode at the given audio rate. Any mode
// other than FM/AM falls back to Passthrough, matching
// DemodulatorFactory.get in the reference implementation.
func New(mode Mode, audioRate float64) Demodulator {
	switch mode {
	case ModeFM:
		return &fmDemod{audioRate: audioRate}
	case ModeAM:
		return &amDemod{audioRate: audioRate}
	default:
		return &passthroughDemod{audioRate: audioRate}
	}
}
