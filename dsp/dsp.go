// Package dsp holds the pure DSP primitives shared by the demodulator
// family: power measurement, linear resampling, a single-pole IIR low
// pass, FM de-emphasis, and a one-shot AGC.
package dsp

import "math"

// RMS returns sqrt(mean(|x|^2)); RMS(nil) == 0.
func RMS(x []complex64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, c := range x {
		re, im := float64(real(c)), float64(imag(c))
		sum += re*re + im*im
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RMSReal returns sqrt(mean(x^2)) for real-valued samples; RMSReal(nil) == 0.
func RMSReal(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Resample linearly interpolates real samples from srcRate to tgtRate.
// The output length is ceil(len(x) * tgtRate / srcRate). It is not
// anti-aliased; that is an accepted tradeoff for this engine's
// prototype-grade demodulators.
func Resample(x []float32, srcRate, tgtRate float64) []float32 {
	if len(x) == 0 || srcRate == tgtRate {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}
	ratio := tgtRate / srcRate
	newLen := int(math.Ceil(float64(len(x)) * ratio))
	out := make([]float32, newLen)
	if newLen == 0 {
		return out
	}
	// np.linspace(0, len(x), newLen, endpoint=False) sample positions,
	// linearly interpolated against the source index.
	step := float64(len(x)) / float64(newLen)
	for i := 0; i < newLen; i++ {
		pos := float64(i) * step
		lo := int(math.Floor(pos))
		if lo >= len(x)-1 {
			out[i] = x[len(x)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = float32(float64(x[lo])*(1-frac) + float64(x[lo+1])*frac)
	}
	return out
}

// SinglePoleLowPass applies y[n] = alpha*y[n-1] + (1-alpha)*x[n], y[-1] = 0.
func SinglePoleLowPass(x []float32, alpha float64) []float32 {
	if len(x) == 0 {
		return x
	}
	out := make([]float32, len(x))
	var acc float64
	for i, s := range x {
		acc = alpha*acc + (1-alpha)*float64(s)
		out[i] = float32(acc)
	}
	return out
}

// DeemphasisTau is the FM broadcast de-emphasis time constant, 75us.
const DeemphasisTau = 75e-6

// Deemphasis applies the single-pole FM de-emphasis filter at sampleRate.
func Deemphasis(x []float32, sampleRate float64) []float32 {
	if len(x) == 0 {
		return x
	}
	alpha := math.Exp(-1.0 / (sampleRate * DeemphasisTau))
	return SinglePoleLowPass(x, alpha)
}

// AGC constants: target RMS and the epsilon that keeps the divisor off zero.
const (
	AGCTargetRMS = 0.1
	agcEpsilon   = 1e-6
)

// AGC scales x so its RMS is approximately AGCTargetRMS.
func AGC(x []float32) []float32 {
	if len(x) == 0 {
		return x
	}
	var sumSq float64
	for _, s := range x {
		sumSq += float64(s) * float64(s)
	}
	r := math.Sqrt(sumSq/float64(len(x))) + agcEpsilon
	scale := AGCTargetRMS / r
	out := make([]float32, len(x))
	for i, s := range x {
		out[i] = float32(float64(s) * scale)
	}
	return out
}
