package demod

import (
	"math"
	"math/cmplx"

	"hz.tools/sdr"

	"hz.tools/astrotrace/dsp"
)

// fmDemod recovers instantaneous frequency from successive sample phase
// differences. The core of Demod is the same trick as the teacher's
// fm.Demodulator.Read: phase(buf[i] * conj(buf[i-1])) is the wrapped phase
// delta between adjacent samples, which is instantaneous frequency scaled
// by 2*pi/srcRate, without ever needing to unwrap a running phase. This
// implementation runs it over the whole block and rescales to Hz, rather
// than driving it from an sdr.Reader one convolution/downsample stage at a
// time, since this package's Demodulator is a stateless pure function of a
// single block (§9 design note).
type fmDemod struct {
	audioRate float64
}

func (d *fmDemod) AudioRate() float64 { return d.audioRate }

func (d *fmDemod) Demod(block sdr.SamplesC64, srcRate float64) []float32 {
	if len(block) < 2 {
		return nil
	}

	instFreq := make([]float32, len(block)-1)
	var mean float64
	for i := 1; i < len(block); i++ {
		delta := cmplx.Phase(complex128(block[i]) * cmplx.Conj(complex128(block[i-1])))
		f := float32(delta * srcRate / (2 * math.Pi))
		instFreq[i-1] = f
		mean += float64(f)
	}
	mean /= float64(len(instFreq))
	for i := range instFreq {
		instFreq[i] -= float32(mean)
	}

	deemph := dsp.Deemphasis(instFreq, srcRate)
	audio := dsp.Resample(deemph, srcRate, d.audioRate)
	return dsp.AGC(audio)
}
