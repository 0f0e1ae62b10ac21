package demod

import (
	"hz.tools/sdr"

	"hz.tools/astrotrace/dsp"
)

// passthroughDemod resamples the real component of the block directly,
// with no demodulation. Useful for feeding raw baseband into an audio
// monitor or for testing the scanner pipeline without FM/AM math.
type passthroughDemod struct {
	audioRate float64
}

func (d *passthroughDemod) AudioRate() float64 { return d.audioRate }

func (d *passthroughDemod) Demod(block sdr.SamplesC64, srcRate float64) []float32 {
	if len(block) == 0 {
		return nil
	}
	re := make([]float32, len(block))
	for i, c := range block {
		re[i] = real(c)
	}
	return dsp.Resample(re, srcRate, d.audioRate)
}
