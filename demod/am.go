package demod

import (
	"math"

	"hz.tools/sdr"

	"hz.tools/astrotrace/dsp"
)

// amDemod recovers an envelope (|x|), removes its DC component, resamples
// to the audio rate and applies AGC.
type amDemod struct {
	audioRate float64
}

func (d *amDemod) AudioRate() float64 { return d.audioRate }

func (d *amDemod) Demod(block sdr.SamplesC64, srcRate float64) []float32 {
	if len(block) == 0 {
		return nil
	}
	envelope := make([]float32, len(block))
	var mean float64
	for i, c := range block {
		m := float32(math.Hypot(float64(real(c)), float64(imag(c))))
		envelope[i] = m
		mean += float64(m)
	}
	mean /= float64(len(envelope))
	for i := range envelope {
		envelope[i] -= float32(mean)
	}

	audio := dsp.Resample(envelope, srcRate, d.audioRate)
	return dsp.AGC(audio)
}
