package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRMSEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.Equal(t, 0.0, RMS([]complex64{}))
}

func TestRMSAlwaysNonNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(t, "n")
		x := make([]complex64, n)
		for i := range x {
			re := rapid.Float32Range(-1000, 1000).Draw(t, "re")
			im := rapid.Float32Range(-1000, 1000).Draw(t, "im")
			x[i] = complex(re, im)
		}
		assert.GreaterOrEqual(t, RMS(x), 0.0)
	})
}

func TestRMSOfConstantSignal(t *testing.T) {
	x := make([]complex64, 10)
	for i := range x {
		x[i] = complex(3, 4) // |3+4i| = 5
	}
	assert.InDelta(t, 5.0, RMS(x), 1e-6)
}

func TestResampleLengthFormula(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		src := rapid.Float64Range(1000, 500000).Draw(t, "src")
		tgt := rapid.Float64Range(1000, 500000).Draw(t, "tgt")
		x := make([]float32, n)
		out := Resample(x, src, tgt)
		want := int(math.Ceil(float64(n) * tgt / src))
		if src == tgt {
			want = n
		}
		assert.Equal(t, want, len(out))
	})
}

func TestResampleIdentityWhenRatesMatch(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	out := Resample(x, 16000, 16000)
	assert.Equal(t, x, out)
}

func TestSinglePoleLowPassStartsAtZero(t *testing.T) {
	x := []float32{1, 1, 1, 1}
	out := SinglePoleLowPass(x, 0.5)
	// y[0] = 0.5*0 + 0.5*1 = 0.5
	assert.InDelta(t, 0.5, out[0], 1e-6)
}

func TestDeemphasisEmptyInput(t *testing.T) {
	assert.Empty(t, Deemphasis(nil, 16000))
}

func TestAGCScalesTowardTarget(t *testing.T) {
	x := make([]float32, 100)
	for i := range x {
		x[i] = 1.0
	}
	out := AGC(x)
	var sumSq float64
	for _, s := range out {
		sumSq += float64(s) * float64(s)
	}
	gotRMS := math.Sqrt(sumSq / float64(len(out)))
	assert.InDelta(t, AGCTargetRMS, gotRMS, 1e-3)
}

func TestAGCEmptyInput(t *testing.T) {
	assert.Empty(t, AGC(nil))
}
