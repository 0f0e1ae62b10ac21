package multidemod

import (
	"io"

	"hz.tools/fftw"
	"hz.tools/rf"
	"hz.tools/sdr"
	"hz.tools/sdr/fft"
	"hz.tools/sdr/stream"
)

// bandpass runs one channel's baseband block through a frequency-domain
// bandpass filter before power measurement, adapted from the teacher's
// internal.Filter + fftw.Plan + stream.ConvolutionReader pipeline
// (hztools-go-fm's demodulator.go/internal/bandpass.go). The teacher
// drives that pipeline over a continuous sdr.Reader; here it runs once
// per block through a tiny in-memory adapter, since a channel's ENABLE
// state and filter width can change between blocks.
//
// This is opt-in (ChannelConfig.PreFilter) and off by default: it adds a
// real FFT+convolution pass per enabled channel per block, which is only
// worth paying for when channels are closely spaced enough that a
// neighboring strong signal would otherwise leak into the power
// measurement.
func bandpass(block sdr.SamplesC64, sampleRate uint, offset, halfBW rf.Hz) sdr.SamplesC64 {
	if len(block) == 0 || halfBW <= 0 {
		return block
	}

	filter := make([]complex64, len(block))
	if err := filterMask(filter, sampleRate, offset, halfBW); err != nil {
		return block
	}

	reader := &blockReader{samples: block, sampleRate: sampleRate}
	filtered, err := stream.ConvolutionReader(reader, fftw.Plan, filter)
	if err != nil {
		return block
	}

	out := make(sdr.SamplesC64, len(block))
	n, err := sdr.ReadFull(filtered, out)
	if err != nil {
		return block
	}
	return out[:n]
}

// filterMask is the teacher's internal.Filter, inlined: it sets every FFT
// bin inside [offset-halfBW, offset+halfBW] to unity gain, leaving the
// rest at the zero value Go already gives a fresh []complex64.
func filterMask(dst []complex64, sampleRate uint, offset, halfBW rf.Hz) error {
	bins, err := fft.BinsByRange(dst, sampleRate, fft.ZeroFirst, rf.Range{offset - halfBW, offset + halfBW})
	if err != nil {
		return err
	}
	for _, idx := range bins {
		dst[idx] = complex64(complex(1, 0))
	}
	return nil
}

// blockReader adapts a single in-memory block to the sdr.Reader interface
// so it can be pushed through stream.ConvolutionReader.
type blockReader struct {
	samples    sdr.SamplesC64
	sampleRate uint
	pos        int
}

func (r *blockReader) Read(buf sdr.Samples) (int, error) {
	dst, ok := buf.(sdr.SamplesC64)
	if !ok {
		return 0, sdr.ErrSampleFormatMismatch
	}
	n := copy(dst, r.samples[r.pos:])
	r.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *blockReader) SampleRate() uint               { return r.sampleRate }
func (r *blockReader) SampleFormat() sdr.SampleFormat { return sdr.SampleFormatC64 }
func (r *blockReader) Close() error                   { return nil }
