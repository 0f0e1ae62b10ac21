package iqsource

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"hz.tools/rf"
	"hz.tools/sdr"
)

// fileSource replays a pre-recorded array of complex64 samples (raw
// little-endian IQ, the same layout bundle.WriteEventBundle produces) from disk.
// Exhaustion wraps back to the start: read_samples never terminates the
// stream on its own. See DESIGN.md for why this reference behavior was
// kept rather than made a hard stop.
type fileSource struct {
	sampleRate uint
	centerFreq rf.Hz
	path       string
	data       sdr.SamplesC64
	ptr        int
}

// NewFile loads path entirely into memory as complex64 IQ samples.
func NewFile(sampleRate uint, centerFreq rf.Hz, path string) (Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("iqsource: reading %s: %w", path, err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("iqsource: %s length %d is not a multiple of 8 bytes (complex64 pairs)", path, len(raw))
	}
	n := len(raw) / 8
	data := make(sdr.SamplesC64, n)
	for i := 0; i < n; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8+4:]))
		data[i] = complex(re, im)
	}
	return &fileSource{
		sampleRate: sampleRate,
		centerFreq: centerFreq,
		path:       path,
		data:       data,
	}, nil
}

func (s *fileSource) ReadSamples(n int) (sdr.SamplesC64, error) {
	if len(s.data) == 0 {
		return nil, nil
	}
	end := s.ptr + n
	if end > len(s.data) {
		end = len(s.data)
	}
	out := s.data[s.ptr:end]
	s.ptr = end
	if s.ptr >= len(s.data) {
		s.ptr = 0
	}
	return out, nil
}

func (s *fileSource) Tune(freqHz rf.Hz) error {
	s.centerFreq = freqHz
	return nil
}

func (s *fileSource) Close() error {
	s.data = nil
	return nil
}

func (s *fileSource) Info() map[string]any {
	return map[string]any{
		"name":          "File Source",
		"sample_rate":   s.sampleRate,
		"center_freq":   float64(s.centerFreq),
		"filename":      s.path,
		"total_samples": len(s.data),
	}
}
