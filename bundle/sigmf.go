package bundle

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"time"

	"hz.tools/sdr"
)

// sigmfMeta mirrors the SigMF-compatible sidecar shape in spec.md §6.
type sigmfMeta struct {
	Global struct {
		Version     string  `json:"version"`
		Datatype    string  `json:"core:datatype"`
		SampleRate  float64 `json:"core:sample_rate"`
		Frequency   float64 `json:"core:frequency"`
		Description string  `json:"core:description"`
		Author      string  `json:"core:author"`
		Datetime    string  `json:"core:datetime"`
		Mode        string  `json:"core:mode"`
	} `json:"global"`
	Captures    []sigmfCapture `json:"captures"`
	Annotations []struct{}     `json:"annotations"`
}

type sigmfCapture struct {
	SampleStart int     `json:"core:sample_start"`
	Frequency   float64 `json:"core:frequency"`
	Datetime    string  `json:"core:datetime"`
}

// writeSigMFData writes iq as raw little-endian complex64 (I,Q,I,Q,...),
// no header.
func writeSigMFData(path string, iq sdr.SamplesC64) error {
	buf := make([]byte, len(iq)*8)
	for i, c := range iq {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(real(c)))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(imag(c)))
	}
	return os.WriteFile(path, buf, 0o644)
}

// writeSigMFMeta writes the SigMF sidecar JSON for one capture.
func writeSigMFMeta(path string, sampleRate, centerFreqHz float64, mode string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var meta sigmfMeta
	meta.Global.Version = "0.0.1"
	meta.Global.Datatype = "cf32_le"
	meta.Global.SampleRate = sampleRate
	meta.Global.Frequency = centerFreqHz
	meta.Global.Description = "astrotrace event capture"
	meta.Global.Author = "astrotrace"
	meta.Global.Datetime = now
	meta.Global.Mode = mode
	meta.Captures = []sigmfCapture{{SampleStart: 0, Frequency: centerFreqHz, Datetime: now}}
	meta.Annotations = []struct{}{}

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// readSigMFData reads back raw little-endian complex64 samples, the
// inverse of writeSigMFData, used by the round-trip test in writer_test.go.
func readSigMFData(path string) (sdr.SamplesC64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n := len(raw) / 8
	out := make(sdr.SamplesC64, n)
	for i := 0; i < n; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8+4:]))
		out[i] = complex(re, im)
	}
	return out, nil
}
