// Package bundle writes each detected event to a self-contained
// directory: event.json, an optional SigMF IQ capture, and a manifest of
// SHA-256 digests written last so its mere presence implies completeness.
package bundle

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hz.tools/sdr"

	"hz.tools/astrotrace/eventlog"
)

// artifact is one manifest entry: the file's path (bundleRoot joined with
// the bundle directory and file name, so absolute whenever bundleRoot is)
// plus its SHA-256 digest.
type artifact struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// manifest is written last, after every other artifact exists on disk.
type manifest struct {
	Event artifact `json:"event"`
	Meta  struct {
		SampleRateHz float64 `json:"sample_rate_hz"`
		CenterFreqHz float64 `json:"center_freq_hz"`
		Mode         string  `json:"mode"`
	} `json:"meta"`
	Artifacts []artifact `json:"artifacts"`
}

// WriteEventBundle creates bundleRoot/<name>/ with event.json, an
// optional SigMF capture, and manifest.json (written last). The bundle
// name is derived from the event timestamp and the center frequency in
// MHz to three decimals.
func WriteEventBundle(event eventlog.Event, iq sdr.SamplesC64, sampleRate, centerFreqHz float64, mode string, bundleRoot string, saveSigMF bool) (string, error) {
	name := bundleName(event, centerFreqHz)
	dir := filepath.Join(bundleRoot, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("bundle: mkdir %s: %w", dir, err)
	}

	eventPath := filepath.Join(dir, "event.json")
	eventJSON, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return "", fmt.Errorf("bundle: marshal event: %w", err)
	}
	if err := os.WriteFile(eventPath, eventJSON, 0o644); err != nil {
		return "", fmt.Errorf("bundle: write event.json: %w", err)
	}

	var m manifest
	eventHash, err := sha256File(eventPath)
	if err != nil {
		return "", err
	}
	m.Event = artifact{Path: eventPath, SHA256: eventHash}
	m.Meta.SampleRateHz = sampleRate
	m.Meta.CenterFreqHz = centerFreqHz
	m.Meta.Mode = mode

	if saveSigMF && len(iq) > 0 {
		dataPath := filepath.Join(dir, "capture.sigmf-data")
		metaPath := filepath.Join(dir, "capture.sigmf-meta")

		if err := writeSigMFData(dataPath, iq); err != nil {
			return "", fmt.Errorf("bundle: write sigmf-data: %w", err)
		}
		if err := writeSigMFMeta(metaPath, sampleRate, centerFreqHz, mode); err != nil {
			return "", fmt.Errorf("bundle: write sigmf-meta: %w", err)
		}

		dataHash, err := sha256File(dataPath)
		if err != nil {
			return "", err
		}
		metaHash, err := sha256File(metaPath)
		if err != nil {
			return "", err
		}
		m.Artifacts = append(m.Artifacts,
			artifact{Path: dataPath, SHA256: dataHash},
			artifact{Path: metaPath, SHA256: metaHash},
		)
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("bundle: marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, manifestJSON, 0o644); err != nil {
		return "", fmt.Errorf("bundle: write manifest.json (partial bundle left on disk): %w", err)
	}

	return dir, nil
}

// bundleName derives "<timestamp>_<freq_mhz>MHz" from the event's own
// timestamp, stripping spaces and colons.
func bundleName(event eventlog.Event, centerFreqHz float64) string {
	ts := event.Time
	ts = strings.ReplaceAll(ts, ":", "")
	ts = strings.ReplaceAll(ts, " ", "")
	freqMHz := centerFreqHz / 1e6
	return fmt.Sprintf("%s_%.3fMHz", ts, freqMHz)
}

// sha256File streams path in 8 KiB chunks and returns its hex digest.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("bundle: open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 8192)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("bundle: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// VerifyManifest recomputes every artifact's (and the event's) SHA-256
// and reports whether they all still match manifestPath's stored digests.
func VerifyManifest(manifestPath string) (bool, error) {
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return false, err
	}
	var m manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return false, err
	}

	check := func(a artifact) (bool, error) {
		got, err := sha256File(a.Path)
		if err != nil {
			return false, err
		}
		return got == a.SHA256, nil
	}

	ok, err := check(m.Event)
	if err != nil || !ok {
		return false, err
	}
	for _, a := range m.Artifacts {
		ok, err := check(a)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
