package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hz.tools/sdr"

	"hz.tools/astrotrace/eventlog"
)

func sampleEvent() eventlog.Event {
	return eventlog.Event{
		Time:   "2026-07-30 12:00:00",
		FreqHz: 100.25e6,
		Text:   "",
		Metadata: map[string]any{
			"power_db":   -30.5,
			"duration_s": 1.8,
		},
	}
}

func TestWriteEventBundleCreatesAllArtifactsWithValidHashes(t *testing.T) {
	root := t.TempDir()
	iq := sdr.SamplesC64{1 + 2i, 3 + 4i, -1 - 1i}

	dir, err := WriteEventBundle(sampleEvent(), iq, 250000, 100.25e6, "FM", root, true)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "event.json"))
	assert.FileExists(t, filepath.Join(dir, "capture.sigmf-data"))
	assert.FileExists(t, filepath.Join(dir, "capture.sigmf-meta"))
	manifestPath := filepath.Join(dir, "manifest.json")
	assert.FileExists(t, manifestPath)

	ok, err := VerifyManifest(manifestPath)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEventJSONDecodesToOriginalShape(t *testing.T) {
	root := t.TempDir()
	event := sampleEvent()
	dir, err := WriteEventBundle(event, nil, 250000, 100.25e6, "FM", root, true)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "event.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.FreqHz, decoded["freq"])
	assert.Equal(t, event.Metadata["power_db"], decoded["power_db"])
}

func TestNoSigMFWhenIQEmpty(t *testing.T) {
	root := t.TempDir()
	dir, err := WriteEventBundle(sampleEvent(), nil, 250000, 100.25e6, "FM", root, true)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "capture.sigmf-data"))
}

func TestIQRoundTripIsBitIdentical(t *testing.T) {
	root := t.TempDir()
	iq := sdr.SamplesC64{0.5 + 0.25i, -0.75 + 1.5i, 0 + 0i}
	dir, err := WriteEventBundle(sampleEvent(), iq, 250000, 100.25e6, "FM", root, true)
	require.NoError(t, err)

	readBack, err := readSigMFData(filepath.Join(dir, "capture.sigmf-data"))
	require.NoError(t, err)
	assert.Equal(t, []complex64(iq), []complex64(readBack))
}

func TestTamperedDataFailsManifestVerification(t *testing.T) {
	root := t.TempDir()
	iq := sdr.SamplesC64{1 + 2i, 3 + 4i}
	dir, err := WriteEventBundle(sampleEvent(), iq, 250000, 100.25e6, "FM", root, true)
	require.NoError(t, err)

	dataPath := filepath.Join(dir, "capture.sigmf-data")
	raw, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(dataPath, raw, 0o644))

	ok, err := VerifyManifest(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManifestWrittenLast(t *testing.T) {
	root := t.TempDir()
	iq := sdr.SamplesC64{1 + 1i}
	dir, err := WriteEventBundle(sampleEvent(), iq, 250000, 100.25e6, "FM", root, true)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	eventInfo, err := os.Stat(filepath.Join(dir, "event.json"))
	require.NoError(t, err)
	assert.False(t, info.ModTime().Before(eventInfo.ModTime()))
}
