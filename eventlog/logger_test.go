package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *EventLogger {
	t.Helper()
	dir := t.TempDir()
	el := New(Options{
		CSVPath:   filepath.Join(dir, "events.log"),
		JSONLPath: filepath.Join(dir, "events.jsonl"),
	})
	t.Cleanup(func() { _ = el.Close() })
	return el
}

func TestLogEventReturnsExpectedShape(t *testing.T) {
	el := newTestLogger(t)
	e := el.LogEvent(100e6, "hello", map[string]any{"power_db": -10.0, "duration_s": 1.5})
	assert.Equal(t, 100e6, e.FreqHz)
	assert.Equal(t, "hello", e.Text)
	assert.NotEmpty(t, e.Time)
	assert.Equal(t, -10.0, e.Metadata["power_db"])
}

func TestLogEventWritesCSVHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "events.log")
	el := New(Options{CSVPath: csvPath, JSONLPath: filepath.Join(dir, "events.jsonl")})
	el.LogEvent(1e6, "a", nil)
	el.Close()

	el2 := New(Options{CSVPath: csvPath, JSONLPath: filepath.Join(dir, "events.jsonl")})
	el2.LogEvent(2e6, "b", nil)
	el2.Close()

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 3) // header + 2 events
	assert.Equal(t, "Time,Frequency_MHz,Transcribed_Text", lines[0])
}

func TestRecentEventsReturnsAtMostNInInsertionOrder(t *testing.T) {
	SetCapacity(5)
	el := newTestLogger(t)
	for i := 0; i < 10; i++ {
		el.LogEvent(float64(i), fmt.Sprintf("evt-%d", i), nil)
	}
	recent := Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "evt-9", recent[2].Text)
	assert.Equal(t, "evt-7", recent[0].Text)
}

func TestConcurrentAppendsNeverLoseEvents(t *testing.T) {
	SetCapacity(1000)
	el := newTestLogger(t)
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				el.LogEvent(float64(w), fmt.Sprintf("w%d-%d", w, i), nil)
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, el.Events(), workers*perWorker)
	assert.LessOrEqual(t, len(Recent(10000)), 1000)
}

type failingTranscriptIndex struct{ calls int }

func (f *failingTranscriptIndex) Add(text string, meta map[string]any) error {
	f.calls++
	return fmt.Errorf("boom")
}

func TestTranscriptIndexFailureIsSwallowed(t *testing.T) {
	idx := &failingTranscriptIndex{}
	dir := t.TempDir()
	el := New(Options{
		CSVPath:         filepath.Join(dir, "e.log"),
		JSONLPath:       filepath.Join(dir, "e.jsonl"),
		TranscriptIndex: idx,
	})
	defer el.Close()

	assert.NotPanics(t, func() {
		el.LogEvent(1e6, "transcribed text", nil)
	})
	assert.Equal(t, 1, idx.calls)
}

func TestCloseIsIdempotent(t *testing.T) {
	el := newTestLogger(t)
	require.NoError(t, el.Close())
	require.NoError(t, el.Close())
}
