// Package eventlog appends detected events to an on-disk CSV+JSONL
// journal and a bounded, process-wide in-memory ring.
package eventlog

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Event is an immutable record of one detected event. Metadata carries
// power_db/duration_s plus anything the caller adds.
type Event struct {
	Time     string         `json:"time"`
	FreqHz   float64        `json:"freq"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"-"`
}

// MarshalJSON flattens Metadata alongside the fixed fields, matching the
// reference event shape in spec.md §6 ({"time", "freq", "text", ...}).
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Metadata)+3)
	for k, v := range e.Metadata {
		m[k] = v
	}
	m["time"] = e.Time
	m["freq"] = e.FreqHz
	m["text"] = e.Text
	return json.Marshal(m)
}

// TranscriptIndex is the opaque hook into the external vector-search /
// LLM-agent collaborator. Scanner and EventLogger only ever call Add.
type TranscriptIndex interface {
	Add(text string, meta map[string]any) error
}

// EventLogger appends events to CSV and JSONL journals and to the
// process-wide ring. Either journal file may fail to open; that is
// non-fatal, matching spec.md §7's JournalWriteFailed policy.
type EventLogger struct {
	mu              sync.Mutex
	csvFile         *os.File
	csvWriter       *csv.Writer
	jsonlFile       *os.File
	transcriptIndex TranscriptIndex
	events          []Event
	logger          *log.Logger
}

// Options configures EventLogger construction.
type Options struct {
	CSVPath         string
	JSONLPath       string
	TranscriptIndex TranscriptIndex
	Logger          *log.Logger
}

// New opens the CSV and JSONL journals (best-effort) and returns a ready
// EventLogger.
func New(opts Options) *EventLogger {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	el := &EventLogger{transcriptIndex: opts.TranscriptIndex, logger: logger}

	csvPath := opts.CSVPath
	if csvPath == "" {
		csvPath = "sdr_events.log"
	}
	if f, err := os.OpenFile(csvPath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644); err != nil {
		logger.Error("failed to open CSV journal", "path", csvPath, "err", err)
	} else {
		el.csvFile = f
		el.csvWriter = csv.NewWriter(f)
		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			_ = el.csvWriter.Write([]string{"Time", "Frequency_MHz", "Transcribed_Text"})
			el.csvWriter.Flush()
		}
	}

	jsonlPath := opts.JSONLPath
	if jsonlPath == "" {
		jsonlPath = "sdr_events.jsonl"
	}
	if f, err := os.OpenFile(jsonlPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
		logger.Error("failed to open JSONL journal", "path", jsonlPath, "err", err)
	} else {
		el.jsonlFile = f
	}

	return el
}

// LogEvent builds an event record, appends it to both journals
// (best-effort), to the instance-local list and the process-wide ring,
// and hands non-empty text to the configured TranscriptIndex. Any
// per-writer failure is swallowed; LogEvent never returns an error.
func (el *EventLogger) LogEvent(freqHz float64, text string, metadata map[string]any) Event {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	event := Event{Time: now, FreqHz: freqHz, Text: text, Metadata: metadata}

	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()
	globalRing.append(event)

	if el.csvWriter != nil {
		freqMHz := freqHz / 1e6
		if err := el.csvWriter.Write([]string{now, formatMHz(freqMHz), text}); err != nil {
			el.logger.Error("CSV journal write failed", "err", err)
		} else {
			el.csvWriter.Flush()
		}
	}
	if el.jsonlFile != nil {
		if b, err := json.Marshal(event); err != nil {
			el.logger.Error("JSONL marshal failed", "err", err)
		} else if _, err := el.jsonlFile.Write(append(b, '\n')); err != nil {
			el.logger.Error("JSONL journal write failed", "err", err)
		}
	}

	if el.transcriptIndex != nil && text != "" {
		if err := el.transcriptIndex.Add(text, map[string]any{"time": now, "freq": freqHz}); err != nil {
			el.logger.Error("transcript index add failed", "err", err)
		}
	}

	return event
}

// Events returns the events logged through this instance (not the
// process-wide ring).
func (el *EventLogger) Events() []Event {
	el.mu.Lock()
	defer el.mu.Unlock()
	out := make([]Event, len(el.events))
	copy(out, el.events)
	return out
}

// Close closes any open journal files. Idempotent.
func (el *EventLogger) Close() error {
	el.mu.Lock()
	defer el.mu.Unlock()
	var err error
	if el.csvFile != nil {
		el.csvWriter.Flush()
		err = el.csvFile.Close()
		el.csvFile = nil
		el.csvWriter = nil
	}
	if el.jsonlFile != nil {
		if e := el.jsonlFile.Close(); e != nil && err == nil {
			err = e
		}
		el.jsonlFile = nil
	}
	return err
}

func formatMHz(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
