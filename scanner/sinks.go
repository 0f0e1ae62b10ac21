package scanner

import "github.com/charmbracelet/log"

// Sinks are the fire-and-forget callbacks Scanner fans out to. All are
// best-effort: a nil field is a no-op, and a panicking sink is caught and
// logged rather than allowed to kill the run loop (spec.md §5).
type Sinks struct {
	// Spectrum is rate-limited to at most Config.UIMaxFPS invocations/sec.
	Spectrum func(axisMHz, powerDB []float64)
	// Event receives either an eventlog.Event or a diagnostic string.
	Event func(payload any)
	// AudioLevel receives one RMS value per emitted audio chunk, or 0 on
	// event close.
	AudioLevel func(rms float64)
	// AudioFrame receives post-demod audio at Config.AudioRate.
	AudioFrame func(audio []float32)
	// DeviceInfo is emitted once after the source opens.
	DeviceInfo func(info map[string]any)
	// NowPlaying is emitted on ACTIVE entry.
	NowPlaying func(freqHz float64, mode string)
}

// safeInvoke recovers from a panicking sink so a faulty UI/audio callback
// can never crash the scan loop.
func safeInvoke(logger *log.Logger, name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("sink panicked, continuing", "sink", name, "recover", r)
		}
	}()
	fn()
}
