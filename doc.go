// Package astrotrace is a software-defined-radio capture and analysis
// engine. It reads IQ samples from a pluggable source, scans a frequency
// plan gated by squelch, demodulates one or more narrow channels out of a
// wideband stream, and writes each detected event to a reproducible
// on-disk bundle (raw IQ + SigMF metadata + manifest).
//
// The core lives in the iqsource, dsp, demod, multidemod, eventlog,
// bundle, scanner and config subpackages; cmd/astrotrace is a thin
// command-line front end around scanner.Scanner.
package astrotrace
