// Package summarize turns a document's pages into a hierarchical brief: a
// verified memory log, per-batch chunk summaries folded into batch summaries,
// and a final cross-batch reduction with condensed and improved variants.
package summarize

import (
	"errors"
)

// ErrTooManyLeafFailures is returned when more chunk summaries failed than
// Options.LeafFailureLimit allows.
var ErrTooManyLeafFailures = errors.New("too many chunk summaries failed")

const (
	defaultPagesPerChunk     = 10
	defaultBatchSize         = 20
	defaultWindow            = 100
	defaultMemorySamplePages = 10
	defaultMemoryChunkPages  = 2
	defaultWorkers           = 15
)

// DefaultBlockedNames are placeholder identities that must never appear in
// any summary.
var DefaultBlockedNames = []string{"John Doe", "Jane Doe"}

// Options tunes the brief pipeline.
type Options struct {
	// PagesPerChunk is how many pages one chunk summary covers.
	PagesPerChunk int
	// BatchSize is how many pages one batch covers.
	BatchSize int
	// Window is the number of characters of each neighbouring page shown
	// as context.
	Window int
	// MemorySamplePages bounds how many leading and trailing pages are
	// sampled for the memory log.
	MemorySamplePages int
	MemoryChunkPages  int
	// LeafFailureLimit aborts the document once more chunk summaries than
	// this have failed. Zero never aborts.
	LeafFailureLimit int
	BlockedNames     []string
	// Workers bounds fan-out inside the pipeline. Model traffic is bounded
	// separately by the client gate.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		PagesPerChunk:     defaultPagesPerChunk,
		BatchSize:         defaultBatchSize,
		Window:            defaultWindow,
		MemorySamplePages: defaultMemorySamplePages,
		MemoryChunkPages:  defaultMemoryChunkPages,
		BlockedNames:      DefaultBlockedNames,
		Workers:           defaultWorkers,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PagesPerChunk <= 0 {
		o.PagesPerChunk = d.PagesPerChunk
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Window < 0 {
		o.Window = 0
	}
	if o.MemorySamplePages <= 0 {
		o.MemorySamplePages = d.MemorySamplePages
	}
	if o.MemoryChunkPages <= 0 {
		o.MemoryChunkPages = d.MemoryChunkPages
	}
	if o.LeafFailureLimit < 0 {
		o.LeafFailureLimit = 0
	}
	if o.BlockedNames == nil {
		o.BlockedNames = d.BlockedNames
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}
