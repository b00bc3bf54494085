package summarize

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// MemoryBuilder distils a document-wide memory log from a sample of its
// leading and trailing pages. Every change to the log is an update followed
// by a verification, and a failed or emptied verification leaves the log as
// it was.
type MemoryBuilder struct {
	model llm.Model
	opts  Options
	log   logger.Logger
}

func NewMemoryBuilder(model llm.Model, opts Options, log logger.Logger) *MemoryBuilder {
	return &MemoryBuilder{model: model, opts: opts.withDefaults(), log: log}
}

// SampleIndexes returns the chunk start indexes sampled from a document of
// n pages: every second page of the first sample pages, then every second
// page of the last sample pages.
func SampleIndexes(n, sample int) []int {
	var idx []int
	for i := 0; i < min(sample, n); i += 2 {
		idx = append(idx, i)
	}
	for i := max(sample, n-sample); i < n; i += 2 {
		idx = append(idx, i)
	}
	return idx
}

// Build returns the memory log for docs. Sample summaries that fail are
// skipped; only cancellation is an error.
func (b *MemoryBuilder) Build(ctx context.Context, docs []models.Page) (models.MemoryLog, error) {
	var memory models.MemoryLog
	samples := SampleIndexes(len(docs), b.opts.MemorySamplePages)
	b.log.Debug("Building memory log from %d samples", len(samples))

	for _, i := range samples {
		if err := ctx.Err(); err != nil {
			return memory, err
		}

		chunk := BuildChunk(docs, i, 0, b.opts.MemoryChunkPages)
		if blank(chunk.Content) {
			continue
		}
		summary, err := complete(ctx, b.model, b.withBlockedNames(chunkSpec(chunk, memory)))
		if err != nil {
			b.log.Warn("Memory sample at pages %v failed: %v", chunk.PageNumbers, err)
			continue
		}
		if summary == "" {
			continue
		}

		next, err := b.Update(ctx, memory, summary)
		if err != nil {
			if ctx.Err() != nil {
				return memory, ctx.Err()
			}
			b.log.Warn("Memory update for pages %v rolled back: %v", chunk.PageNumbers, err)
			continue
		}
		memory = next
	}

	b.log.Info("Memory log built from %d samples (%d chars)", len(samples), len(memory))
	return memory, nil
}

// Update runs one update and verify transaction against old. On error the
// caller keeps old.
func (b *MemoryBuilder) Update(ctx context.Context, old models.MemoryLog, summary string) (models.MemoryLog, error) {
	updated, err := complete(ctx, b.model, prompts.New(prompts.MemoryUpdate, prompts.Vars{
		"OldLog":  string(old),
		"Summary": summary,
	}))
	if err != nil {
		return old, fmt.Errorf("update: %w", err)
	}

	verified, err := complete(ctx, b.model, prompts.New(prompts.MemoryVerify, prompts.Vars{
		"OldLog":     string(old),
		"UpdatedLog": updated,
	}))
	if err != nil {
		return old, fmt.Errorf("verify: %w", err)
	}
	if verified == "" && old != "" {
		return old, fmt.Errorf("verify returned an empty log")
	}
	return models.MemoryLog(verified), nil
}

func (b *MemoryBuilder) withBlockedNames(spec prompts.Spec) prompts.Spec {
	return spec.With("BlockedNames", b.opts.BlockedNames)
}
