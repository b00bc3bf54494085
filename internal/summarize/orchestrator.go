package summarize

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/models"
)

// Orchestrator splits a document into batches, summarizes every chunk and
// combines each batch. Batches and the chunks inside them run concurrently.
type Orchestrator struct {
	summarizer *Summarizer
	combiner   *Combiner
	opts       Options
	log        logger.Logger
}

func NewOrchestrator(panel llm.Panel, opts Options, log logger.Logger) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		summarizer: NewSummarizer(panel, opts, log),
		combiner:   NewCombiner(panel, opts, log),
		opts:       opts,
		log:        log,
	}
}

type batchSpan struct {
	start, end int
}

// Plan returns the [start, end) document index ranges of every batch.
func (o *Orchestrator) Plan(n int) []batchSpan {
	var spans []batchSpan
	for start := 0; start < n; start += o.opts.BatchSize {
		spans = append(spans, batchSpan{start: start, end: min(start+o.opts.BatchSize, n)})
	}
	return spans
}

// Run returns one BatchResult per batch, ordered by StartPage. A chunk that
// fails becomes an empty summary; any other failure aborts the document.
func (o *Orchestrator) Run(ctx context.Context, docs []models.Page, memoryLog models.MemoryLog) ([]models.BatchResult, error) {
	spans := o.Plan(len(docs))
	o.log.Info("Summarizing %d pages in %d batches", len(docs), len(spans))

	var failures atomic.Int64
	results, err := llm.ParallelProcess(ctx, spans, o.opts.Workers, o.log,
		func(ctx context.Context, _ int, span batchSpan) (models.BatchResult, error) {
			return o.runBatch(ctx, docs, span, memoryLog, &failures)
		})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].StartPage < results[b].StartPage })
	if n := failures.Load(); n > 0 {
		o.log.Warn("%d chunk summaries failed and were left empty", n)
	}
	return results, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, docs []models.Page, span batchSpan, memoryLog models.MemoryLog, failures *atomic.Int64) (models.BatchResult, error) {
	starts := PlanChunks(span.start, span.end, o.opts.PagesPerChunk)
	chunks := make([]models.Chunk, len(starts))
	for j, i := range starts {
		chunks[j] = BuildChunk(docs, i, o.opts.Window, min(o.opts.PagesPerChunk, span.end-i))
	}

	summaries, errs := llm.ParallelCollect(ctx, chunks, o.opts.Workers,
		func(ctx context.Context, _ int, chunk models.Chunk) (models.ChunkSummary, error) {
			return o.summarizer.SummarizeChunk(ctx, chunk, memoryLog)
		})
	if err := ctx.Err(); err != nil {
		return models.BatchResult{}, err
	}
	for j, err := range errs {
		if err == nil {
			continue
		}
		total := failures.Add(1)
		o.log.Error("Chunk summary for pages %v failed: %v", chunks[j].PageNumbers, err)
		summaries[j] = models.ChunkSummary{PageNumbers: chunks[j].PageNumbers}
		if o.opts.LeafFailureLimit > 0 && total > int64(o.opts.LeafFailureLimit) {
			return models.BatchResult{}, fmt.Errorf("%w: %d failed, limit %d", ErrTooManyLeafFailures, total, o.opts.LeafFailureLimit)
		}
	}

	result, err := o.combiner.CombineBatch(ctx, summaries, memoryLog)
	if err != nil {
		return models.BatchResult{}, fmt.Errorf("combine pages %d-%d: %w", docs[span.start].PageNumber, docs[span.end-1].PageNumber, err)
	}
	result.StartPage = docs[span.start].PageNumber
	result.EndPage = docs[span.end-1].PageNumber
	o.log.Debug("Batch %d-%d combined", result.StartPage, result.EndPage)
	return result, nil
}
