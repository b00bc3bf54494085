package summarize

import (
	"context"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// Summarizer produces the leaf summaries of the tree, one per chunk.
type Summarizer struct {
	reducer *Reducer
	opts    Options
	log     logger.Logger
}

func NewSummarizer(panel llm.Panel, opts Options, log logger.Logger) *Summarizer {
	opts = opts.withDefaults()
	return &Summarizer{
		reducer: NewReducer(panel, BatchSteps, opts.BlockedNames, log),
		opts:    opts,
		log:     log,
	}
}

// Summarize summarizes the chunk starting at document index i.
func (s *Summarizer) Summarize(ctx context.Context, docs []models.Page, i int, memoryLog models.MemoryLog) (models.ChunkSummary, error) {
	return s.SummarizeChunk(ctx, BuildChunk(docs, i, s.opts.Window, s.opts.PagesPerChunk), memoryLog)
}

// SummarizeChunk summarizes a prepared chunk. A blank chunk yields an empty
// summary without calling any model. With several drafters the chunk is
// summarized by each and the drafts are aggregated.
func (s *Summarizer) SummarizeChunk(ctx context.Context, chunk models.Chunk, memoryLog models.MemoryLog) (models.ChunkSummary, error) {
	summary := models.ChunkSummary{PageNumbers: chunk.PageNumbers}
	if blank(chunk.Content) {
		return summary, nil
	}

	content, err := s.reducer.Vote(ctx, chunkSpec(chunk, memoryLog), prompts.DraftAggregate)
	if err != nil {
		return models.ChunkSummary{}, err
	}
	summary.Content = content
	return summary, nil
}

func chunkSpec(chunk models.Chunk, memoryLog models.MemoryLog) prompts.Spec {
	return prompts.New(prompts.ChunkSummary, prompts.Vars{
		"CurrentPage":        chunk.Content,
		"PreviousPageEnding": chunk.PreviousPageEnding,
		"NextPageBeginning":  chunk.NextPageBeginning,
		"MemoryLog":          string(memoryLog),
	})
}
