package summarize

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// Combiner reduces one batch of chunk summaries to a batch summary.
type Combiner struct {
	reducer *Reducer
	model   llm.Model
	log     logger.Logger
}

func NewCombiner(panel llm.Panel, opts Options, log logger.Logger) *Combiner {
	opts = opts.withDefaults()
	return &Combiner{
		reducer: NewReducer(panel, BatchSteps, opts.BlockedNames, log),
		model:   panel.Default,
		log:     log,
	}
}

// CombineBatch folds the chunk summaries, then runs a coherence pass and an
// improvement pass over the result. The same two passes over the memory log
// produce an audit copy that is recorded but never fed back.
func (c *Combiner) CombineBatch(ctx context.Context, summaries []models.ChunkSummary, memoryLog models.MemoryLog) (models.BatchResult, error) {
	folded, err := c.reducer.Fold(ctx, summaries, memoryLog)
	if err != nil {
		return models.BatchResult{}, err
	}

	result := models.BatchResult{ChunkSummaries: summaries, Summary: folded}
	if len(folded.PageNumbers) > 0 {
		result.StartPage = folded.PageNumbers[0]
		result.EndPage = folded.PageNumbers[len(folded.PageNumbers)-1]
	}

	if !folded.Empty() {
		polished, err := c.polish(ctx, folded.Content)
		if err != nil {
			return models.BatchResult{}, fmt.Errorf("batch %d-%d: %w", result.StartPage, result.EndPage, err)
		}
		result.Summary.Content = polished
	}

	if memoryLog != "" {
		audit, err := c.polish(ctx, string(memoryLog))
		if err != nil {
			return models.BatchResult{}, fmt.Errorf("memory log audit: %w", err)
		}
		result.MemoryLogAudit = audit
	}
	return result, nil
}

// polish reorganizes a summary and then checks the reorganized version
// against the original, restoring anything it lost.
func (c *Combiner) polish(ctx context.Context, summary string) (string, error) {
	coherent, err := complete(ctx, c.model, prompts.New(prompts.Coherence, prompts.Vars{"Summary": summary}))
	if err != nil {
		return "", fmt.Errorf("coherence: %w", err)
	}
	if coherent == "" {
		coherent = summary
	}

	improved, err := complete(ctx, c.model, prompts.New(prompts.Improvement, prompts.Vars{
		"Updated": coherent,
		"Summary": summary,
	}))
	if err != nil {
		return "", fmt.Errorf("improvement: %w", err)
	}
	if improved == "" {
		return coherent, nil
	}
	return improved, nil
}
