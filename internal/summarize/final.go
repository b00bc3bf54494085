package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// FinalReducer folds the batch summaries of a document into its final
// summary and derives the condensed and improved variants.
type FinalReducer struct {
	reducer *Reducer
	model   llm.Model
	log     logger.Logger
}

func NewFinalReducer(panel llm.Panel, opts Options, log logger.Logger) *FinalReducer {
	opts = opts.withDefaults()
	return &FinalReducer{
		reducer: NewReducer(panel, FinalSteps, opts.BlockedNames, log),
		model:   panel.Default,
		log:     log,
	}
}

// Reduce expects batches ordered by StartPage. A single batch is taken as
// the full summary without another fold.
func (f *FinalReducer) Reduce(ctx context.Context, docs []models.Page, batches []models.BatchResult, memoryLog models.MemoryLog) (*models.FinalSummary, error) {
	final := &models.FinalSummary{}
	if len(docs) > 0 {
		final.StartPage = docs[0].PageNumber
		final.EndPage = docs[len(docs)-1].PageNumber
	}

	summaries := make([]models.ChunkSummary, len(batches))
	for i, b := range batches {
		summaries[i] = b.Summary
	}
	full, err := f.reducer.Fold(ctx, summaries, "")
	if err != nil {
		return nil, fmt.Errorf("final fold: %w", err)
	}
	final.FullSummary = full.Content
	if full.Empty() {
		f.log.Warn("No relevant content found in pages %d-%d", final.StartPage, final.EndPage)
		return final, nil
	}

	final.CondensedSummary, err = f.reducer.Vote(ctx,
		prompts.New(prompts.Condensed, prompts.Vars{"FullSummary": final.FullSummary}),
		prompts.CondensedAggregate)
	if err != nil {
		return nil, fmt.Errorf("condensed summary: %w", err)
	}

	final.ImprovedCondensedSummary, err = f.improve(ctx, final.CondensedSummary, prompts.New(prompts.ImproveCondensed, prompts.Vars{
		"CondensedSummary": final.CondensedSummary,
		"MemoryLog":        string(memoryLog),
	}))
	if err != nil {
		return nil, fmt.Errorf("improve condensed summary: %w", err)
	}

	final.ImprovedFinalSummary, err = f.improve(ctx, final.CondensedSummary, prompts.New(prompts.ImproveFinal, prompts.Vars{
		"CondensedSummary": final.CondensedSummary,
		"AllSummaries":     AllChunkSummaries(batches),
	}))
	if err != nil {
		return nil, fmt.Errorf("improve final summary: %w", err)
	}
	return final, nil
}

// improve runs spec and falls back to base when the model returns nothing.
func (f *FinalReducer) improve(ctx context.Context, base string, spec prompts.Spec) (string, error) {
	out, err := complete(ctx, f.model, spec)
	if err != nil {
		return "", err
	}
	if out == "" {
		return base, nil
	}
	return out, nil
}

// AllChunkSummaries joins every non-empty chunk summary of every batch in
// document order.
func AllChunkSummaries(batches []models.BatchResult) string {
	var parts []string
	for _, b := range batches {
		for _, s := range b.ChunkSummaries {
			if !s.Empty() {
				parts = append(parts, s.Content)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
