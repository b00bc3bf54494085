package summarize

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/models"
)

// BriefResult is everything a brief run produced for one document.
type BriefResult struct {
	Record    models.SummaryRecord
	MemoryLog models.MemoryLog
	// MemoryLogAudit is the polished memory log from the first batch.
	MemoryLogAudit string
	Batches        []models.BatchResult
	Final          *models.FinalSummary
}

// Pipeline runs the summary stages for one document at a time. It holds no
// per-document state and may be shared between goroutines.
type Pipeline struct {
	panel        llm.Panel
	memory       *MemoryBuilder
	orchestrator *Orchestrator
	final        *FinalReducer
	opts         Options
	log          logger.Logger
}

func NewPipeline(panel llm.Panel, opts Options, log logger.Logger) (*Pipeline, error) {
	if err := panel.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model panel: %w", err)
	}
	opts = opts.withDefaults()
	return &Pipeline{
		panel:        panel,
		memory:       NewMemoryBuilder(panel.Default, opts, log),
		orchestrator: NewOrchestrator(panel, opts, log),
		final:        NewFinalReducer(panel, opts, log),
		opts:         opts,
		log:          log,
	}, nil
}

func (p *Pipeline) Options() Options {
	return p.opts
}

// Brief builds the memory log, summarizes every batch, reduces the batches
// and returns a single record carrying the improved final summary. Nothing
// is returned for a document that fails.
func (p *Pipeline) Brief(ctx context.Context, filename string, docs []models.Page) (*BriefResult, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: no pages", filename)
	}
	log := p.log.With(filename)

	memoryLog, err := p.memory.Build(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%s: memory log: %w", filename, err)
	}

	batches, err := p.orchestrator.Run(ctx, docs, memoryLog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	final, err := p.final.Reduce(ctx, docs, batches, memoryLog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	log.Info("Brief complete for pages %d-%d", final.StartPage, final.EndPage)

	result := &BriefResult{
		Record: models.SummaryRecord{
			Sentence:  final.ImprovedFinalSummary,
			Filename:  filename,
			StartPage: final.StartPage,
			EndPage:   final.EndPage,
		},
		MemoryLog: memoryLog,
		Batches:   batches,
		Final:     final,
	}
	if len(batches) > 0 {
		result.MemoryLogAudit = batches[0].MemoryLogAudit
	}
	return result, nil
}
