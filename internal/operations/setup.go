package operations

import (
	"fmt"

	"github.com/Epistemic-Technology/casebrief/internal/config"
	"github.com/Epistemic-Technology/casebrief/internal/documents"
	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/internal/summarize"
	"github.com/Epistemic-Technology/casebrief/internal/timeline"
)

// NewDeps wires the model panel, pipelines and page source described by
// cfg. All models share one rate-limit gate.
func NewDeps(cfg *config.Config, factory config.ModelFactory, sink storage.Sink, log logger.Logger) (Deps, error) {
	gate := llm.NewGate(cfg.LLMLimits())
	panel, err := cfg.BuildPanel(gate, factory, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to build model panel: %w", err)
	}
	return NewDepsFromPanel(panel, cfg, sink, log)
}

// NewDepsFromPanel wires Deps around an existing panel.
func NewDepsFromPanel(panel llm.Panel, cfg *config.Config, sink storage.Sink, log logger.Logger) (Deps, error) {
	opts := cfg.SummarizeOptions()
	pipeline, err := summarize.NewPipeline(panel, opts, log)
	if err != nil {
		return Deps{}, err
	}
	workers := pipeline.Options().Workers
	return Deps{
		Source:   documents.NewSource(panel.Default, documents.ZoteroCredentialsFromEnv(), workers, log),
		Pipeline: pipeline,
		Timeline: timeline.NewBuilder(panel.Default, cfg.TimelinePolicy(), workers, log),
		Sink:     sink,
		Log:      log,
	}, nil
}
