package summarize

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// Steps names the templates one reduction level uses.
type Steps struct {
	Draft     prompts.TemplateID
	Aggregate prompts.TemplateID
	Verify    prompts.TemplateID
}

var (
	// BatchSteps fold chunk summaries inside a batch.
	BatchSteps = Steps{Draft: prompts.Combine, Aggregate: prompts.DraftAggregate, Verify: prompts.CombineVerify}
	// FinalSteps fold batch summaries into the document summary.
	FinalSteps = Steps{Draft: prompts.FinalCombine, Aggregate: prompts.FinalAggregate, Verify: prompts.FinalVerify}
)

// Reducer is the draft, aggregate, verify primitive shared by every level
// of the summary tree.
type Reducer struct {
	Panel        llm.Panel
	Steps        Steps
	BlockedNames []string
	Log          logger.Logger
}

func NewReducer(panel llm.Panel, steps Steps, blockedNames []string, log logger.Logger) *Reducer {
	return &Reducer{Panel: panel, Steps: steps, BlockedNames: blockedNames, Log: log}
}

// Vote sends spec to every drafter in parallel and merges the drafts with
// the aggregate template. A single drafter's answer is returned as is, and
// when every draft is empty the aggregate call is skipped.
func (r *Reducer) Vote(ctx context.Context, spec prompts.Spec, aggregate prompts.TemplateID) (string, error) {
	spec = r.withBlockedNames(spec)
	if len(r.Panel.Drafters) == 1 {
		return complete(ctx, r.Panel.Drafters[0], spec)
	}

	drafts, err := llm.ParallelProcess(ctx, r.Panel.Drafters, len(r.Panel.Drafters), r.Log,
		func(ctx context.Context, _ int, m llm.Model) (string, error) {
			return complete(ctx, m, spec)
		})
	if err != nil {
		return "", fmt.Errorf("%s draft: %w", spec.Template, err)
	}
	if !slices.ContainsFunc(drafts, func(d string) bool { return d != "" }) {
		return "", nil
	}

	merged, err := complete(ctx, r.Panel.Aggregator, r.withBlockedNames(prompts.New(aggregate, prompts.Vars{"Drafts": drafts})))
	if err != nil {
		return "", fmt.Errorf("%s: %w", aggregate, err)
	}
	return merged, nil
}

// Merge combines two summaries: drafts from every drafter, aggregated, then
// verified against both inputs.
func (r *Reducer) Merge(ctx context.Context, current, next string, memoryLog models.MemoryLog) (string, error) {
	merged, err := r.Vote(ctx, prompts.New(r.Steps.Draft, prompts.Vars{
		"Current":   current,
		"Next":      next,
		"MemoryLog": string(memoryLog),
	}), r.Steps.Aggregate)
	if err != nil {
		return "", err
	}

	verified, err := complete(ctx, r.Panel.Verifier, r.withBlockedNames(prompts.New(r.Steps.Verify, prompts.Vars{
		"Current": current,
		"Next":    next,
		"Updated": merged,
	})))
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.Steps.Verify, err)
	}
	if verified == "" && merged != "" {
		r.Log.Warn("%s returned nothing, keeping unverified merge", r.Steps.Verify)
		return merged, nil
	}
	return verified, nil
}

// Fold left-folds summaries in order. Empty summaries contribute no model
// call, and an empty accumulator adopts the next summary unchanged. The
// result covers the sorted union of every input's pages.
func (r *Reducer) Fold(ctx context.Context, summaries []models.ChunkSummary, memoryLog models.MemoryLog) (models.ChunkSummary, error) {
	var acc models.ChunkSummary
	for i, next := range summaries {
		acc.PageNumbers = append(acc.PageNumbers, next.PageNumbers...)
		switch {
		case next.Empty():
			continue
		case acc.Empty():
			acc.Content = next.Content
			continue
		}

		merged, err := r.Merge(ctx, acc.Content, next.Content, memoryLog)
		if err != nil {
			return models.ChunkSummary{}, fmt.Errorf("fold step %d: %w", i, err)
		}
		acc.Content = merged
	}
	acc.PageNumbers = unionSorted(acc.PageNumbers)
	return acc, nil
}

func (r *Reducer) withBlockedNames(spec prompts.Spec) prompts.Spec {
	if _, ok := spec.Vars["BlockedNames"]; ok || len(r.BlockedNames) == 0 {
		return spec
	}
	return spec.With("BlockedNames", r.BlockedNames)
}

// complete renders spec and sends it to m, labelled with the template ID.
func complete(ctx context.Context, m llm.Model, spec prompts.Spec) (string, error) {
	prompt, err := prompts.Render(spec)
	if err != nil {
		return "", err
	}
	out, err := m.Complete(ctx, llm.Request{Prompt: prompt, Label: string(spec.Template)})
	if err != nil {
		return "", err
	}
	return normalize(out), nil
}

// normalize trims model output and maps the quoted empty answer the prompts
// ask for to an empty string.
func normalize(out string) string {
	out = strings.TrimSpace(out)
	switch out {
	case `""`, "''", "``":
		return ""
	}
	return out
}

func unionSorted(pages []int) []int {
	out := slices.Clone(pages)
	slices.Sort(out)
	return slices.Compact(out)
}
