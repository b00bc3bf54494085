// Package timeline extracts dated events from every page of a document,
// groups them by normalized date and merges duplicates within each date.
package timeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// PageEvents are the events reported for one page.
type PageEvents struct {
	Page   int
	Events []Event
}

// Extractor asks the model for the dated events on each page.
type Extractor struct {
	model   llm.Model
	policy  ValidationPolicy
	workers int
	log     logger.Logger
}

func NewExtractor(model llm.Model, policy ValidationPolicy, workers int, log logger.Logger) *Extractor {
	return &Extractor{model: model, policy: policy, workers: workers, log: log}
}

// Extract processes pages in parallel and returns the pages that reported
// at least one event, in page order. Blank pages are not sent to the model
// and a page whose call fails is logged and left out.
func (e *Extractor) Extract(ctx context.Context, docs []models.Page) ([]PageEvents, error) {
	results, errs := llm.ParallelCollect(ctx, docs, e.workers,
		func(ctx context.Context, _ int, page models.Page) ([]Event, error) {
			return e.ExtractPage(ctx, page)
		})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []PageEvents
	for i, page := range docs {
		if errs[i] != nil {
			e.log.Error("Event extraction for page %d failed: %v", page.PageNumber, errs[i])
			continue
		}
		if len(results[i]) == 0 {
			continue
		}
		out = append(out, PageEvents{Page: page.PageNumber, Events: results[i]})
	}
	return out, nil
}

// ExtractPage returns the events on a single page.
func (e *Extractor) ExtractPage(ctx context.Context, page models.Page) ([]Event, error) {
	text := strings.TrimSpace(strings.ReplaceAll(page.Content, "\n", " "))
	if text == "" {
		return nil, nil
	}

	prompt, err := prompts.Render(prompts.New(prompts.TimelineExtract, prompts.Vars{"CurrentPage": text}))
	if err != nil {
		return nil, err
	}
	output, err := e.model.Complete(ctx, llm.Request{
		Prompt: prompt,
		Schema: &llm.Schema{Name: "event_summary", Definition: extractionSchema},
		Label:  string(prompts.TimelineExtract),
	})
	if err != nil {
		return nil, err
	}

	records, err := parseRecords(output)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.PageNumber, err)
	}
	validated := make([]Validated[Event], len(records))
	for i, r := range records {
		validated[i] = decodeEvent(r)
		if !validated[i].Valid() {
			e.log.Warn("Page %d event %d malformed (%s): %s", page.PageNumber, i, e.policy, strings.Join(validated[i].Problems, ", "))
		}
	}
	return ApplyPolicy(e.policy, validated, fillEvent), nil
}
