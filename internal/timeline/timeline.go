package timeline

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/models"
)

// Stage marks progress through a timeline run.
type Stage string

const (
	StageLoaded          Stage = "LOADED"
	StageEventsExtracted Stage = "EVENTS_EXTRACTED"
	StageGroupedByDate   Stage = "GROUPED_BY_DATE"
	StageDeduplicated    Stage = "DEDUPLICATED"
	StageSorted          Stage = "SORTED"
	StageEmitted         Stage = "EMITTED"
)

// Builder produces the deduplicated timeline of a document.
type Builder struct {
	extractor    *Extractor
	deduplicator *Deduplicator
	workers      int
	log          logger.Logger
}

func NewBuilder(model llm.Model, policy ValidationPolicy, workers int, log logger.Logger) *Builder {
	return &Builder{
		extractor:    NewExtractor(model, policy, workers, log),
		deduplicator: NewDeduplicator(model, policy, log),
		workers:      workers,
		log:          log,
	}
}

// Events runs every stage and returns the timeline in ascending date order.
// Dates whose deduplication fails are logged and left out.
func (b *Builder) Events(ctx context.Context, filename string, docs []models.Page) ([]models.TimelineEvent, error) {
	log := b.log.With(filename)
	stage(log, StageLoaded, "%d pages", len(docs))

	pages, err := b.extractor.Extract(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%s: extract events: %w", filename, err)
	}
	stage(log, StageEventsExtracted, "%d pages with events", len(pages))

	groups := Group(pages)
	dates := SortedDates(groups)
	stage(log, StageGroupedByDate, "%d dates", len(dates))

	merged, errs := llm.ParallelCollect(ctx, dates, b.workers,
		func(ctx context.Context, _ int, date string) ([]models.TimelineEvent, error) {
			return b.deduplicator.Dedupe(ctx, date, groups[date])
		})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: deduplicate: %w", filename, err)
	}
	stage(log, StageDeduplicated, "%d dates", len(dates))

	var events []models.TimelineEvent
	for i, date := range dates {
		if errs[i] != nil {
			log.Error("Deduplication for %s failed: %v", date, errs[i])
			continue
		}
		events = append(events, merged[i]...)
	}
	stage(log, StageSorted, "%d events", len(events))
	return events, nil
}

// Records runs the timeline and renders one record per event.
func (b *Builder) Records(ctx context.Context, filename string, docs []models.Page) ([]models.SummaryRecord, error) {
	events, err := b.Events(ctx, filename, docs)
	if err != nil {
		return nil, err
	}
	records := make([]models.SummaryRecord, len(events))
	for i, ev := range events {
		records[i] = Record(filename, ev)
	}
	stage(b.log.With(filename), StageEmitted, "%d records", len(records))
	return records, nil
}

// Record renders an event as a document record.
func Record(filename string, ev models.TimelineEvent) models.SummaryRecord {
	return models.SummaryRecord{
		Sentence:    fmt.Sprintf("Date: %s\n%s", ev.Date, ev.Description),
		Filename:    filename,
		PageNumbers: ev.PageNumbers,
	}
}

func stage(log logger.Logger, s Stage, format string, v ...any) {
	log.Info("[%s] "+format, append([]any{s}, v...)...)
}
