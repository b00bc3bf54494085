package timeline

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

// Group collects events by standardized date. Events without a description
// are ignored. Within a date, events keep page order.
func Group(pages []PageEvents) map[string][]prompts.DedupeEvent {
	groups := make(map[string][]prompts.DedupeEvent)
	for _, p := range pages {
		for _, ev := range p.Events {
			desc := strings.TrimSpace(ev.Description)
			if desc == "" {
				continue
			}
			date := StandardizeDate(ev.Date)
			groups[date] = append(groups[date], prompts.DedupeEvent{Page: p.Page, Description: desc})
		}
	}
	return groups
}

// SortedDates returns the group keys in ascending order.
func SortedDates(groups map[string][]prompts.DedupeEvent) []string {
	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Deduplicator merges duplicate events within a single date.
type Deduplicator struct {
	model  llm.Model
	policy ValidationPolicy
	log    logger.Logger
}

func NewDeduplicator(model llm.Model, policy ValidationPolicy, log logger.Logger) *Deduplicator {
	return &Deduplicator{model: model, policy: policy, log: log}
}

// Dedupe returns the merged events for one date group. Page lists are
// limited to the group's own pages.
func (d *Deduplicator) Dedupe(ctx context.Context, date string, group []prompts.DedupeEvent) ([]models.TimelineEvent, error) {
	if len(group) == 0 {
		return nil, nil
	}
	prompt, err := prompts.Render(prompts.New(prompts.TimelineDedupe, prompts.Vars{
		"Date":   date,
		"Events": group,
	}))
	if err != nil {
		return nil, err
	}
	output, err := d.model.Complete(ctx, llm.Request{
		Prompt: prompt,
		Schema: &llm.Schema{Name: "event_deduplicate_summary", Definition: dedupeSchema},
		Label:  string(prompts.TimelineDedupe),
	})
	if err != nil {
		return nil, err
	}

	records, err := parseRecords(output)
	if err != nil {
		return nil, fmt.Errorf("date %s: %w", date, err)
	}
	validated := make([]Validated[MergedEvent], len(records))
	for i, r := range records {
		validated[i] = decodeMergedEvent(r)
		if !validated[i].Valid() {
			d.log.Warn("Merged event %d for %s malformed (%s): %s", i, date, d.policy, strings.Join(validated[i].Problems, ", "))
		}
	}

	groupPages := make([]int, 0, len(group))
	for _, ev := range group {
		groupPages = append(groupPages, ev.Page)
	}

	var events []models.TimelineEvent
	for _, merged := range ApplyPolicy(d.policy, validated, fillMergedEvent) {
		desc := strings.TrimSpace(merged.Description)
		if desc == "" {
			continue
		}
		events = append(events, models.TimelineEvent{
			Description: desc,
			Date:        date,
			PageNumbers: NormalizePages(merged.Pages, groupPages),
		})
	}
	return events, nil
}

var pageNumber = regexp.MustCompile(`\d+`)

// NormalizePages parses a comma-separated page list, keeps only pages in
// allowed, and returns them de-duplicated in numeric order. When nothing
// usable remains every allowed page is returned.
func NormalizePages(raw string, allowed []int) []string {
	valid := make(map[int]bool, len(allowed))
	for _, p := range allowed {
		valid[p] = true
	}

	var pages []int
	for _, token := range strings.Split(raw, ",") {
		for _, digits := range pageNumber.FindAllString(strings.TrimSpace(token), -1) {
			n, err := strconv.Atoi(digits)
			if err == nil && valid[n] {
				pages = append(pages, n)
			}
		}
	}
	if len(pages) == 0 {
		pages = slices.Clone(allowed)
	}
	slices.Sort(pages)
	pages = slices.Compact(pages)

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}
