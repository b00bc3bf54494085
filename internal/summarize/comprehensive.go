package summarize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

var leadingLabel = regexp.MustCompile(`(?i)^(intro(duction)?|summary|page summary|improved summary)\s*:\s*`)

// CleanSummary drops leading blank lines and a leading label such as
// "Intro:" from a page summary.
func CleanSummary(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	s = leadingLabel.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Comprehensive summarizes every page on its own and then checks each
// summary against its raw page. It returns one record per page that
// produced a summary, in page order. Pages that fail are logged and left
// out.
func (p *Pipeline) Comprehensive(ctx context.Context, filename string, docs []models.Page, instructions string) ([]models.SummaryRecord, error) {
	log := p.log.With(filename)
	model := p.panel.Default

	summaries, errs := llm.ParallelCollect(ctx, docs, p.opts.Workers,
		func(ctx context.Context, _ int, page models.Page) (string, error) {
			if blank(page.Content) {
				return "", nil
			}
			initial, err := complete(ctx, model, prompts.New(prompts.PageSummary, prompts.Vars{
				"Instructions": instructions,
				"CurrentPage":  page.Content,
			}))
			if err != nil {
				return "", err
			}
			improved, err := complete(ctx, model, prompts.New(prompts.PageImprove, prompts.Vars{
				"Instructions":   instructions,
				"RawPage":        page.Content,
				"InitialSummary": initial,
			}))
			if err != nil {
				return "", err
			}
			if improved == "" {
				improved = initial
			}
			return CleanSummary(improved), nil
		})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []models.SummaryRecord
	for i, page := range docs {
		if errs[i] != nil {
			log.Error("Page %d summary failed: %v", page.PageNumber, errs[i])
			continue
		}
		if summaries[i] == "" {
			continue
		}
		records = append(records, models.SummaryRecord{
			Sentence:    summaries[i],
			Filename:    filename,
			StartPage:   page.PageNumber,
			EndPage:     page.PageNumber,
			PageNumbers: []string{strconv.Itoa(page.PageNumber)},
		})
	}
	log.Info("Comprehensive summary produced %d of %d pages", len(records), len(docs))
	return records, nil
}
