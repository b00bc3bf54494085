package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Epistemic-Technology/casebrief/models"
)

var (
	// ErrMalformedInput means the OCR output could not be parsed. The
	// document should be skipped, not retried.
	ErrMalformedInput = errors.New("malformed OCR input")
	// ErrEmptyDocument means the OCR output has no page records.
	ErrEmptyDocument = errors.New("document has no pages")
)

// ocrDocument mirrors the OCR stage's output file.
type ocrDocument struct {
	Messages *[]ocrPage `json:"messages"`
}

type ocrPage struct {
	PageContent *string `json:"page_content"`
	PageNumber  *int    `json:"page_number"`
}

// LoadPages parses OCR output of the form
// {"messages": [{"page_content": "...", "page_number": 1}, ...]}
// into pages sorted by page number. Blank pages are kept. Records without a
// positive page number take their 1-based position.
func LoadPages(data []byte) ([]models.Page, error) {
	var doc ocrDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if doc.Messages == nil {
		return nil, fmt.Errorf("%w: missing \"messages\" array", ErrMalformedInput)
	}
	if len(*doc.Messages) == 0 {
		return nil, ErrEmptyDocument
	}

	pages := make([]models.Page, 0, len(*doc.Messages))
	seen := make(map[int]bool, len(*doc.Messages))
	for i, record := range *doc.Messages {
		if record.PageContent == nil {
			return nil, fmt.Errorf("%w: record %d has no page_content", ErrMalformedInput, i)
		}
		number := i + 1
		if record.PageNumber != nil && *record.PageNumber > 0 {
			number = *record.PageNumber
		}
		if seen[number] {
			return nil, fmt.Errorf("%w: duplicate page number %d", ErrMalformedInput, number)
		}
		seen[number] = true
		pages = append(pages, models.Page{Content: *record.PageContent, PageNumber: number})
	}

	sort.Slice(pages, func(a, b int) bool { return pages[a].PageNumber < pages[b].PageNumber })
	return pages, nil
}

// LoadPagesFile reads and parses an OCR output file.
func LoadPagesFile(path string) ([]models.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pages, err := LoadPages(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return pages, nil
}

// MarshalPages renders pages in the OCR output format.
func MarshalPages(pages []models.Page) ([]byte, error) {
	records := make([]ocrPage, len(pages))
	for i := range pages {
		records[i] = ocrPage{PageContent: &pages[i].Content, PageNumber: &pages[i].PageNumber}
	}
	return json.MarshalIndent(ocrDocument{Messages: &records}, "", "  ")
}
