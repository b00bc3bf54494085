package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/models"
)

var (
	// ErrOCRUnavailable means page text could not be produced because the
	// transcription backend is missing or failing.
	ErrOCRUnavailable = errors.New("OCR unavailable")
	// ErrNoExtractableText means every page of the document came back blank.
	ErrNoExtractableText = errors.New("no extractable text")
)

// A text layer shorter than this is treated as missing and the page is
// transcribed instead.
const minTextLayerChars = 20

// PageSource produces ordered page text for a document.
type PageSource interface {
	Pages(ctx context.Context, source models.SourceInfo, raw []byte) ([]models.Page, error)
}

// Source resolves documents from a local path, a URL, a Zotero attachment or
// raw bytes. OCR JSON is parsed directly. PDFs use their text layer where one
// exists and fall back to model transcription page by page.
type Source struct {
	transcriber llm.Model
	zotero      ZoteroCredentials
	workers     int
	log         logger.Logger
}

// NewSource builds a Source. transcriber may be nil, in which case scanned
// PDF pages without a text layer fail with ErrOCRUnavailable.
func NewSource(transcriber llm.Model, zotero ZoteroCredentials, workers int, log logger.Logger) *Source {
	return &Source{transcriber: transcriber, zotero: zotero, workers: workers, log: log}
}

func (s *Source) Pages(ctx context.Context, source models.SourceInfo, raw []byte) ([]models.Page, error) {
	var data models.DocumentData
	if raw != nil {
		data = models.DocumentData{Data: raw, Type: DetectDocumentType(raw)}
	} else {
		var err error
		data, err = GetData(ctx, source, s.zotero)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch document data: %w", err)
		}
	}

	switch data.Type {
	case TypeOCRJSON:
		return LoadPages(data.Data)
	case TypePDF:
		return s.pdfPages(ctx, data)
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q", ErrMalformedInput, data.Type)
	}
}

func (s *Source) pdfPages(ctx context.Context, data models.DocumentData) ([]models.Page, error) {
	texts, err := ExtractTextLayer(data.Data)
	if err != nil {
		s.log.Debug("No usable text layer, transcribing every page: %v", err)
		texts = nil
	}

	var split models.DocumentPages
	needsTranscription := texts == nil
	for _, t := range texts {
		if len(strings.TrimSpace(t)) < minTextLayerChars {
			needsTranscription = true
			break
		}
	}
	if needsTranscription {
		split, err = SplitPdf(data)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to split PDF: %v", ErrMalformedInput, err)
		}
		if texts == nil {
			texts = make([]string, len(split))
		}
		if len(split) != len(texts) {
			return nil, fmt.Errorf("%w: page count mismatch (%d split, %d text)", ErrMalformedInput, len(split), len(texts))
		}
	}

	indexes := make([]int, len(texts))
	for i := range indexes {
		indexes[i] = i
	}
	contents, errs := llm.ParallelCollect(ctx, indexes, s.workers, func(ctx context.Context, _ int, i int) (string, error) {
		if len(strings.TrimSpace(texts[i])) >= minTextLayerChars {
			return texts[i], nil
		}
		if s.transcriber == nil {
			return "", fmt.Errorf("%w: page %d has no text layer and no transcription model is configured", ErrOCRUnavailable, i+1)
		}
		s.log.Debug("Transcribing page %d", i+1)
		text, err := llm.TranscribePage(ctx, s.transcriber, split[i], i+1)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrOCRUnavailable, i+1, err)
		}
		return text, nil
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	pages := make([]models.Page, len(contents))
	blank := true
	for i, content := range contents {
		pages[i] = models.Page{Content: content, PageNumber: i + 1}
		if strings.TrimSpace(content) != "" {
			blank = false
		}
	}
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	if blank {
		return nil, ErrNoExtractableText
	}
	s.log.Info("Extracted text for %d PDF pages", len(pages))
	return pages, nil
}

var _ PageSource = (*Source)(nil)
