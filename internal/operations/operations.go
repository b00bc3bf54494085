// Package operations holds the document-level workflows shared by the CLI,
// the inbox watcher and the MCP tools.
package operations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/documents"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/internal/summarize"
	"github.com/Epistemic-Technology/casebrief/internal/timeline"
	"github.com/Epistemic-Technology/casebrief/models"
)

// ErrUnknownKind is returned for a run kind other than brief, timeline or
// comprehensive.
var ErrUnknownKind = errors.New("unknown run kind")

// Deps are the collaborators a document run needs.
type Deps struct {
	Source   documents.PageSource
	Pipeline *summarize.Pipeline
	Timeline *timeline.Builder
	// Sink receives completed runs. It may be nil.
	Sink storage.Sink
	Log  logger.Logger
}

// SummarizeRequest describes one document run. Exactly one of RawData,
// Source.Path, Source.URL or Source.ZoteroID should be set.
type SummarizeRequest struct {
	Kind         models.RunKind
	Filename     string
	Source       models.SourceInfo
	RawData      []byte
	Instructions string
}

// SummarizeDocument resolves the document's pages, runs the requested kind
// and hands the finished run to the sink. Nothing is saved when any stage
// fails.
func SummarizeDocument(ctx context.Context, req SummarizeRequest, deps Deps) (*models.Run, error) {
	kind := req.Kind
	if kind == "" {
		kind = models.RunBrief
	}
	filename := req.Filename
	if filename == "" {
		filename = DocumentName(req.Source)
	}
	log := deps.Log.With(filename)

	docs, err := deps.Source.Pages(ctx, req.Source, req.RawData)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	log.Info("Loaded %d pages", len(docs))

	run := &models.Run{
		RunID:      storage.NewRunID(),
		Filename:   filename,
		Kind:       kind,
		SourceInfo: req.Source,
		PageCount:  len(docs),
	}

	switch kind {
	case models.RunBrief:
		result, err := deps.Pipeline.Brief(ctx, filename, docs)
		if err != nil {
			return nil, fmt.Errorf("brief failed for %s: %w", filename, err)
		}
		run.Records = []models.SummaryRecord{result.Record}
		run.MemoryLog = result.MemoryLog
		run.MemoryLogAudit = result.MemoryLogAudit
		run.Batches = result.Batches
		run.Final = result.Final
	case models.RunTimeline:
		records, err := deps.Timeline.Records(ctx, filename, docs)
		if err != nil {
			return nil, fmt.Errorf("timeline failed for %s: %w", filename, err)
		}
		run.Records = records
	case models.RunComprehensive:
		records, err := deps.Pipeline.Comprehensive(ctx, filename, docs, req.Instructions)
		if err != nil {
			return nil, fmt.Errorf("comprehensive summary failed for %s: %w", filename, err)
		}
		run.Records = records
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if deps.Sink != nil {
		if err := deps.Sink.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to save run for %s: %w", filename, err)
		}
	}
	log.Info("Completed %s run %s with %d records", kind, run.RunID, len(run.Records))
	return run, nil
}

// SummarizeFile runs kind over a local document.
func SummarizeFile(ctx context.Context, filePath string, kind models.RunKind, instructions string, deps Deps) (*models.Run, error) {
	return SummarizeDocument(ctx, SummarizeRequest{
		Kind:         kind,
		Filename:     filepath.Base(filePath),
		Source:       models.SourceInfo{Path: filePath},
		Instructions: instructions,
	}, deps)
}

// DocumentName picks the filename recorded against a run.
func DocumentName(source models.SourceInfo) string {
	switch {
	case source.Path != "":
		return filepath.Base(source.Path)
	case source.URL != "":
		if u, err := url.Parse(source.URL); err == nil {
			if base := path.Base(u.Path); base != "/" && base != "." {
				return base
			}
			return u.Host
		}
		return source.URL
	case source.ZoteroID != "":
		return "zotero-" + source.ZoteroID
	default:
		return "document"
	}
}

// ParseKind validates a run kind name.
func ParseKind(name string) (models.RunKind, error) {
	switch kind := models.RunKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case models.RunBrief, models.RunTimeline, models.RunComprehensive:
		return kind, nil
	case "":
		return models.RunBrief, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}
