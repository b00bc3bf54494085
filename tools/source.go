package tools

import (
	"context"
	"errors"

	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/models"
)

// DocumentSource selects the document a run reads. Exactly one field other
// than Filename should be set.
type DocumentSource struct {
	ZoteroID string `json:"zotero_id,omitempty" jsonschema:"Zotero attachment key of a PDF"`
	URL      string `json:"url,omitempty" jsonschema:"URL of a PDF or OCR JSON file"`
	Path     string `json:"path,omitempty" jsonschema:"Local path of a PDF or OCR JSON file"`
	RawData  []byte `json:"raw_data,omitempty" jsonschema:"Raw PDF or OCR JSON bytes"`
	Filename string `json:"filename,omitempty" jsonschema:"Name recorded against the output records"`
}

var errNoSource = errors.New("one of zotero_id, url, path or raw_data is required")

func (s DocumentSource) request(kind models.RunKind) (operations.SummarizeRequest, error) {
	if s.ZoteroID == "" && s.URL == "" && s.Path == "" && len(s.RawData) == 0 {
		return operations.SummarizeRequest{}, errNoSource
	}
	return operations.SummarizeRequest{
		Kind:     kind,
		Filename: s.Filename,
		Source:   models.SourceInfo{ZoteroID: s.ZoteroID, URL: s.URL, Path: s.Path},
		RawData:  s.RawData,
	}, nil
}

// RunHeader identifies a stored run and the resources it exposes.
type RunHeader struct {
	RunID         string   `json:"run_id"`
	Filename      string   `json:"filename"`
	PageCount     int      `json:"page_count"`
	ResourcePaths []string `json:"resource_paths,omitempty"`
}

func header(run *models.Run) RunHeader {
	return RunHeader{
		RunID:         run.RunID,
		Filename:      run.Filename,
		PageCount:     run.PageCount,
		ResourcePaths: storage.CalculateResourcePaths(run),
	}
}

func runDocument(ctx context.Context, source DocumentSource, kind models.RunKind, instructions string, deps operations.Deps) (*models.Run, error) {
	req, err := source.request(kind)
	if err != nil {
		return nil, err
	}
	req.Instructions = instructions
	return operations.SummarizeDocument(ctx, req, deps)
}
