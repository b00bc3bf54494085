package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Epistemic-Technology/casebrief/models"
)

// FileOutput is the per-document JSON layout consumed downstream.
type FileOutput struct {
	Files []models.SummaryRecord `json:"files"`
}

// NewFileOutput wraps records, never producing a null list.
func NewFileOutput(records []models.SummaryRecord) FileOutput {
	if records == nil {
		records = []models.SummaryRecord{}
	}
	return FileOutput{Files: records}
}

// WriteFileOutputs writes one FileOutput per run as an indented JSON array.
func WriteFileOutputs(w io.Writer, runs []*models.Run) error {
	outputs := make([]FileOutput, len(runs))
	for i, run := range runs {
		outputs[i] = NewFileOutput(run.Records)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(outputs)
}

// JSONSink writes each run's records to <dir>/<document>.<kind>.json.
type JSONSink struct {
	Dir string
}

func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{Dir: dir}
}

func (s *JSONSink) Save(ctx context.Context, run *models.Run) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(NewFileOutput(run.Records), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	path := s.PathFor(run)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// PathFor returns the output file for run.
func (s *JSONSink) PathFor(run *models.Run) string {
	base := filepath.Base(run.Filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.Dir, fmt.Sprintf("%s.%s.json", base, run.Kind))
}

var _ Sink = (*JSONSink)(nil)
