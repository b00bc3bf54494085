package resources

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/models"
)

func newHandler(t *testing.T) (*SummaryResourceHandler, *models.Run) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "casebrief.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	run := &models.Run{
		Filename:  "report.json",
		Kind:      models.RunBrief,
		PageCount: 2,
		Records:   []models.SummaryRecord{{Sentence: "A complaint was filed.", Filename: "report.json", StartPage: 1, EndPage: 2}},
		MemoryLog: "Incident Overview:\n- complaint",
		Batches:   []models.BatchResult{{Summary: models.ChunkSummary{Content: "- complaint", PageNumbers: []int{1, 2}}, StartPage: 1, EndPage: 2}},
		Final:     &models.FinalSummary{ImprovedFinalSummary: "A complaint was filed.", StartPage: 1, EndPage: 2},
	}
	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return NewSummaryResourceHandler(store), run
}

func TestReadResource(t *testing.T) {
	h, run := newHandler(t)
	base := storage.ResourceScheme + run.RunID

	tests := []struct {
		name     string
		uri      string
		contains string
	}{
		{"overview", base, `"record_count": 1`},
		{"records", base + "/records", "A complaint was filed."},
		{"single record", base + "/records/0", `"start_page": 1`},
		{"memory log", base + "/memory-log", "Incident Overview"},
		{"batches", base + "/batches", `"count": 1`},
		{"single batch", base + "/batches/0", `"end_page": 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.ReadResource(context.Background(), tt.uri)
			if err != nil {
				t.Fatalf("ReadResource(%s) failed: %v", tt.uri, err)
			}
			text := result.Contents[0].Text
			if !json.Valid([]byte(text)) {
				t.Fatalf("Resource is not valid JSON: %s", text)
			}
			if !strings.Contains(text, tt.contains) {
				t.Errorf("Expected %q in %s", tt.contains, text)
			}
		})
	}
}

func TestReadResource_Errors(t *testing.T) {
	h, run := newHandler(t)
	base := storage.ResourceScheme + run.RunID

	uris := []string{
		"pdf://" + run.RunID,
		storage.ResourceScheme,
		storage.ResourceScheme + "missing-run",
		base + "/records/5",
		base + "/records/x",
		base + "/pages",
	}
	for _, uri := range uris {
		if _, err := h.ReadResource(context.Background(), uri); err == nil {
			t.Errorf("ReadResource(%q) expected error", uri)
		}
	}
}
