package documents

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Epistemic-Technology/casebrief/models"
)

func loadSamplePDFs(t *testing.T) []string {
	samplesDir := filepath.Join("..", "samples")
	files, err := filepath.Glob(filepath.Join(samplesDir, "*.pdf"))
	if err != nil {
		t.Fatalf("Failed to list sample PDFs: %v", err)
	}
	if len(files) == 0 {
		t.Skip("No sample PDFs found in samples directory")
	}
	return files
}

func TestSplitPdf(t *testing.T) {
	for _, filePath := range loadSamplePDFs(t) {
		t.Run(filepath.Base(filePath), func(t *testing.T) {
			pdfBytes, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatalf("Failed to read PDF file %s: %v", filePath, err)
			}

			expectedPageCount, err := api.PageCount(bytes.NewReader(pdfBytes), nil)
			if err != nil {
				t.Fatalf("Failed to get page count: %v", err)
			}

			pages, err := SplitPdf(models.DocumentData{Data: pdfBytes, Type: TypePDF})
			if err != nil {
				t.Fatalf("SplitPdf failed: %v", err)
			}
			if len(pages) != expectedPageCount {
				t.Errorf("Expected %d pages, got %d", expectedPageCount, len(pages))
			}

			for i, pageData := range pages {
				pageCount, err := api.PageCount(bytes.NewReader(pageData), nil)
				if err != nil {
					t.Errorf("Page %d is not a valid PDF: %v", i+1, err)
					continue
				}
				if pageCount != 1 {
					t.Errorf("Page %d should have 1 page, but has %d", i+1, pageCount)
				}
			}

			texts, err := ExtractTextLayer(pdfBytes)
			if err != nil {
				t.Logf("No text layer for %s: %v", filepath.Base(filePath), err)
				return
			}
			if len(texts) != expectedPageCount {
				t.Errorf("Expected %d text entries, got %d", expectedPageCount, len(texts))
			}
		})
	}
}

func TestSplitPdf_EmptyInput(t *testing.T) {
	if _, err := SplitPdf(models.DocumentData{}); err == nil {
		t.Error("Expected error for empty PDF data, got nil")
	}
}

func TestSplitPdf_InvalidInput(t *testing.T) {
	if _, err := SplitPdf(models.DocumentData{Data: []byte("This is not a PDF")}); err == nil {
		t.Error("Expected error for invalid PDF data, got nil")
	}
}

func TestExtractTextLayer_InvalidInput(t *testing.T) {
	if _, err := ExtractTextLayer([]byte("This is not a PDF")); err == nil {
		t.Error("Expected error for invalid PDF data, got nil")
	}
}
