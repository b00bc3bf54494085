package operations

import (
	"context"
	"errors"
	"testing"

	"github.com/Epistemic-Technology/casebrief/internal/documents"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
)

// zoteroCredentials skips the test unless a real library is configured.
func zoteroCredentials(t *testing.T) documents.ZoteroCredentials {
	creds := documents.ZoteroCredentialsFromEnv()
	if creds.APIKey == "" || creds.LibraryID == "" {
		t.Skip("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID not set, skipping integration test")
	}
	return creds
}

func TestFindCaseFiles_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	creds := zoteroCredentials(t)

	files, err := FindCaseFiles(context.Background(), creds, CaseFileQuery{Limit: 10}, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("FindCaseFiles failed: %v", err)
	}
	t.Logf("Found %d case files", len(files))
	for i, f := range files {
		if f.ZoteroID == "" || f.ItemKey == "" {
			t.Errorf("Case file %d is missing keys: %+v", i, f)
		}
	}
}

func TestListCaseFolders_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	creds := zoteroCredentials(t)

	folders, err := ListCaseFolders(context.Background(), creds, "", logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("ListCaseFolders failed: %v", err)
	}
	for i, f := range folders {
		if f.Key == "" {
			t.Errorf("Folder %d has empty key", i)
		}
	}
}

func TestZotero_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	tests := []struct {
		name  string
		creds documents.ZoteroCredentials
	}{
		{"Missing API key", documents.ZoteroCredentials{LibraryID: "12345"}},
		{"Missing library ID", documents.ZoteroCredentials{APIKey: "test-key"}},
		{"Missing both", documents.ZoteroCredentials{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FindCaseFiles(ctx, tt.creds, CaseFileQuery{}, log); !errors.Is(err, ErrZoteroCredentials) {
				t.Errorf("FindCaseFiles: expected ErrZoteroCredentials, got %v", err)
			}
			if _, err := ListCaseFolders(ctx, tt.creds, "", log); !errors.Is(err, ErrZoteroCredentials) {
				t.Errorf("ListCaseFolders: expected ErrZoteroCredentials, got %v", err)
			}
		})
	}
}

func TestIsPDFAttachment(t *testing.T) {
	tests := []struct {
		itemType, contentType, filename string
		want                            bool
	}{
		{"attachment", "application/pdf", "report.pdf", true},
		{"attachment", "", "SCAN.PDF", true},
		{"attachment", "text/html", "snapshot.html", false},
		{"note", "application/pdf", "report.pdf", false},
	}
	for _, tt := range tests {
		if got := isPDFAttachment(tt.itemType, tt.contentType, tt.filename); got != tt.want {
			t.Errorf("isPDFAttachment(%q, %q, %q) = %v, want %v", tt.itemType, tt.contentType, tt.filename, got, tt.want)
		}
	}
}
