package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/casebrief/models"
)

// Document types recognised by DetectDocumentType.
const (
	TypePDF     = "pdf"
	TypeOCRJSON = "json"
	TypeText    = "txt"
	TypeUnknown = "unknown"
)

// ZoteroCredentials identifies the Zotero library PDFs are downloaded from.
type ZoteroCredentials struct {
	APIKey    string
	LibraryID string
}

// ZoteroCredentialsFromEnv reads ZOTERO_API_KEY and ZOTERO_LIBRARY_ID.
func ZoteroCredentialsFromEnv() ZoteroCredentials {
	return ZoteroCredentials{
		APIKey:    os.Getenv("ZOTERO_API_KEY"),
		LibraryID: os.Getenv("ZOTERO_LIBRARY_ID"),
	}
}

// DetectDocumentType determines the type of document from the raw data
// by checking magic bytes/headers
func DetectDocumentType(data []byte) string {
	if len(data) == 0 {
		return TypeUnknown
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return TypePDF
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) && json.Valid(trimmed) {
		return TypeOCRJSON
	}

	if isLikelyText(data) {
		return TypeText
	}

	return TypeUnknown
}

// isLikelyText reports whether the first 512 bytes are free of NUL bytes and
// at least 90% printable ASCII or whitespace.
func isLikelyText(data []byte) bool {
	sample := data[:min(len(data), 512)]
	if len(sample) == 0 || bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	printable := 0
	for _, b := range sample {
		switch {
		case b >= ' ' && b <= '~', b == '\n', b == '\r', b == '\t':
			printable++
		}
	}
	return printable*10 > len(sample)*9
}

// GetData retrieves document data from a source and detects its type.
// Sources are tried in order: local path, Zotero, URL.
func GetData(ctx context.Context, sourceInfo models.SourceInfo, creds ZoteroCredentials) (models.DocumentData, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case sourceInfo.Path != "":
		data, err = os.ReadFile(sourceInfo.Path)
	case sourceInfo.ZoteroID != "":
		data, err = GetFromZotero(ctx, sourceInfo.ZoteroID, creds)
	case sourceInfo.URL != "":
		data, err = GetFromURL(ctx, sourceInfo.URL)
	default:
		return models.DocumentData{}, errors.New("no data provided")
	}
	switch {
	case err != nil:
		return models.DocumentData{}, err
	case data == nil:
		return models.DocumentData{}, errors.New("no data retrieved")
	}
	return models.DocumentData{Data: data, Type: DetectDocumentType(data)}, nil
}

// GetFromURL fetches document data from a URL
func GetFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// GetFromZotero downloads the file behind a Zotero attachment key.
func GetFromZotero(ctx context.Context, attachmentKey string, creds ZoteroCredentials) ([]byte, error) {
	if creds.APIKey == "" || creds.LibraryID == "" {
		return nil, errors.New("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID must be set to fetch from Zotero")
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))
	data, err := client.File(ctx, attachmentKey)
	if err != nil {
		return nil, fmt.Errorf("zotero attachment %s: %w", attachmentKey, err)
	}
	return data, nil
}
