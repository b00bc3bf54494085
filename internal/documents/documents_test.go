package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Epistemic-Technology/casebrief/models"
)

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "PDF document",
			data:     []byte("%PDF-1.4\nsome pdf content"),
			expected: TypePDF,
		},
		{
			name:     "OCR JSON",
			data:     []byte(`{"messages": [{"page_content": "text", "page_number": 1}]}`),
			expected: TypeOCRJSON,
		},
		{
			name:     "OCR JSON with leading whitespace",
			data:     []byte("\n  {\"messages\": []}"),
			expected: TypeOCRJSON,
		},
		{
			name:     "Broken JSON is plain text",
			data:     []byte(`{"messages": [`),
			expected: TypeText,
		},
		{
			name:     "Plain text",
			data:     []byte("Officer Smith filed a report."),
			expected: TypeText,
		},
		{
			name:     "Binary",
			data:     []byte{0x00, 0x01, 0x02, 0x03, 0xFF},
			expected: TypeUnknown,
		},
		{
			name:     "Empty",
			data:     nil,
			expected: TypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDocumentType(tt.data); got != tt.expected {
				t.Errorf("DetectDocumentType() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{"Plain text", []byte("This is plain text with spaces and punctuation!"), true},
		{"Text with newlines", []byte("Line 1\nLine 2\nLine 3"), true},
		{"Binary with null byte", []byte{0x48, 0x65, 0x6C, 0x00, 0x57}, false},
		{"Mostly binary data", []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD}, false},
		{"Mostly text", append([]byte("This is mostly text "), []byte{0x7F, 0x1B}...), true},
		{"Empty data", []byte{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isLikelyText(tt.data); result != tt.expected {
				t.Errorf("isLikelyText() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetData_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte(`{"messages": []}`), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := GetData(context.Background(), models.SourceInfo{Path: path}, ZoteroCredentials{})
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if data.Type != TypeOCRJSON {
		t.Errorf("Expected json type, got %q", data.Type)
	}
}

func TestGetData_NoSource(t *testing.T) {
	if _, err := GetData(context.Background(), models.SourceInfo{}, ZoteroCredentials{}); err == nil {
		t.Fatal("Expected error when no source is given")
	}
}

func TestGetFromZotero_MissingCredentials(t *testing.T) {
	if _, err := GetFromZotero(context.Background(), "ABCD1234", ZoteroCredentials{}); err == nil {
		t.Fatal("Expected error for missing Zotero credentials")
	}
}
