package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

var transcriptionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"content": map[string]any{
			"type":        "string",
			"description": "Verbatim text of the page in reading order, empty if the page has no text",
		},
	},
	"required":             []string{"content"},
	"additionalProperties": false,
}

const transcriptionPrompt = `Transcribe this scanned page from a legal or police record.
Return every word visible on the page in natural reading order, including headers, form labels, handwritten notes, stamps and signatures rendered as text.
Do not summarize, correct or interpret anything. If the page contains no legible text, return an empty string.`

// TranscribePage reads the text of a single-page PDF through the model's
// file input. It is the fallback for scans with no usable text layer.
func TranscribePage(ctx context.Context, m Model, page []byte, pageNumber int) (string, error) {
	output, err := m.Complete(ctx, Request{
		Prompt: transcriptionPrompt,
		Schema: &Schema{Name: "page_transcription", Definition: transcriptionSchema},
		Attachment: &Attachment{
			Filename: fmt.Sprintf("page-%d.pdf", pageNumber),
			MIMEType: "application/pdf",
			Data:     page,
		},
		Label: "page_transcription",
	})
	if err != nil {
		return "", err
	}
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		return "", fmt.Errorf("%w: page %d transcription: %v", ErrInvalidResponse, pageNumber, err)
	}
	return strings.TrimSpace(parsed.Content), nil
}
