package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
)

// Validated is a record parsed from model output together with whatever
// was wrong with it. Value holds the fields that did parse.
type Validated[T any] struct {
	Value    T
	Problems []string
}

func (v Validated[T]) Valid() bool {
	return len(v.Problems) == 0
}

// ValidationPolicy decides what malformed records become.
type ValidationPolicy int

const (
	// PolicyPlaceholder keeps malformed records with missing fields filled
	// by placeholders. Records left without a description are ignored
	// downstream.
	PolicyPlaceholder ValidationPolicy = iota
	// PolicyDrop discards malformed records.
	PolicyDrop
)

func (p ValidationPolicy) String() string {
	switch p {
	case PolicyDrop:
		return "drop"
	default:
		return "placeholder"
	}
}

// ParsePolicy reads a policy name, defaulting to PolicyPlaceholder.
func ParsePolicy(name string) ValidationPolicy {
	if strings.EqualFold(strings.TrimSpace(name), "drop") {
		return PolicyDrop
	}
	return PolicyPlaceholder
}

// ApplyPolicy resolves validated records under p. fill supplies the
// placeholders for a malformed record's missing fields.
func ApplyPolicy[T any](p ValidationPolicy, records []Validated[T], fill func(T) T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r.Value)
			continue
		}
		if p == PolicyDrop {
			continue
		}
		out = append(out, fill(r.Value))
	}
	return out
}

// Event is one dated event reported for a page.
type Event struct {
	Description string `json:"description"`
	Date        string `json:"date"`
}

// MergedEvent is one event returned by deduplication. Pages is the
// comma-separated list of source pages.
type MergedEvent struct {
	Description string `json:"description"`
	Pages       string `json:"page"`
}

var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"events": map[string]any{
			"type":        "array",
			"description": "List of events extracted from the page",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string", "description": "Description of the event"},
					"date":        map[string]any{"type": "string", "description": "Date of the event as YYYY-MM-DD"},
				},
				"required":             []string{"description", "date"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"events"},
	"additionalProperties": false,
}

var dedupeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"events": map[string]any{
			"type":        "array",
			"description": "List of deduplicated events",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string", "description": "Description of the event"},
					"page":        map[string]any{"type": "string", "description": "Comma-separated page numbers where the event is mentioned"},
				},
				"required":             []string{"description", "page"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"events"},
	"additionalProperties": false,
}

// parseRecords reads {"events": [...]} leniently. A missing or null events
// field is an empty list; anything else that is not a list is an error.
func parseRecords(output string) ([]map[string]any, error) {
	output = strings.TrimSpace(output)
	if output == "" || output == `""` {
		return nil, nil
	}
	var envelope struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(output), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrInvalidResponse, err)
	}
	if len(envelope.Events) == 0 || string(envelope.Events) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(envelope.Events, &items); err != nil {
		return nil, fmt.Errorf("%w: events must be a list", llm.ErrInvalidResponse)
	}

	records := make([]map[string]any, len(items))
	for i, item := range items {
		var m map[string]any
		if err := json.Unmarshal(item, &m); err != nil {
			m = nil
		}
		records[i] = m
	}
	return records, nil
}

// field returns m[key] as a string. Numbers are formatted; other types and
// missing keys report false.
func field(m map[string]any, key string) (string, bool) {
	switch v := m[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func decodeEvent(m map[string]any) Validated[Event] {
	var v Validated[Event]
	if m == nil {
		v.Problems = append(v.Problems, "event is not an object")
		return v
	}
	var ok bool
	if v.Value.Description, ok = field(m, "description"); !ok {
		v.Problems = append(v.Problems, "missing description")
	}
	if v.Value.Date, ok = field(m, "date"); !ok {
		v.Problems = append(v.Problems, "missing date")
	}
	return v
}

func decodeMergedEvent(m map[string]any) Validated[MergedEvent] {
	var v Validated[MergedEvent]
	if m == nil {
		v.Problems = append(v.Problems, "event is not an object")
		return v
	}
	var ok bool
	if v.Value.Description, ok = field(m, "description"); !ok {
		v.Problems = append(v.Problems, "missing description")
	}
	if v.Value.Pages, ok = field(m, "page"); !ok {
		v.Problems = append(v.Problems, "missing page")
	}
	return v
}

func fillEvent(e Event) Event {
	if strings.TrimSpace(e.Date) == "" {
		e.Date = DateUnknown
	}
	return e
}

// A merged event without pages falls back to every page of its date group
// during normalization, so nothing needs filling.
func fillMergedEvent(e MergedEvent) MergedEvent {
	return e
}
