package timeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
)

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		count   int
		wantErr bool
	}{
		{"events list", `{"events": [{"description": "A", "date": "2021-01-01"}, {"description": "B", "date": "N/A"}]}`, 2, false},
		{"empty answer", `""`, 0, false},
		{"missing events", `{}`, 0, false},
		{"null events", `{"events": null}`, 0, false},
		{"events not a list", `{"events": "none"}`, 0, true},
		{"not JSON", `events: none`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := parseRecords(tt.output)
			if tt.wantErr {
				if !errors.Is(err, llm.ErrInvalidResponse) {
					t.Fatalf("Expected ErrInvalidResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRecords failed: %v", err)
			}
			if len(records) != tt.count {
				t.Errorf("Expected %d records, got %d", tt.count, len(records))
			}
		})
	}
}

func TestApplyPolicy(t *testing.T) {
	records, err := parseRecords(`{"events": [
		{"description": "Complaint filed", "date": "2021-01-01"},
		{"description": "Interview held"},
		"garbage"
	]}`)
	if err != nil {
		t.Fatalf("parseRecords failed: %v", err)
	}
	validated := make([]Validated[Event], len(records))
	for i, r := range records {
		validated[i] = decodeEvent(r)
	}

	tests := []struct {
		policy ValidationPolicy
		want   []Event
	}{
		{
			policy: PolicyPlaceholder,
			want: []Event{
				{Description: "Complaint filed", Date: "2021-01-01"},
				{Description: "Interview held", Date: DateUnknown},
				{Description: "", Date: DateUnknown},
			},
		},
		{
			policy: PolicyDrop,
			want: []Event{
				{Description: "Complaint filed", Date: "2021-01-01"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			got := ApplyPolicy(tt.policy, validated, fillEvent)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyPolicy() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("Drop") != PolicyDrop {
		t.Error("Expected drop policy")
	}
	if ParsePolicy("") != PolicyPlaceholder || ParsePolicy("other") != PolicyPlaceholder {
		t.Error("Expected placeholder policy by default")
	}
}

func TestDecodeMergedEvent_NumericPage(t *testing.T) {
	v := decodeMergedEvent(map[string]any{"description": "A", "page": float64(3)})
	if !v.Valid() || v.Value.Pages != "3" {
		t.Errorf("Unexpected result %+v", v)
	}
}
