package summarize

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/llm/llmtest"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

func TestSampleIndexes(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{n: 0, want: nil},
		{n: 3, want: []int{0, 2}},
		{n: 10, want: []int{0, 2, 4, 6, 8}},
		{n: 12, want: []int{0, 2, 4, 6, 8, 10}},
		{n: 25, want: []int{0, 2, 4, 6, 8, 15, 17, 19, 21, 23}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SampleIndexes(tt.n, 10)); diff != "" {
			t.Errorf("SampleIndexes(%d) mismatch (-want +got):\n%s", tt.n, diff)
		}
	}
}

func TestMemoryBuilder_UsesTwoPageChunksWithoutContext(t *testing.T) {
	fake := echoFake()
	b := NewMemoryBuilder(fake, testOptions(), logger.NewNoOpLogger())

	if _, err := b.Build(context.Background(), makeDocs(4)); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	calls := fake.CallsFor(string(prompts.ChunkSummary))
	if len(calls) != 2 {
		t.Fatalf("Expected 2 sample summaries, got %d", len(calls))
	}
	if diff := cmp.Diff([]string{"PG1", "PG2"}, tokens(calls[0].Prompt)); diff != "" {
		t.Errorf("First sample pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"PG3", "PG4"}, tokens(calls[1].Prompt)); diff != "" {
		t.Errorf("Second sample pages mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryBuilder_SamplesSeeRunningLog(t *testing.T) {
	fake := echoFake()
	fake.Reply(string(prompts.MemoryVerify), "Incident Overview:\n- VERIFIED-FIRST")
	b := NewMemoryBuilder(fake, testOptions(), logger.NewNoOpLogger())

	if _, err := b.Build(context.Background(), makeDocs(4)); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	calls := fake.CallsFor(string(prompts.ChunkSummary))
	if len(calls) != 2 {
		t.Fatalf("Expected 2 sample summaries, got %d", len(calls))
	}
	if strings.Contains(calls[0].Prompt, "VERIFIED-FIRST") {
		t.Error("First sample should be summarized against an empty log")
	}
	if !strings.Contains(calls[1].Prompt, "Incident Overview:\n- VERIFIED-FIRST") {
		t.Error("Second sample should be summarized against the log verified after the first")
	}
}

func TestMemoryBuilder_RollsBackFailedTransactions(t *testing.T) {
	tests := []struct {
		name   string
		verify func(call int64) (string, error)
		want   models.MemoryLog
	}{
		{
			name: "verify error keeps previous log",
			verify: func(call int64) (string, error) {
				if call == 1 {
					return "Incident Overview:\n- first", nil
				}
				return "", errors.New("verify failed")
			},
			want: "Incident Overview:\n- first",
		},
		{
			name: "empty verification of a non-empty log keeps previous log",
			verify: func(call int64) (string, error) {
				if call == 1 {
					return "Incident Overview:\n- first", nil
				}
				return `""`, nil
			},
			want: "Incident Overview:\n- first",
		},
		{
			name: "verified update replaces log",
			verify: func(call int64) (string, error) {
				if call == 1 {
					return "Incident Overview:\n- first", nil
				}
				return "Incident Overview:\n- first\n- second", nil
			},
			want: "Incident Overview:\n- first\n- second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int64
			fake := echoFake()
			fake.Reply(string(prompts.MemoryUpdate), "updated")
			fake.On(string(prompts.MemoryVerify), func(llm.Request) (string, error) {
				return tt.verify(calls.Add(1))
			})

			b := NewMemoryBuilder(fake, testOptions(), logger.NewNoOpLogger())
			got, err := b.Build(context.Background(), makeDocs(4))
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryBuilder_UpdateFailureKeepsLog(t *testing.T) {
	var updates atomic.Int64
	fake := echoFake()
	fake.On(string(prompts.MemoryUpdate), func(llm.Request) (string, error) {
		if updates.Add(1) == 1 {
			return "", errors.New("update failed")
		}
		return "updated", nil
	})
	fake.Reply(string(prompts.MemoryVerify), "Incident Overview:\n- second")

	b := NewMemoryBuilder(fake, testOptions(), logger.NewNoOpLogger())
	got, err := b.Build(context.Background(), makeDocs(4))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got != "Incident Overview:\n- second" {
		t.Errorf("Build() = %q", got)
	}
	if n := fake.Count(string(prompts.MemoryVerify)); n != 1 {
		t.Errorf("Expected verify only after the successful update, got %d calls", n)
	}
}

func TestMemoryBuilder_VerifySeesOldAndUpdatedLog(t *testing.T) {
	fake := echoFake()
	fake.Reply(string(prompts.MemoryUpdate), "NEW-LOG")
	fake.Reply(string(prompts.MemoryVerify), "OLD-LOG")

	b := NewMemoryBuilder(fake, testOptions(), logger.NewNoOpLogger())
	got, err := b.Update(context.Background(), "OLD-LOG", "- PG1")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got != "OLD-LOG" {
		t.Errorf("Update() = %q, want verifier output", got)
	}
	calls := fake.CallsFor(string(prompts.MemoryVerify))
	if len(calls) != 1 || !strings.Contains(calls[0].Prompt, "OLD-LOG") || !strings.Contains(calls[0].Prompt, "NEW-LOG") {
		t.Errorf("Verify prompt should carry both logs")
	}
}

func TestMemoryBuilder_SkipsBlankAndEmptySamples(t *testing.T) {
	fake := llmtest.New().Reply(string(prompts.ChunkSummary), `""`)
	docs := []models.Page{
		{Content: "", PageNumber: 1},
		{Content: " ", PageNumber: 2},
		{Content: "irrelevant boilerplate", PageNumber: 3},
	}

	b := NewMemoryBuilder(fake, testOptions(), logger.NewNoOpLogger())
	got, err := b.Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got != "" {
		t.Errorf("Build() = %q, want empty log", got)
	}
	if n := len(fake.Calls()); n != 1 {
		t.Errorf("Expected 1 call for the only non-blank sample, got %d", n)
	}
}
