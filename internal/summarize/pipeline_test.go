package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/llm/llmtest"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/prompts"
	"github.com/Epistemic-Technology/casebrief/models"
)

func newTestPipeline(t *testing.T, panel llm.Panel, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(panel, opts, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func pageSequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func tokenSequence(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("PG%d", i+1)
	}
	return out
}

func TestBrief_CoversEveryPageInOrder(t *testing.T) {
	fake := echoFake()
	p := newTestPipeline(t, llm.SinglePanel(fake), testOptions())

	result, err := p.Brief(context.Background(), "report.json", makeDocs(45))
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}

	var starts, ends, covered []int
	for _, b := range result.Batches {
		starts = append(starts, b.StartPage)
		ends = append(ends, b.EndPage)
		for _, s := range b.ChunkSummaries {
			covered = append(covered, s.PageNumbers...)
		}
	}
	if diff := cmp.Diff([]int{1, 21, 41}, starts); diff != "" {
		t.Errorf("Batch starts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{20, 40, 45}, ends); diff != "" {
		t.Errorf("Batch ends mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pageSequence(45), covered); diff != "" {
		t.Errorf("Chunk pages mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(tokenSequence(45), tokens(result.Final.ImprovedFinalSummary)); diff != "" {
		t.Errorf("Final summary lost or reordered pages (-want +got):\n%s", diff)
	}

	want := models.SummaryRecord{
		Sentence:  result.Final.ImprovedFinalSummary,
		Filename:  "report.json",
		StartPage: 1,
		EndPage:   45,
	}
	if diff := cmp.Diff(want, result.Record); diff != "" {
		t.Errorf("Record mismatch (-want +got):\n%s", diff)
	}
	if result.MemoryLog != "Incident Overview:\n- MEMORY" {
		t.Errorf("Unexpected memory log %q", result.MemoryLog)
	}
	if n := fake.Count(string(prompts.FinalCombine)); n != 2 {
		t.Errorf("Expected 2 final combine calls for 3 batches, got %d", n)
	}
}

func TestBrief_FinalImprovementInputs(t *testing.T) {
	newFake := func() *llmtest.Fake {
		fake := echoFake()
		fake.Reply(string(prompts.Condensed), "CONDENSED-DRAFT")
		fake.Reply(string(prompts.CondensedAggregate), "CONDENSED-DRAFT")
		fake.Reply(string(prompts.ImproveCondensed), "MEMORY-IMPROVED")
		return fake
	}

	t.Run("improvement passes are independent", func(t *testing.T) {
		fake := newFake()
		p := newTestPipeline(t, llm.SinglePanel(fake), testOptions())

		result, err := p.Brief(context.Background(), "report.json", makeDocs(25))
		if err != nil {
			t.Fatalf("Brief failed: %v", err)
		}
		if len(result.Batches) != 2 {
			t.Fatalf("Expected 2 batches, got %d", len(result.Batches))
		}

		condensed := fake.CallsFor(string(prompts.ImproveCondensed))
		if len(condensed) != 1 {
			t.Fatalf("Expected 1 improve_condensed call, got %d", len(condensed))
		}
		if !strings.Contains(condensed[0].Prompt, "CONDENSED-DRAFT") {
			t.Error("improve_condensed prompt should carry the condensed summary")
		}
		if !strings.Contains(condensed[0].Prompt, string(result.MemoryLog)) {
			t.Error("improve_condensed prompt should carry the memory log")
		}
		if result.Final.ImprovedCondensedSummary != "MEMORY-IMPROVED" {
			t.Errorf("ImprovedCondensedSummary = %q", result.Final.ImprovedCondensedSummary)
		}

		final := fake.CallsFor(string(prompts.ImproveFinal))
		if len(final) != 1 {
			t.Fatalf("Expected 1 improve_final call, got %d", len(final))
		}
		prompt := final[0].Prompt
		if !strings.Contains(prompt, "CONDENSED-DRAFT") {
			t.Error("improve_final prompt should carry the condensed summary")
		}
		if strings.Contains(prompt, "MEMORY-IMPROVED") {
			t.Error("improve_final prompt should not see the memory log improvement")
		}
		if !strings.Contains(prompt, AllChunkSummaries(result.Batches)) {
			t.Error("improve_final prompt should carry every chunk summary")
		}
		if diff := cmp.Diff(tokenSequence(25), tokens(prompt)); diff != "" {
			t.Errorf("improve_final chunk summaries mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty improvement falls back to condensed summary", func(t *testing.T) {
		fake := newFake()
		fake.Reply(string(prompts.ImproveFinal), `""`)
		p := newTestPipeline(t, llm.SinglePanel(fake), testOptions())

		result, err := p.Brief(context.Background(), "report.json", makeDocs(25))
		if err != nil {
			t.Fatalf("Brief failed: %v", err)
		}
		if result.Final.ImprovedFinalSummary != "CONDENSED-DRAFT" {
			t.Errorf("ImprovedFinalSummary = %q, want the condensed summary", result.Final.ImprovedFinalSummary)
		}
		if result.Record.Sentence != "CONDENSED-DRAFT" {
			t.Errorf("Record sentence = %q", result.Record.Sentence)
		}
	})
}

func TestBrief_MemoryLogAuditIsNotFedBack(t *testing.T) {
	const memoryLog = "Incident Overview:\n- MEMORY"
	fake := echoFake()
	fake.On(string(prompts.Coherence), func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "- MEMORY") {
			return "AUDIT-COHERENT", nil
		}
		return echo(req)
	})
	fake.On(string(prompts.Improvement), func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "AUDIT-COHERENT") {
			return "AUDIT-IMPROVED", nil
		}
		return echo(req)
	})
	p := newTestPipeline(t, llm.SinglePanel(fake), testOptions())

	result, err := p.Brief(context.Background(), "report.json", makeDocs(25))
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}

	audits := 0
	for _, c := range fake.CallsFor(string(prompts.Coherence)) {
		if strings.Contains(c.Prompt, "- MEMORY") {
			audits++
		}
	}
	if audits != len(result.Batches) {
		t.Errorf("Expected one memory log coherence pass per batch (%d), got %d", len(result.Batches), audits)
	}
	for i, b := range result.Batches {
		if b.MemoryLogAudit != "AUDIT-IMPROVED" {
			t.Errorf("Batch %d audit = %q", i, b.MemoryLogAudit)
		}
	}
	if result.MemoryLogAudit != "AUDIT-IMPROVED" {
		t.Errorf("MemoryLogAudit = %q", result.MemoryLogAudit)
	}
	if result.MemoryLog != memoryLog {
		t.Errorf("Canonical memory log changed to %q", result.MemoryLog)
	}

	for _, c := range fake.Calls() {
		if c.Label == string(prompts.Improvement) {
			continue
		}
		if strings.Contains(c.Prompt, "AUDIT-") {
			t.Errorf("%s prompt received the memory log audit", c.Label)
		}
	}
	if diff := cmp.Diff(tokenSequence(25), tokens(result.Final.ImprovedFinalSummary)); diff != "" {
		t.Errorf("Final summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBrief_ChunksDoNotCrossBatchBoundaries(t *testing.T) {
	opts := testOptions()
	opts.BatchSize = 5
	opts.PagesPerChunk = 3
	p := newTestPipeline(t, llm.SinglePanel(echoFake()), opts)

	result, err := p.Brief(context.Background(), "report.json", makeDocs(11))
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}

	var chunks [][]int
	for _, b := range result.Batches {
		for _, s := range b.ChunkSummaries {
			chunks = append(chunks, s.PageNumbers)
		}
	}
	want := [][]int{{1, 2, 3}, {4, 5}, {6, 7, 8}, {9, 10}, {11}}
	if diff := cmp.Diff(want, chunks); diff != "" {
		t.Errorf("Chunk layout mismatch (-want +got):\n%s", diff)
	}
}

func TestBrief_ThreePagesWithBlankPage(t *testing.T) {
	fake := echoFake()
	opts := testOptions()
	opts.PagesPerChunk = 2
	p := newTestPipeline(t, llm.SinglePanel(fake), opts)

	docs := []models.Page{
		{Content: "Officer Smith filed report on 2021-01-01. PG1", PageNumber: 1},
		{Content: "", PageNumber: 2},
		{Content: "Case closed 2021-02-01. PG3", PageNumber: 3},
	}
	result, err := p.Brief(context.Background(), "s1.json", docs)
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}

	if len(result.Batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(result.Batches))
	}
	chunks := result.Batches[0].ChunkSummaries
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if diff := cmp.Diff([]int{1, 2}, chunks[0].PageNumbers); diff != "" {
		t.Errorf("First chunk pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3}, chunks[1].PageNumbers); diff != "" {
		t.Errorf("Second chunk pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"PG1", "PG3"}, tokens(result.Record.Sentence)); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
	if n := fake.Count(string(prompts.FinalCombine)); n != 0 {
		t.Errorf("A single batch should not be folded again, got %d final combine calls", n)
	}
}

func TestBrief_BlankChunkIsEmptyAndAddsNothing(t *testing.T) {
	fake := echoFake()
	opts := testOptions()
	opts.PagesPerChunk = 2
	p := newTestPipeline(t, llm.SinglePanel(fake), opts)

	docs := []models.Page{
		{Content: "Complaint PG1", PageNumber: 1},
		{Content: "Interview PG2", PageNumber: 2},
		{Content: "\n", PageNumber: 3},
		{Content: "", PageNumber: 4},
	}
	result, err := p.Brief(context.Background(), "blank.json", docs)
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}

	chunks := result.Batches[0].ChunkSummaries
	if !chunks[1].Empty() {
		t.Errorf("Blank chunk should be empty, got %q", chunks[1].Content)
	}
	// One sample summary for the memory log and one for the first chunk.
	if n := fake.Count(string(prompts.ChunkSummary)); n != 2 {
		t.Errorf("Expected 2 chunk summary calls, got %d", n)
	}
	if n := fake.Count(string(prompts.Combine)); n != 0 {
		t.Errorf("Empty chunk should not be combined, got %d combine calls", n)
	}
}

func TestBrief_BatchOrderIndependentOfCompletion(t *testing.T) {
	fake := echoFake()
	fake.On(string(prompts.ChunkSummary), func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "PG1.") || strings.Contains(req.Prompt, "PG2.") {
			time.Sleep(50 * time.Millisecond)
		}
		return echo(req)
	})
	opts := testOptions()
	opts.BatchSize = 2
	opts.PagesPerChunk = 1
	p := newTestPipeline(t, llm.SinglePanel(fake), opts)

	result, err := p.Brief(context.Background(), "order.json", makeDocs(4))
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}
	if result.Batches[0].StartPage != 1 || result.Batches[1].StartPage != 3 {
		t.Errorf("Batches not ordered by start page: %d, %d", result.Batches[0].StartPage, result.Batches[1].StartPage)
	}
	if diff := cmp.Diff(tokenSequence(4), tokens(result.Final.FullSummary)); diff != "" {
		t.Errorf("Full summary order mismatch (-want +got):\n%s", diff)
	}
}

func TestBrief_LeafFailures(t *testing.T) {
	failing := func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "PG3.") || strings.Contains(req.Prompt, "PG4.") {
			return "", errors.New("model unavailable")
		}
		return echo(req)
	}

	t.Run("failed chunks become empty summaries", func(t *testing.T) {
		fake := echoFake()
		fake.On(string(prompts.ChunkSummary), failing)
		opts := testOptions()
		opts.PagesPerChunk = 1
		p := newTestPipeline(t, llm.SinglePanel(fake), opts)

		result, err := p.Brief(context.Background(), "leaf.json", makeDocs(5))
		if err != nil {
			t.Fatalf("Brief failed: %v", err)
		}
		if diff := cmp.Diff([]string{"PG1", "PG2", "PG5"}, tokens(result.Record.Sentence)); diff != "" {
			t.Errorf("Summary mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(pageSequence(5), result.Batches[0].Summary.PageNumbers); diff != "" {
			t.Errorf("Batch should still cover every page (-want +got):\n%s", diff)
		}
	})

	t.Run("limit exceeded aborts the document", func(t *testing.T) {
		fake := echoFake()
		fake.On(string(prompts.ChunkSummary), failing)
		opts := testOptions()
		opts.PagesPerChunk = 1
		opts.LeafFailureLimit = 1
		p := newTestPipeline(t, llm.SinglePanel(fake), opts)

		result, err := p.Brief(context.Background(), "leaf.json", makeDocs(5))
		if !errors.Is(err, ErrTooManyLeafFailures) {
			t.Fatalf("Expected ErrTooManyLeafFailures, got %v", err)
		}
		if result != nil {
			t.Error("Failed document should produce no result")
		}
	})
}

func TestBrief_ReductionErrorAbortsDocument(t *testing.T) {
	fake := echoFake()
	fake.On(string(prompts.Coherence), func(llm.Request) (string, error) {
		return "", errors.New("coherence failed")
	})
	p := newTestPipeline(t, llm.SinglePanel(fake), testOptions())

	if _, err := p.Brief(context.Background(), "fail.json", makeDocs(3)); err == nil {
		t.Fatal("Expected error when a batch reduction fails")
	}
}

func TestBrief_MultipleDrafters(t *testing.T) {
	drafters := []*llmtest.Fake{echoFake(), echoFake(), echoFake()}
	lead := echoFake()
	panel := llm.Panel{Aggregator: lead, Verifier: lead, Default: lead}
	for _, d := range drafters {
		panel.Drafters = append(panel.Drafters, d)
	}
	opts := testOptions()
	opts.PagesPerChunk = 2
	p := newTestPipeline(t, panel, opts)

	result, err := p.Brief(context.Background(), "panel.json", makeDocs(4))
	if err != nil {
		t.Fatalf("Brief failed: %v", err)
	}
	for i, d := range drafters {
		if n := d.Count(string(prompts.ChunkSummary)); n != 2 {
			t.Errorf("Drafter %d wrote %d chunk drafts, want 2", i, n)
		}
		if n := d.Count(string(prompts.Condensed)); n != 1 {
			t.Errorf("Drafter %d wrote %d condensed drafts, want 1", i, n)
		}
	}
	if n := lead.Count(string(prompts.DraftAggregate)); n < 2 {
		t.Errorf("Expected chunk drafts to be aggregated, got %d aggregate calls", n)
	}
	if n := lead.Count(string(prompts.CondensedAggregate)); n != 1 {
		t.Errorf("Expected 1 condensed aggregate call, got %d", n)
	}
	if diff := cmp.Diff(tokenSequence(4), tokens(result.Record.Sentence)); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBrief_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(t, llm.SinglePanel(echoFake()), testOptions())

	if _, err := p.Brief(ctx, "cancel.json", makeDocs(3)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestNewPipeline_InvalidPanel(t *testing.T) {
	if _, err := NewPipeline(llm.Panel{}, DefaultOptions(), logger.NewNoOpLogger()); err == nil {
		t.Fatal("Expected error for empty panel")
	}
}

func TestAllChunkSummaries(t *testing.T) {
	batches := []models.BatchResult{
		{ChunkSummaries: []models.ChunkSummary{{Content: "- a"}, {}}},
		{ChunkSummaries: []models.ChunkSummary{{Content: "- b"}}},
	}
	if got := AllChunkSummaries(batches); got != "- a\n\n- b" {
		t.Errorf("AllChunkSummaries() = %q", got)
	}
}
