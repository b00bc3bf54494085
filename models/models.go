package models

// Page is one OCR'd page of a source document.
type Page struct {
	Content    string `json:"page_content"`
	PageNumber int    `json:"page_number"`
}

// Chunk is a run of contiguous pages handed to a single summary call, with
// short snippets of the neighbouring pages for continuity.
type Chunk struct {
	PageNumbers        []int  `json:"page_numbers"`
	Content            string `json:"content"`
	PreviousPageEnding string `json:"previous_page_ending,omitempty"`
	NextPageBeginning  string `json:"next_page_beginning,omitempty"`
}

// ChunkSummary is a bulleted summary of one or more pages. Empty Content
// means nothing relevant was found on those pages.
type ChunkSummary struct {
	Content     string `json:"content"`
	PageNumbers []int  `json:"page_numbers"`
}

func (s ChunkSummary) Empty() bool {
	return s.Content == ""
}

// MemoryLog is the document-wide running digest used as shared context.
type MemoryLog string

type BatchResult struct {
	Summary        ChunkSummary   `json:"summary"`
	StartPage      int            `json:"start_page"`
	EndPage        int            `json:"end_page"`
	ChunkSummaries []ChunkSummary `json:"chunk_summaries"`
	MemoryLogAudit string         `json:"memory_log_audit,omitempty"`
}

type FinalSummary struct {
	FullSummary              string `json:"full_summary"`
	CondensedSummary         string `json:"condensed_summary"`
	ImprovedCondensedSummary string `json:"improved_condensed_summary"`
	ImprovedFinalSummary     string `json:"improved_final_summary"`
	StartPage                int    `json:"start_page"`
	EndPage                  int    `json:"end_page"`
}

type TimelineEvent struct {
	Description string   `json:"description"`
	Date        string   `json:"date"`
	PageNumbers []string `json:"page_numbers"`
}

// SummaryRecord is the unit handed to the document sink.
type SummaryRecord struct {
	Sentence    string   `json:"sentence"`
	Filename    string   `json:"filename"`
	StartPage   int      `json:"start_page,omitempty"`
	EndPage     int      `json:"end_page,omitempty"`
	PageNumbers []string `json:"page_numbers,omitempty"`
}

// RunKind names the output a document run produces.
type RunKind string

const (
	RunBrief         RunKind = "brief"
	RunTimeline      RunKind = "timeline"
	RunComprehensive RunKind = "comprehensive"
)

// Run is a completed document run as persisted by the sink.
type Run struct {
	RunID          string          `json:"run_id"`
	Filename       string          `json:"filename"`
	Kind           RunKind         `json:"kind"`
	SourceInfo     SourceInfo      `json:"source_info,omitempty"`
	PageCount      int             `json:"page_count"`
	Records        []SummaryRecord `json:"records"`
	MemoryLog      MemoryLog       `json:"memory_log,omitempty"`
	MemoryLogAudit string          `json:"memory_log_audit,omitempty"`
	Batches        []BatchResult   `json:"batches,omitempty"`
	Final          *FinalSummary   `json:"final,omitempty"`
}

type DocumentData struct {
	Data []byte
	Type string
}

type DocumentPageData []byte
type DocumentPages []DocumentPageData

// SourceInfo contains information about where a document came from
type SourceInfo struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
}

// RunInfo contains basic information about a stored run
type RunInfo struct {
	RunID      string     `json:"run_id"`
	Filename   string     `json:"filename"`
	Kind       RunKind    `json:"kind"`
	PageCount  int        `json:"page_count"`
	CreatedAt  string     `json:"created_at,omitempty"`
	SourceInfo SourceInfo `json:"source_info,omitempty"`
}
