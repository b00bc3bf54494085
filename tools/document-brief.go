package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/models"
)

type DocumentBriefQuery struct {
	DocumentSource
}

type DocumentBriefResponse struct {
	RunHeader
	Summary          string `json:"summary"`
	CondensedSummary string `json:"condensed_summary,omitempty"`
	StartPage        int    `json:"start_page"`
	EndPage          int    `json:"end_page"`
}

func DocumentBriefTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentBriefQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-brief",
		Description: "Produce a brief of one to five paragraphs for a legal or police document (OCR JSON or PDF). Pages are summarized in overlapping chunks against a document-wide memory log, combined per batch with multiple drafts and verification, then condensed. The full intermediate output is stored and exposed as summary:// resources.",
		InputSchema: inputschema,
	}
}

func DocumentBriefToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentBriefQuery, deps operations.Deps) (*mcp.CallToolResult, *DocumentBriefResponse, error) {
	deps.Log.Info("document-brief tool called")
	run, err := runDocument(ctx, query.DocumentSource, models.RunBrief, "", deps)
	if err != nil {
		return nil, nil, err
	}

	response := &DocumentBriefResponse{RunHeader: header(run)}
	if len(run.Records) > 0 {
		rec := run.Records[0]
		response.Summary = rec.Sentence
		response.StartPage = rec.StartPage
		response.EndPage = rec.EndPage
	}
	if run.Final != nil {
		response.CondensedSummary = run.Final.ImprovedCondensedSummary
	}
	return nil, response, nil
}
