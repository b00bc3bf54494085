package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/models"
)

type DocumentComprehensiveQuery struct {
	DocumentSource
	Instructions string `json:"instructions,omitempty" jsonschema:"Extra guidance applied to every page summary"`
}

type DocumentComprehensiveResponse struct {
	RunHeader
	Pages []models.SummaryRecord `json:"pages"`
}

func DocumentComprehensiveTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentComprehensiveQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-comprehensive",
		Description: "Summarize every page of a legal or police document individually. Each page is drafted and then improved; blank pages produce no record.",
		InputSchema: inputschema,
	}
}

func DocumentComprehensiveToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentComprehensiveQuery, deps operations.Deps) (*mcp.CallToolResult, *DocumentComprehensiveResponse, error) {
	deps.Log.Info("document-comprehensive tool called")
	run, err := runDocument(ctx, query.DocumentSource, models.RunComprehensive, query.Instructions, deps)
	if err != nil {
		return nil, nil, err
	}
	pages := run.Records
	if pages == nil {
		pages = []models.SummaryRecord{}
	}
	return nil, &DocumentComprehensiveResponse{RunHeader: header(run), Pages: pages}, nil
}
