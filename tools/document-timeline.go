package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/models"
)

type DocumentTimelineQuery struct {
	DocumentSource
}

type DocumentTimelineResponse struct {
	RunHeader
	Events []models.SummaryRecord `json:"events"`
	Count  int                    `json:"count"`
}

func DocumentTimelineTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentTimelineQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-timeline",
		Description: "Extract a chronological timeline of events from a legal or police document. Events are extracted per page, dates are standardized to YYYY-MM-DD, and events sharing a date are merged with their source pages.",
		InputSchema: inputschema,
	}
}

func DocumentTimelineToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentTimelineQuery, deps operations.Deps) (*mcp.CallToolResult, *DocumentTimelineResponse, error) {
	deps.Log.Info("document-timeline tool called")
	run, err := runDocument(ctx, query.DocumentSource, models.RunTimeline, "", deps)
	if err != nil {
		return nil, nil, err
	}
	events := run.Records
	if events == nil {
		events = []models.SummaryRecord{}
	}
	return nil, &DocumentTimelineResponse{
		RunHeader: header(run),
		Events:    events,
		Count:     len(events),
	}, nil
}
