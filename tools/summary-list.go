package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/models"
)

type SummaryListQuery struct {
	Filename string `json:"filename,omitempty" jsonschema:"Only list runs for this document"`
	Kind     string `json:"kind,omitempty" jsonschema:"Only list runs of this kind: brief, timeline or comprehensive"`
}

type SummaryListResponse struct {
	Runs  []models.RunInfo `json:"runs"`
	Count int              `json:"count"`
}

func SummaryListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[SummaryListQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "summary-list",
		Description: "List stored summary runs, newest first. Each run can be read through its summary://{run_id} resources.",
		InputSchema: inputschema,
	}
}

func SummaryListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query SummaryListQuery, store storage.Store, log logger.Logger) (*mcp.CallToolResult, *SummaryListResponse, error) {
	log.Info("summary-list tool called")
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered := make([]models.RunInfo, 0, len(runs))
	for _, run := range runs {
		if query.Filename != "" && run.Filename != query.Filename {
			continue
		}
		if query.Kind != "" && string(run.Kind) != query.Kind {
			continue
		}
		filtered = append(filtered, run)
	}
	return nil, &SummaryListResponse{Runs: filtered, Count: len(filtered)}, nil
}
