package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/models"
)

// SummaryResourceHandler serves stored runs under summary://
type SummaryResourceHandler struct {
	store storage.Store
}

// NewSummaryResourceHandler creates a new summary resource handler
func NewSummaryResourceHandler(store storage.Store) *SummaryResourceHandler {
	return &SummaryResourceHandler{store: store}
}

// ReadResource reads a specific resource by URI:
// summary://{runId}[/records[/{index}] | /memory-log | /batches[/{index}]]
func (h *SummaryResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, storage.ResourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme, expected %s", storage.ResourceScheme)
	}
	parts := strings.Split(strings.TrimPrefix(uri, storage.ResourceScheme), "/")
	runID := parts[0]
	if runID == "" {
		return nil, fmt.Errorf("invalid URI, missing run ID")
	}

	resourceType := ""
	if len(parts) > 1 {
		resourceType = parts[1]
	}
	index := -1
	if len(parts) > 2 {
		var err error
		index, err = strconv.Atoi(parts[2])
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid index: %s", parts[2])
		}
	}

	run, err := h.store.GetRun(ctx, runID)
	if errors.Is(err, storage.ErrRunNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	var value any
	switch resourceType {
	case "":
		value = runOverview(run)
	case "records":
		if index >= 0 {
			if index >= len(run.Records) {
				return nil, mcp.ResourceNotFoundError(uri)
			}
			value = run.Records[index]
		} else {
			value = map[string]any{"count": len(run.Records), "records": nonNil(run.Records)}
		}
	case "memory-log":
		if run.MemoryLog == "" {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		value = map[string]string{"memory_log": string(run.MemoryLog), "audit": run.MemoryLogAudit}
	case "batches":
		if index >= 0 {
			if index >= len(run.Batches) {
				return nil, mcp.ResourceNotFoundError(uri)
			}
			value = run.Batches[index]
		} else {
			value = map[string]any{"count": len(run.Batches), "batches": nonNil(run.Batches)}
		}
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resourceType)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func runOverview(run *models.Run) map[string]any {
	overview := map[string]any{
		"run_id":              run.RunID,
		"filename":            run.Filename,
		"kind":                run.Kind,
		"page_count":          run.PageCount,
		"record_count":        len(run.Records),
		"batch_count":         len(run.Batches),
		"source":              run.SourceInfo,
		"available_resources": storage.CalculateResourcePaths(run)[1:],
	}
	if run.Final != nil {
		overview["final"] = run.Final
	}
	return overview
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
