package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/config"
	"github.com/Epistemic-Technology/casebrief/internal/documents"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/resources"
	"github.com/Epistemic-Technology/casebrief/tools"
)

// Version is reported to MCP clients.
const Version = "v0.1.0"

// CreateServer registers the summary tools and summary:// resources. deps.Sink
// should be store so tool runs are readable as resources.
func CreateServer(deps operations.Deps, store storage.Store, log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "casebrief", Version: Version}, nil)
	summaryResourceHandler := resources.NewSummaryResourceHandler(store)
	zotero := documents.ZoteroCredentialsFromEnv()

	mcp.AddTool(server, tools.DocumentBriefTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentBriefQuery) (*mcp.CallToolResult, *tools.DocumentBriefResponse, error) {
		return tools.DocumentBriefToolHandler(ctx, req, query, deps)
	})

	mcp.AddTool(server, tools.DocumentTimelineTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentTimelineQuery) (*mcp.CallToolResult, *tools.DocumentTimelineResponse, error) {
		return tools.DocumentTimelineToolHandler(ctx, req, query, deps)
	})

	mcp.AddTool(server, tools.DocumentComprehensiveTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentComprehensiveQuery) (*mcp.CallToolResult, *tools.DocumentComprehensiveResponse, error) {
		return tools.DocumentComprehensiveToolHandler(ctx, req, query, deps)
	})

	mcp.AddTool(server, tools.SummaryListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.SummaryListQuery) (*mcp.CallToolResult, *tools.SummaryListResponse, error) {
		return tools.SummaryListToolHandler(ctx, req, query, store, log)
	})

	mcp.AddTool(server, tools.CaseFileSearchTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.CaseFileSearchQuery) (*mcp.CallToolResult, *tools.CaseFileSearchResponse, error) {
		return tools.CaseFileSearchToolHandler(ctx, req, query, zotero, log)
	})

	mcp.AddTool(server, tools.CaseFolderListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.CaseFolderListQuery) (*mcp.CallToolResult, *tools.CaseFolderListResponse, error) {
		return tools.CaseFolderListToolHandler(ctx, req, query, zotero, log)
	})

	templates := []*mcp.ResourceTemplate{
		{
			URITemplate: "summary://{runId}",
			Name:        "summary-run",
			Description: "Overview of a stored run with its final summary and available resources",
		},
		{
			URITemplate: "summary://{runId}/records",
			Name:        "summary-records",
			Description: "All output records of a run in emission order",
		},
		{
			URITemplate: "summary://{runId}/records/{recordIndex}",
			Name:        "summary-record",
			Description: "A specific output record (0-indexed)",
		},
		{
			URITemplate: "summary://{runId}/memory-log",
			Name:        "summary-memory-log",
			Description: "The document-wide memory log and its audited revision",
		},
		{
			URITemplate: "summary://{runId}/batches",
			Name:        "summary-batches",
			Description: "Per-batch combined summaries with their chunk summaries",
		},
		{
			URITemplate: "summary://{runId}/batches/{batchIndex}",
			Name:        "summary-batch",
			Description: "A specific batch (0-indexed)",
		},
	}
	for _, tmpl := range templates {
		tmpl.MIMEType = "application/json"
		server.AddResourceTemplate(tmpl, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return summaryResourceHandler.ReadResource(ctx, req.Params.URI)
		})
	}

	return server
}

// InitializeStorage opens the SQLite store named by the config.
func InitializeStorage(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	log.Info("Initializing SQLite database at: %s", cfg.Storage.DatabasePath)
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}
	return store, nil
}
