package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/documents"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/operations"
)

type CaseFileSearchQuery struct {
	Query      string   `json:"query,omitempty" jsonschema:"Quick search text matched against title, creator and year"`
	Tags       []string `json:"tags,omitempty" jsonschema:"Filter by tags, such as a case number"`
	Collection string   `json:"collection,omitempty" jsonschema:"Collection key of a case folder"`
	Limit      int      `json:"limit,omitempty" jsonschema:"Maximum number of items to search (default 25)"`
}

type CaseFileSearchResponse struct {
	Files []operations.CaseFile `json:"files"`
	Count int                   `json:"count"`
}

func CaseFileSearchTool() *mcp.Tool {
	inputschema, err := jsonschema.For[CaseFileSearchQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "casefile-search",
		Description: "Search a Zotero library for case documents and return their PDF attachments. Pass an attachment's zotero_id to document-brief, document-timeline or document-comprehensive.",
		InputSchema: inputschema,
	}
}

func CaseFileSearchToolHandler(ctx context.Context, req *mcp.CallToolRequest, query CaseFileSearchQuery, creds documents.ZoteroCredentials, log logger.Logger) (*mcp.CallToolResult, *CaseFileSearchResponse, error) {
	log.Info("casefile-search tool called")
	files, err := operations.FindCaseFiles(ctx, creds, operations.CaseFileQuery{
		Query:      query.Query,
		Tags:       query.Tags,
		Collection: query.Collection,
		Limit:      query.Limit,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	if files == nil {
		files = []operations.CaseFile{}
	}
	return nil, &CaseFileSearchResponse{Files: files, Count: len(files)}, nil
}

type CaseFolderListQuery struct {
	Parent string `json:"parent,omitempty" jsonschema:"List subfolders of this collection key"`
}

type CaseFolderListResponse struct {
	Folders []operations.CaseFolder `json:"folders"`
	Count   int                     `json:"count"`
}

func CaseFolderListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[CaseFolderListQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "casefolder-list",
		Description: "List Zotero collections used as case folders. Use a folder key as the collection of casefile-search.",
		InputSchema: inputschema,
	}
}

func CaseFolderListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query CaseFolderListQuery, creds documents.ZoteroCredentials, log logger.Logger) (*mcp.CallToolResult, *CaseFolderListResponse, error) {
	log.Info("casefolder-list tool called")
	folders, err := operations.ListCaseFolders(ctx, creds, query.Parent, log)
	if err != nil {
		return nil, nil, err
	}
	return nil, &CaseFolderListResponse{Folders: folders, Count: len(folders)}, nil
}
