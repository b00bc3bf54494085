package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/casebrief/internal/documents"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
)

// ErrZoteroCredentials is returned when the Zotero API key or library ID is
// missing.
var ErrZoteroCredentials = errors.New("Zotero API key and library ID are required")

// CaseFileQuery narrows a search for case documents stored in Zotero.
type CaseFileQuery struct {
	Query      string   // Quick search text (title, creator, year)
	Tags       []string // Filter by tags, e.g. a case number
	Collection string   // Restrict to one collection (case folder)
	Limit      int      // Max parent items (default 25, 100 within a collection)
}

// CaseFile is a PDF attachment that can be passed to a run as zotero_id.
type CaseFile struct {
	ZoteroID  string `json:"zotero_id"`
	Filename  string `json:"filename"`
	ItemKey   string `json:"item_key"`
	ItemTitle string `json:"item_title"`
	DateAdded string `json:"date_added,omitempty"`
}

// CaseFolder is a Zotero collection.
type CaseFolder struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// FindCaseFiles searches the library and returns every PDF attachment of the
// matching items. Items whose attachments cannot be listed are skipped.
func FindCaseFiles(ctx context.Context, creds documents.ZoteroCredentials, q CaseFileQuery, log logger.Logger) ([]CaseFile, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))

	params := &zotero.QueryParams{
		Q:        q.Query,
		QMode:    "titleCreatorYear",
		Tag:      q.Tags,
		ItemType: []string{"-attachment"},
		Limit:    q.Limit,
		Sort:     "dateAdded",
	}

	var items []zotero.Item
	var err error
	if q.Collection != "" {
		if params.Limit == 0 {
			params.Limit = 100
		}
		items, err = client.CollectionItems(ctx, q.Collection, params)
	} else {
		if params.Limit == 0 {
			params.Limit = 25
		}
		items, err = client.Items(ctx, params)
	}
	if err != nil {
		log.Error("Zotero search failed: %v", err)
		return nil, fmt.Errorf("failed to search Zotero library: %w", err)
	}
	log.Debug("Zotero search matched %d items", len(items))

	var files []CaseFile
	for _, item := range items {
		if item.Data.ItemType == "attachment" {
			continue
		}
		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Warn("Skipping item %s: failed to list attachments: %v", item.Key, err)
			continue
		}
		for _, child := range children {
			if !isPDFAttachment(child.Data.ItemType, child.Data.ContentType, child.Data.Filename) {
				continue
			}
			files = append(files, CaseFile{
				ZoteroID:  child.Key,
				Filename:  child.Data.Filename,
				ItemKey:   item.Key,
				ItemTitle: item.Data.Title,
				DateAdded: item.Data.DateAdded,
			})
		}
	}
	log.Info("Found %d case files", len(files))
	return files, nil
}

// ListCaseFolders returns the library's collections, or the subcollections
// of parent when it is set.
func ListCaseFolders(ctx context.Context, creds documents.ZoteroCredentials, parent string, log logger.Logger) ([]CaseFolder, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))
	params := &zotero.QueryParams{Limit: 100, Sort: "title"}

	var collections []zotero.Collection
	var err error
	if parent != "" {
		collections, err = client.CollectionsSub(ctx, parent, params)
	} else {
		collections, err = client.Collections(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list Zotero collections: %w", err)
	}

	folders := make([]CaseFolder, 0, len(collections))
	for _, c := range collections {
		folders = append(folders, CaseFolder{
			Key:    c.Data.Key,
			Name:   c.Data.Name,
			Parent: c.Data.ParentCollection.String(),
		})
	}
	log.Debug("Listed %d case folders", len(folders))
	return folders, nil
}

func checkCredentials(creds documents.ZoteroCredentials) error {
	if creds.APIKey == "" || creds.LibraryID == "" {
		return ErrZoteroCredentials
	}
	return nil
}

func isPDFAttachment(itemType, contentType, filename string) bool {
	if itemType != "attachment" {
		return false
	}
	return contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
