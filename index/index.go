// Package index is the search index of cinedex documents: a Client
// interface, its Elasticsearch implementation, and a Loader which applies
// batches of documents to an index.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a requested document or index doesn't exist.
var ErrNotFound = errors.New("not found")

// Document is a value stored in an index under its identifier.
type Document interface {
	DocumentID() string
}

// OpType is the type of a bulk operation.
type OpType string

const (
	// Create inserts a Document which must not exist.
	Create OpType = "create"
	// Update merges the fields of a Document into its existing version.
	Update OpType = "update"
)

// Op is an operation of a Bulk request.
type Op struct {
	Type OpType
	Doc  Document
}

// ItemError is a failed Op of a Bulk request.
type ItemError struct {
	ID     string
	Status int
	Reason string
}

// BulkResult is the outcome of a Bulk request.
type BulkResult struct {
	Applied int
	Failed  []ItemError
}

// Err returns an error summarizing failed items, or nil if none failed.
func (r BulkResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	var parts []string
	for i, f := range r.Failed {
		if i == 3 {
			parts = append(parts, fmt.Sprintf("and %d more", len(r.Failed)-i))
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%d: %s)", f.ID, f.Status, f.Reason))
	}
	return fmt.Errorf("%d of %d bulk items failed: %s",
		len(r.Failed), len(r.Failed)+r.Applied, strings.Join(parts, ", "))
}

// SearchResult is a page of search hits.
type SearchResult struct {
	// Total number of documents matching the query, across all pages.
	Total int64
	// Hits are the source documents of the page.
	Hits []json.RawMessage
}

// Client is a search index store.
type Client interface {
	// ExistingIDs returns the subset of |ids| having a document in |index|.
	ExistingIDs(ctx context.Context, index string, ids []string) (map[string]bool, error)
	// Get the source document |id| of |index|, or ErrNotFound.
	Get(ctx context.Context, index, id string) (json.RawMessage, error)
	// Search |index| with the JSON query |body|.
	Search(ctx context.Context, index string, body []byte) (SearchResult, error)
	// Bulk applies |ops| to |index| in a single request.
	Bulk(ctx context.Context, index string, ops []Op) (BulkResult, error)
	// EnsureIndex creates |index| with |schema| if it doesn't exist.
	// If |recreate|, an existing index is first deleted.
	EnsureIndex(ctx context.Context, index string, schema []byte, recreate bool) error
}
