// Package store provides access to the ledger store holding banking
// operations. The linker consumes the Store interface only; the SQLite
// implementation backs the CLI.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
)

// isoMillisLayout is the timestamp layout used for range query bounds:
// ISO-8601 UTC with millisecond precision.
const isoMillisLayout = "2006-01-02T15:04:05.000Z"

// ISOTimestamp serializes a time as an ISO-8601 UTC timestamp with
// millisecond precision, the wire format of range query bounds.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillisLayout)
}

// Index identifies a declared index on a collection.
type Index struct {
	Doctype string
	Fields  []string
	Name    string
}

// DateRange selects operations whose date lies strictly between the two
// bounds. Both bounds are exclusive.
type DateRange struct {
	GreaterThan time.Time
	LessThan    time.Time
}

// Selector restricts a query. Only date-range selection is supported.
type Selector struct {
	Date DateRange
}

// Store is the storage collaborator the linker depends on.
type Store interface {
	// DefineIndex declares an index on the given fields. Idempotent.
	DefineIndex(ctx context.Context, doctype string, fields []string) (*Index, error)

	// Query runs a range query against the index and returns matching
	// operations in store order.
	Query(ctx context.Context, index *Index, selector Selector) ([]*models.Operation, error)

	// UpdateAttributes merges the given attributes into the stored record.
	UpdateAttributes(ctx context.Context, doctype, id string, attrs map[string]interface{}) error
}

// indexName derives a stable index name from a doctype and its fields.
func indexName(doctype string, fields []string) string {
	sanitized := strings.NewReplacer(".", "_", "-", "_").Replace(doctype)
	return "idx_" + sanitized + "_" + strings.Join(fields, "_")
}
