/*
store.go - Document store boundary

PURPOSE:
  Defines the interface between the domain repositories and persistence.
  Data is organised in named collections of schemaless documents, each
  identified by an opaque string id chosen by the store (or by the caller
  for fixed-key documents such as settings/main and users/{subject}).

KEY TYPES:
  Store:     CRUD + query + atomic batch commit
  Document:  id + field set
  Fields:    sparse field set (key -> value)
  Write:     one operation inside an atomic batch
  Timestamp: the store-native time representation

FIELD VALUES:
  Values are JSON-compatible: string, bool, float64 (ints are accepted on
  write), []string / []any, nil and Timestamp. In Update, a nil value
  removes the key from the stored document.

ATOMIC BATCHES:
  Commit() applies every Write or none of them. A recurring job series of
  N jobs is one Commit; readers never see a partial series.

IMPLEMENTATIONS:
  - docstore/memory.go:       In-memory, for tests and -db=memory runs
  - store/sqlite/sqlite.go:   Embedded SQLite
  - store/postgres/postgres.go: PostgreSQL (pgx)

SEE ALSO:
  - errors.go: ErrNotFound, StorageError, BatchWriteError
  - cleaning/repository.go: Typed repositories built on Store
*/
package docstore

import (
	"context"
	"sort"
)

// =============================================================================
// STORE - Interface for document persistence
// =============================================================================

// Store persists documents grouped by collection.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns one document. ErrNotFound if the id does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns every document of a collection in insertion order.
	List(ctx context.Context, collection string) ([]Document, error)

	// Query returns the documents whose top-level field equals value,
	// in insertion order.
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Add stores a new document and returns its generated id.
	Add(ctx context.Context, collection string, fields Fields) (string, error)

	// Set creates or fully replaces the document with the given id.
	Set(ctx context.Context, collection, id string, fields Fields) error

	// Update merges fields into an existing document. Nil values delete
	// keys. ErrNotFound if the id does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document. ErrNotFound if the id does not exist.
	Delete(ctx context.Context, collection, id string) error

	// Commit applies all writes atomically and returns the document id of
	// each write, in order (generated ids for WriteAdd).
	Commit(ctx context.Context, writes []Write) ([]string, error)

	Close() error
}

// Resetter is implemented by stores that can drop every document at once.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Fields is a sparse set of document fields.
type Fields map[string]any

// Clone returns a deep copy of f so stored state never aliases caller state.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge applies patch on top of f in place. Nil values delete keys.
func (f Fields) Merge(patch Fields) {
	for k, v := range patch {
		if v == nil {
			delete(f, k)
			continue
		}
		f[k] = cloneValue(v)
	}
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		if x == nil {
			return x
		}
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		return map[string]any(Fields(x).Clone())
	case Fields:
		return x.Clone()
	default:
		return v
	}
}

// Document is a stored field set plus its id.
type Document struct {
	ID     string
	Fields Fields
}

// =============================================================================
// BATCH WRITES
// =============================================================================

type WriteKind int

const (
	WriteAdd WriteKind = iota
	WriteSet
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteAdd:
		return "add"
	case WriteSet:
		return "set"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Write is one operation of an atomic batch. ID is ignored for WriteAdd.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     Fields
}

// AddWrite builds a WriteAdd.
func AddWrite(collection string, fields Fields) Write {
	return Write{Kind: WriteAdd, Collection: collection, Fields: fields}
}

// SetWrite builds a WriteSet.
func SetWrite(collection, id string, fields Fields) Write {
	return Write{Kind: WriteSet, Collection: collection, ID: id, Fields: fields}
}
