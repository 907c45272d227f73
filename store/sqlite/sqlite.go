/*
Package sqlite provides a SQLite-backed implementation of docstore.Store.

PURPOSE:
  Persists every collection in a single documents table. Each row is one
  document whose fields are stored as JSON text, so the schema never
  changes when an entity gains a field.

KEY TABLE:
  documents(collection, id, seq, data, created_at, updated_at)
    PRIMARY KEY (collection, id)
    seq   monotonically increasing insertion counter; List and Query
          order by it. Set on an existing id keeps the original seq.
    data  JSON object; Timestamps encoded as {"$timestamp": "..."}

QUERIES:
  Equality on a top-level field uses json_extract on both sides so that
  strings, numbers, booleans and encoded timestamps compare by value.

ATOMIC BATCHES:
  Commit runs every write inside one SQL transaction. Update is a
  read-merge-write, which is why single operations also go through the
  same apply path under the store mutex.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite allows a single writer at a
  time anyway; the mutex keeps read-merge-write updates consistent.

MIGRATION:
  Versioned with goose; the SQL files are embedded from migrations/.

USAGE:
  store, err := sqlite.New(ctx, "./data/ops.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - docstore/store.go: Interface definition
  - docstore/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: Same model on PostgreSQL (jsonb)
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "documents"

// nextSeq allocates the insertion counter inside the INSERT itself.
var nextSeq = sq.Expr("(SELECT COALESCE(MAX(seq), 0) + 1 FROM " + table + ")")

// Store implements docstore.Store using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	newID func() string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid generator used by Add.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New opens (or creates) the database at dbPath and applies pending
// migrations. Use ":memory:" for a throwaway database.
func New(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return newStore(db, opts...), nil
}

func newStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the embedded goose migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// READS
// =============================================================================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, err := s.load(ctx, s.db, collection, id)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDocuments(ctx, collection, sq.Eq{"collection": collection})
}

func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	encoded, err := docstore.EncodeValue(value)
	if err != nil {
		return nil, err
	}
	return s.queryDocuments(ctx, collection, sq.And{
		sq.Eq{"collection": collection},
		sq.Expr("json_extract(data, ?) = json_extract(?, '$')", "$."+field, string(encoded)),
	})
}

func (s *Store) load(ctx context.Context, q querier, collection, id string) (docstore.Fields, error) {
	query, args, err := sq.Select("data").
		From(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var data string
	err = q.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, docstore.Wrap("get", collection, err)
	}
	return docstore.DecodeJSON([]byte(data))
}

func (s *Store) queryDocuments(ctx context.Context, collection string, where sq.Sqlizer) ([]docstore.Document, error) {
	query, args, err := sq.Select("id", "data").
		From(table).
		Where(where).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, docstore.Wrap("list", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, docstore.Wrap("list", collection, err)
		}
		fields, err := docstore.DecodeJSON([]byte(data))
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, docstore.Wrap("list", collection, err)
	}
	return docs, nil
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) Add(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.db, docstore.AddWrite(collection, fields))
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.apply(ctx, s.db, docstore.SetWrite(collection, id, fields))
	return err
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.apply(ctx, s.db, docstore.Write{Kind: docstore.WriteUpdate, Collection: collection, ID: id, Fields: fields})
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.apply(ctx, s.db, docstore.Write{Kind: docstore.WriteDelete, Collection: collection, ID: id})
	return err
}

// Commit applies all writes in one SQL transaction.
func (s *Store) Commit(ctx context.Context, writes []docstore.Write) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &docstore.BatchWriteError{Writes: len(writes), Index: -1, Err: err}
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(writes))
	for i, w := range writes {
		id, err := s.apply(ctx, tx, w)
		if err != nil {
			return nil, &docstore.BatchWriteError{Writes: len(writes), Index: i, Err: err}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, &docstore.BatchWriteError{Writes: len(writes), Index: -1, Err: err}
	}
	return ids, nil
}

func (s *Store) apply(ctx context.Context, q querier, w docstore.Write) (string, error) {
	now := s.now().Format(time.RFC3339Nano)

	switch w.Kind {
	case docstore.WriteAdd:
		id := s.newID()
		data, err := docstore.EncodeJSON(withoutNil(w.Fields))
		if err != nil {
			return "", err
		}
		insert := sq.Insert(table).
			Columns("collection", "id", "seq", "data", "created_at", "updated_at").
			Values(w.Collection, id, nextSeq, string(data), now, now)
		return id, s.exec(ctx, q, "add", w.Collection, insert)

	case docstore.WriteSet:
		if w.ID == "" {
			return "", fmt.Errorf("set on %s: empty id", w.Collection)
		}
		data, err := docstore.EncodeJSON(withoutNil(w.Fields))
		if err != nil {
			return "", err
		}
		upsert := sq.Insert(table).
			Columns("collection", "id", "seq", "data", "created_at", "updated_at").
			Values(w.Collection, w.ID, nextSeq, string(data), now, now).
			Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at")
		return w.ID, s.exec(ctx, q, "set", w.Collection, upsert)

	case docstore.WriteUpdate:
		current, err := s.load(ctx, q, w.Collection, w.ID)
		if err != nil {
			return "", err
		}
		current.Merge(w.Fields)
		data, err := docstore.EncodeJSON(current)
		if err != nil {
			return "", err
		}
		update := sq.Update(table).
			Set("data", string(data)).
			Set("updated_at", now).
			Where(sq.Eq{"collection": w.Collection, "id": w.ID})
		return w.ID, s.exec(ctx, q, "update", w.Collection, update)

	case docstore.WriteDelete:
		query, args, err := sq.Delete(table).
			Where(sq.Eq{"collection": w.Collection, "id": w.ID}).
			ToSql()
		if err != nil {
			return "", err
		}
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return "", docstore.Wrap("delete", w.Collection, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", docstore.Wrap("delete", w.Collection, err)
		}
		if n == 0 {
			return "", docstore.ErrNotFound
		}
		return w.ID, nil

	default:
		return "", fmt.Errorf("unknown write kind %s", w.Kind)
	}
}

func (s *Store) exec(ctx context.Context, q querier, op, collection string, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return docstore.Wrap(op, collection, err)
	}
	return nil
}

// Reset removes every document. Used by the demo seeder.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM "+table)
	return docstore.Wrap("reset", "", err)
}

func withoutNil(fields docstore.Fields) docstore.Fields {
	out := make(docstore.Fields, len(fields))
	for k, v := range fields {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
