/*
Package postgres provides a PostgreSQL implementation of docstore.Store.

PURPOSE:
  Same single-table document model as store/sqlite, with the fields held
  in a jsonb column. Used when STORE_DRIVER=postgres.

DIFFERENCES FROM SQLITE:
  - seq is a BIGSERIAL, no MAX()+1 allocation
  - Update is one statement: (data || patch) - removed_keys, so a plain
    Update needs no read-merge-write and no process-level lock
  - Query compares jsonb values: data -> field = value::jsonb

CONNECTIONS:
  pgxpool for queries; goose runs migrations through a database/sql
  handle opened on the same pool.

SEE ALSO:
  - store/sqlite/sqlite.go: Embedded variant
  - docstore/storetest: Contract suite both pass
*/
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	sq "github.com/Masterminds/squirrel"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "documents"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	pool  *pgxpool.Pool
	newID func() string
}

// New connects to databaseURL and applies pending migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		pool.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err == nil {
		_, err = provider.Up(ctx)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{pool: pool, newID: uuid.NewString}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	query, args, err := psql.Select("data").
		From(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return docstore.Document{}, err
	}

	var data []byte
	err = s.pool.QueryRow(ctx, query, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, docstore.Wrap("get", collection, err)
	}
	fields, err := docstore.DecodeJSON(data)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.queryDocuments(ctx, collection, sq.Eq{"collection": collection})
}

func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	encoded, err := docstore.EncodeValue(value)
	if err != nil {
		return nil, err
	}
	return s.queryDocuments(ctx, collection, sq.And{
		sq.Eq{"collection": collection},
		sq.Expr("data -> ?::text = ?::jsonb", field, string(encoded)),
	})
}

func (s *Store) queryDocuments(ctx context.Context, collection string, where sq.Sqlizer) ([]docstore.Document, error) {
	query, args, err := psql.Select("id", "data").
		From(table).
		Where(where).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, docstore.Wrap("list", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, docstore.Wrap("list", collection, err)
		}
		fields, err := docstore.DecodeJSON(data)
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
	return s.apply(ctx, s.pool, docstore.AddWrite(collection, fields))
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	_, err := s.apply(ctx, s.pool, docstore.SetWrite(collection, id, fields))
	return err
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	_, err := s.apply(ctx, s.pool, docstore.Write{Kind: docstore.WriteUpdate, Collection: collection, ID: id, Fields: fields})
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.apply(ctx, s.pool, docstore.Write{Kind: docstore.WriteDelete, Collection: collection, ID: id})
	return err
}

func (s *Store) Commit(ctx context.Context, writes []docstore.Write) ([]string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &docstore.BatchWriteError{Writes: len(writes), Index: -1, Err: err}
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(writes))
	for i, w := range writes {
		id, err := s.apply(ctx, tx, w)
		if err != nil {
			return nil, &docstore.BatchWriteError{Writes: len(writes), Index: i, Err: err}
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &docstore.BatchWriteError{Writes: len(writes), Index: -1, Err: err}
	}
	return ids, nil
}

// Reset removes every document.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM "+table)
	return docstore.Wrap("reset", "", err)
}

func (s *Store) apply(ctx context.Context, q querier, w docstore.Write) (string, error) {
	switch w.Kind {
	case docstore.WriteAdd:
		id := s.newID()
		data, err := docstore.EncodeJSON(withoutNil(w.Fields))
		if err != nil {
			return "", err
		}
		insert := psql.Insert(table).
			Columns("collection", "id", "data").
			Values(w.Collection, id, string(data))
		_, err = s.exec(ctx, q, "add", w.Collection, insert)
		return id, err

	case docstore.WriteSet:
		if w.ID == "" {
			return "", fmt.Errorf("set on %s: empty id", w.Collection)
		}
		data, err := docstore.EncodeJSON(withoutNil(w.Fields))
		if err != nil {
			return "", err
		}
		upsert := psql.Insert(table).
			Columns("collection", "id", "data").
			Values(w.Collection, w.ID, string(data)).
			Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()")
		_, err = s.exec(ctx, q, "set", w.Collection, upsert)
		return w.ID, err

	case docstore.WriteUpdate:
		set, removed := split(w.Fields)
		patch, err := docstore.EncodeJSON(set)
		if err != nil {
			return "", err
		}
		update := psql.Update(table).
			Set("data", sq.Expr("(data || ?::jsonb) - ?::text[]", string(patch), removed)).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"collection": w.Collection, "id": w.ID})
		tag, err := s.exec(ctx, q, "update", w.Collection, update)
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 0 {
			return "", docstore.ErrNotFound
		}
		return w.ID, nil

	case docstore.WriteDelete:
		del := psql.Delete(table).Where(sq.Eq{"collection": w.Collection, "id": w.ID})
		tag, err := s.exec(ctx, q, "delete", w.Collection, del)
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 0 {
			return "", docstore.ErrNotFound
		}
		return w.ID, nil

	default:
		return "", fmt.Errorf("unknown write kind %s", w.Kind)
	}
}

func (s *Store) exec(ctx context.Context, q querier, op, collection string, stmt sq.Sqlizer) (pgconn.CommandTag, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return tag, docstore.Wrap(op, collection, err)
	}
	return tag, nil
}

// split separates an update into the keys to set and the keys to remove.
func split(fields docstore.Fields) (docstore.Fields, []string) {
	set := docstore.Fields{}
	removed := []string{}
	for _, k := range fields.Keys() {
		if fields[k] == nil {
			removed = append(removed, k)
		} else {
			set[k] = fields[k]
		}
	}
	return set, removed
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
