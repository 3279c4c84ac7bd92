package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"healthmate/backend/internal/logger"
)

type dbQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PostgresStore keeps every document as one jsonb row keyed by
// (collection, key). Entry lists are jsonb arrays trimmed in the same
// statement that appends to them.
type PostgresStore struct {
	db   dbQuerier
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresStore{db: pool, pool: pool, log: log.With("component", "PostgresStore")}
}

func (s *PostgresStore) Get(ctx context.Context, collection, key string, dst any) (bool, error) {
	var body []byte
	err := s.db.QueryRow(
		ctx,
		`SELECT body FROM documents WHERE collection = $1 AND key = $2`,
		collection,
		key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, persistenceErr("read", collection, key, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.log.Error("corrupted document treated as empty", "collection", collection, "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection, key string, value any) error {
	encoded, err := encodeDocument(value)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}
	_, err = s.db.Exec(
		ctx,
		`INSERT INTO documents (collection, key, body, updated_at)
		 VALUES ($1, $2, $3::jsonb, NOW())
		 ON CONFLICT (collection, key) DO UPDATE
		 SET body = EXCLUDED.body, updated_at = NOW()`,
		collection,
		key,
		string(encoded),
	)
	return persistenceErr("write", collection, key, err)
}

func (s *PostgresStore) All(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.db.Query(
		ctx,
		`SELECT key, body FROM documents WHERE collection = $1 ORDER BY key`,
		collection,
	)
	if err != nil {
		return nil, persistenceErr("read", collection, "", err)
	}
	defer rows.Close()

	docs := map[string]json.RawMessage{}
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, persistenceErr("read", collection, "", err)
		}
		docs[key] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("read", collection, "", err)
	}
	return docs, nil
}

func (s *PostgresStore) Append(ctx context.Context, collection, key string, entry any, limit int) error {
	encoded, err := encodeDocument(entry)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}
	if limit <= 0 {
		limit = -1
	}
	_, err = s.db.Exec(
		ctx,
		`INSERT INTO documents (collection, key, body, updated_at)
		 VALUES ($1, $2, jsonb_build_array($3::jsonb), NOW())
		 ON CONFLICT (collection, key) DO UPDATE
		 SET body = (
		   SELECT COALESCE(jsonb_agg(recent.elem ORDER BY recent.idx), '[]'::jsonb)
		   FROM (
		     SELECT t.elem, t.idx
		     FROM jsonb_array_elements(
		       CASE WHEN jsonb_typeof(documents.body) = 'array' THEN documents.body ELSE '[]'::jsonb END
		       || jsonb_build_array($3::jsonb)
		     ) WITH ORDINALITY AS t(elem, idx)
		     ORDER BY t.idx DESC
		     LIMIT CASE WHEN $4::int < 0 THEN NULL ELSE $4::int END
		   ) recent
		 ),
		 updated_at = NOW()`,
		collection,
		key,
		string(encoded),
		limit,
	)
	return persistenceErr("append", collection, key, err)
}

func (s *PostgresStore) Entries(ctx context.Context, collection, key string) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	found, err := s.Get(ctx, collection, key, &entries)
	if err != nil || !found {
		return nil, err
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
