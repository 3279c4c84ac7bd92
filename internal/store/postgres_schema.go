package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	_, err := pool.Exec(
		ctx,
		`CREATE TABLE IF NOT EXISTS documents (
		   collection TEXT NOT NULL,
		   key        TEXT NOT NULL,
		   body       JSONB NOT NULL,
		   updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		   PRIMARY KEY (collection, key)
		 )`,
	)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func ValidateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	for _, column := range []string{"collection", "key", "body", "updated_at"} {
		ok, err := columnExists(ctx, pool, "documents", column)
		if err != nil {
			return fmt.Errorf("failed checking schema for documents.%s: %w", column, err)
		}
		if !ok {
			return fmt.Errorf("required column documents.%s is missing", column)
		}
	}
	return nil
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
