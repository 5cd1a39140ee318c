package pgmemory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    seq        BIGSERIAL NOT NULL,
    session_id TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL DEFAULT '',
    refusal    TEXT NOT NULL DEFAULT '',
    reasoning  TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createSessionSeqIndexSQL = `CREATE INDEX IF NOT EXISTS %s ON %s (session_id, seq)`

// EnsureSchema creates the messages table and its (session_id, seq) index if
// missing. Intended for development; use migrations in production.
func (m *PgMemory) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, fmt.Sprintf(createTableSQL, m.tableName)); err != nil {
		return fmt.Errorf("pgmemory: create table: %w", err)
	}

	index := indexName(m.tableName)
	if _, err := m.db.Exec(ctx, fmt.Sprintf(createSessionSeqIndexSQL, index, m.tableName)); err != nil {
		return fmt.Errorf("pgmemory: create session index: %w", err)
	}
	return nil
}

// indexName derives idx_<table>_session_seq from a possibly quoted table name.
func indexName(tableName string) string {
	return pgx.Identifier{"idx_" + strings.ReplaceAll(tableName, `"`, "") + "_session_seq"}.Sanitize()
}
