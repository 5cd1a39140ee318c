// Package pgmemory persists conversation history in PostgreSQL through
// pgx/v5. [PgMemory] is scoped to one session; [Store] hands out sessions
// over a shared pool and is what the HTTP server uses when a database URL is
// configured.
package pgmemory
