package pgmemory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/memory"
	"github.com/leofalp/sagent/providers/observability"
)

const defaultTableName = "sagent_messages"

const messageColumns = "role, content, refusal, reasoning"

// Querier is the subset of pgx used here. *pgxpool.Pool, *pgx.Conn and
// pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgMemory is a memory.Provider persisting one session's messages to
// PostgreSQL. Ordering comes from a BIGSERIAL column, not timestamps.
type PgMemory struct {
	db        Querier
	sessionID string
	tableName string
}

var _ memory.Provider = (*PgMemory)(nil)

type Option func(*PgMemory)

// WithTableName overrides the default table ("sagent_messages"). The name is
// quoted with pgx.Identifier before being interpolated into queries.
func WithTableName(name string) Option {
	return func(m *PgMemory) {
		m.tableName = pgx.Identifier{name}.Sanitize()
	}
}

func New(db Querier, sessionID string, opts ...Option) *PgMemory {
	m := &PgMemory{
		db:        db,
		sessionID: sessionID,
		tableName: defaultTableName,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open connects a pgx pool to dsn and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgmemory: ping: %w", err)
	}
	return pool, nil
}

func (m *PgMemory) AppendMessage(ctx context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (session_id, %s) VALUES ($1, $2, $3, $4, $5)`, m.tableName, messageColumns)
	_, err := m.db.Exec(ctx, query, m.sessionID, string(message.Role), message.Content, message.Refusal, message.Reasoning)
	if err != nil {
		return fmt.Errorf("pgmemory: append message: %w", err)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len(message.Content)),
		)
	}
	return nil
}

func (m *PgMemory) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE session_id = $1`, m.tableName)

	var count int
	if err := m.db.QueryRow(ctx, query, m.sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgmemory: count: %w", err)
	}
	return count, nil
}

// AllMessages returns the session history oldest first.
func (m *PgMemory) AllMessages(ctx context.Context) ([]ai.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE session_id = $1 ORDER BY seq ASC`, messageColumns, m.tableName)
	return m.query(ctx, "all messages", query, m.sessionID)
}

// LastMessages returns the newest n messages, oldest first.
func (m *PgMemory) LastMessages(ctx context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}

	query := fmt.Sprintf(`SELECT %[1]s FROM (
			SELECT seq, %[1]s FROM %[2]s WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
		) sub ORDER BY sub.seq ASC`, messageColumns, m.tableName)
	return m.query(ctx, "last messages", query, m.sessionID, n)
}

// PopLastMessage deletes and returns the newest message in one statement.
// It returns (nil, nil) for an empty session.
func (m *PgMemory) PopLastMessage(ctx context.Context) (*ai.Message, error) {
	query := fmt.Sprintf(`DELETE FROM %[1]s
		WHERE id = (SELECT id FROM %[1]s WHERE session_id = $1 ORDER BY seq DESC LIMIT 1)
		RETURNING %[2]s`, m.tableName, messageColumns)

	var msg ai.Message
	var role string
	err := m.db.QueryRow(ctx, query, m.sessionID).Scan(&role, &msg.Content, &msg.Refusal, &msg.Reasoning)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgmemory: pop: %w", err)
	}
	msg.Role = ai.MessageRole(role)
	return &msg, nil
}

func (m *PgMemory) ClearMessages(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, m.tableName)
	if _, err := m.db.Exec(ctx, query, m.sessionID); err != nil {
		return fmt.Errorf("pgmemory: clear messages: %w", err)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}
	return nil
}

func (m *PgMemory) FilterByRole(ctx context.Context, role ai.MessageRole) ([]ai.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE session_id = $1 AND role = $2 ORDER BY seq ASC`, messageColumns, m.tableName)
	return m.query(ctx, "filter by role", query, m.sessionID, string(role))
}

func (m *PgMemory) query(ctx context.Context, op, query string, args ...any) ([]ai.Message, error) {
	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: %s: %w", op, err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ai.Message, error) {
		var msg ai.Message
		var role string
		if err := row.Scan(&role, &msg.Content, &msg.Refusal, &msg.Reasoning); err != nil {
			return msg, err
		}
		msg.Role = ai.MessageRole(role)
		return msg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgmemory: %s: %w", op, err)
	}
	if messages == nil {
		return []ai.Message{}, nil
	}
	return messages, nil
}

// Store is a memory.Store handing out a PgMemory per session over a shared
// connection pool.
type Store struct {
	db   Querier
	opts []Option
}

var _ memory.Store = (*Store)(nil)

func NewStore(db Querier, opts ...Option) *Store {
	return &Store{db: db, opts: opts}
}

func (s *Store) Session(sessionID string) memory.Provider {
	return New(s.db, sessionID, s.opts...)
}

// EnsureSchema creates the table and index for the store's table name.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return New(s.db, "", s.opts...).EnsureSchema(ctx)
}
