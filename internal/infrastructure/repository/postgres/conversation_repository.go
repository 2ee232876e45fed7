package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

const (
	threadColumns  = `id, title, message_count, created_at, updated_at`
	messageColumns = `id, thread_id, role, content, sources, web_search_used, created_at`
)

// ConversationRepository stores threads and their append-only messages.
// message_count is a denormalized counter maintained by the chat pipeline and
// repaired by ReconcileMessageCounts.
type ConversationRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db, now: time.Now}
}

func (r *ConversationRepository) CreateThread(ctx context.Context, title string) (*domain.Thread, error) {
	now := r.now().UTC()
	th := &domain.Thread{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO threads (`+threadColumns+`)
VALUES ($1, $2, 0, $3, $3)
`, th.ID, th.Title, now)
	if err != nil {
		return nil, fmt.Errorf("insert thread: %w", err)
	}
	return th, nil
}

func (r *ConversationRepository) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+threadColumns+`
FROM threads
WHERE id = $1
`, id)
	th, err := scanThread(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, threadNotFound("get thread", id)
		}
		return nil, fmt.Errorf("scan thread: %w", err)
	}
	return th, nil
}

func (r *ConversationRepository) UpdateThreadTitle(ctx context.Context, id, title string) (*domain.Thread, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE threads
SET title = $2, updated_at = $3
WHERE id = $1
RETURNING `+threadColumns, id, title, r.now().UTC())
	th, err := scanThread(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, threadNotFound("rename thread", id)
		}
		return nil, fmt.Errorf("update thread title: %w", err)
	}
	return th, nil
}

// DeleteThread removes the thread and its messages in one transaction and
// reports how many messages went with it.
func (r *ConversationRepository) DeleteThread(ctx context.Context, id string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete thread tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete thread messages: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete thread messages rows affected: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM threads WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete thread: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete thread rows affected: %w", err)
	}
	if affected == 0 {
		return 0, threadNotFound("delete thread", id)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete thread tx: %w", err)
	}
	return int(removed), nil
}

// ListThreads returns the most recently active threads first.
func (r *ConversationRepository) ListThreads(ctx context.Context, skip, limit int) ([]domain.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+threadColumns+`
FROM threads
ORDER BY updated_at DESC, id
OFFSET $1
LIMIT $2
`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Thread, 0, limit)
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, *th)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return out, nil
}

func (r *ConversationRepository) CountThreads(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return n, nil
}

// AppendMessage assigns the id and timestamp and fills them into msg.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	sources := msg.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	id := uuid.NewString()
	createdAt := r.now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO messages (`+messageColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, id, msg.ThreadID, string(msg.Role), msg.Content, sourcesJSON, msg.WebSearchUsed, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return threadNotFound("append message", msg.ThreadID)
		}
		return fmt.Errorf("append message: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = createdAt
	msg.Sources = sources
	return nil
}

func (r *ConversationRepository) CountMessages(ctx context.Context, threadID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE thread_id = $1`, threadID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// ListMessages pages through a thread oldest first.
func (r *ConversationRepository) ListMessages(ctx context.Context, threadID string, skip, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE thread_id = $1
ORDER BY seq ASC
OFFSET $2
LIMIT $3
`, threadID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return collectMessages(rows, limit)
}

// ListRecentMessages returns the latest messages newest first.
func (r *ConversationRepository) ListRecentMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE thread_id = $1
ORDER BY seq DESC
LIMIT $2
`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	return collectMessages(rows, limit)
}

func (r *ConversationRepository) SetMessageCount(ctx context.Context, threadID string, count int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE threads
SET message_count = $2, updated_at = $3
WHERE id = $1
`, threadID, count, r.now().UTC())
	if err != nil {
		return fmt.Errorf("set message count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set message count rows affected: %w", err)
	}
	if affected == 0 {
		return threadNotFound("set message count", threadID)
	}
	return nil
}

// ReconcileMessageCounts rewrites every counter that drifted from the actual
// number of stored messages and returns how many threads were fixed.
func (r *ConversationRepository) ReconcileMessageCounts(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE threads t
SET message_count = c.actual
FROM (
	SELECT th.id, COUNT(m.id) AS actual
	FROM threads th
	LEFT JOIN messages m ON m.thread_id = th.id
	GROUP BY th.id
) c
WHERE t.id = c.id AND t.message_count <> c.actual
`)
	if err != nil {
		return 0, fmt.Errorf("reconcile message counts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reconcile rows affected: %w", err)
	}
	return int(affected), nil
}

func scanThread(row rowScanner) (*domain.Thread, error) {
	var th domain.Thread
	if err := row.Scan(&th.ID, &th.Title, &th.MessageCount, &th.CreatedAt, &th.UpdatedAt); err != nil {
		return nil, err
	}
	return &th, nil
}

func collectMessages(rows *sql.Rows, capacity int) ([]domain.Message, error) {
	defer rows.Close()

	out := make([]domain.Message, 0, capacity)
	for rows.Next() {
		var (
			msg        domain.Message
			role       string
			sourcesRaw []byte
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&role,
			&msg.Content,
			&sourcesRaw,
			&msg.WebSearchUsed,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.Sources = []string{}
		if len(sourcesRaw) > 0 {
			if err := json.Unmarshal(sourcesRaw, &msg.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func threadNotFound(op, id string) error {
	return domain.WrapError(domain.ErrThreadNotFound, op, fmt.Errorf("id %s", id))
}
