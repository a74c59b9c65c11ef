package support

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type contactRepoPG struct{ pool *pgxpool.Pool }

func NewContactRepoPG(pool *pgxpool.Pool) ContactRepository { return &contactRepoPG{pool: pool} }

const contactCols = `id, name, email, subject, body, handled, created_at`

func (r *contactRepoPG) Create(ctx context.Context, m *ContactMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, body)
		VALUES ($1,$2,$3,$4,$5)`,
		m.ID, m.Name, m.Email, m.Subject, m.Body)
	return domainerr.FromPG(err, "contact message")
}

func (r *contactRepoPG) List(ctx context.Context, handled *bool, limit, offset int) ([]*ContactMessage, int, error) {
	where := ""
	args := []interface{}{limit, offset}
	if handled != nil {
		where = " WHERE handled = $3"
		args = append(args, *handled)
	}

	var total int
	countQ := `SELECT COUNT(*) FROM contact_messages`
	if handled != nil {
		countQ += ` WHERE handled = $1`
		if err := r.pool.QueryRow(ctx, countQ, *handled).Scan(&total); err != nil {
			return nil, 0, err
		}
	} else if err := r.pool.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM contact_messages%s ORDER BY created_at DESC LIMIT $1 OFFSET $2`, contactCols, where)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ContactMessage
	for rows.Next() {
		var m ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.Handled, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, rows.Err()
}

func (r *contactRepoPG) MarkHandled(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE contact_messages SET handled = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("contact message")
	}
	return nil
}

type chatRepoPG struct{ pool *pgxpool.Pool }

func NewChatRepoPG(pool *pgxpool.Pool) ChatRepository { return &chatRepoPG{pool: pool} }

const threadCols = `id, patient_id, subject, status, created_at, updated_at`

const messageCols = `id, thread_id, sender_account_id, sender_role, body, sent_at`

func scanThread(row pgx.Row) (*ChatThread, error) {
	var t ChatThread
	err := row.Scan(&t.ID, &t.PatientID, &t.Subject, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *chatRepoPG) CreateThread(ctx context.Context, t *ChatThread) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_threads (id, patient_id, subject, status)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.PatientID, t.Subject, t.Status)
	return domainerr.FromPG(err, "chat thread")
}

func (r *chatRepoPG) GetThread(ctx context.Context, id uuid.UUID) (*ChatThread, error) {
	t, err := scanThread(r.pool.QueryRow(ctx, `SELECT `+threadCols+` FROM chat_threads WHERE id = $1`, id))
	if err != nil {
		return nil, domainerr.FromPG(err, "chat thread")
	}
	return t, nil
}

func (r *chatRepoPG) UpdateThreadStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_threads SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("chat thread")
	}
	return nil
}

func (r *chatRepoPG) ListThreads(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*ChatThread, int, error) {
	where := ""
	args := []interface{}{limit, offset}
	if patientID != nil {
		where = " WHERE patient_id = $3"
		args = append(args, *patientID)
	}

	var total int
	countQ := `SELECT COUNT(*) FROM chat_threads`
	if patientID != nil {
		countQ += ` WHERE patient_id = $1`
		if err := r.pool.QueryRow(ctx, countQ, *patientID).Scan(&total); err != nil {
			return nil, 0, err
		}
	} else if err := r.pool.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM chat_threads%s ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, threadCols, where)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ChatThread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *chatRepoPG) CreateMessage(ctx context.Context, m *ChatMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, thread_id, sender_account_id, sender_role, body)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING sent_at`,
		m.ID, m.ThreadID, m.SenderAccountID, m.SenderRole, m.Body).Scan(&m.SentAt)
	return domainerr.FromPG(err, "chat message")
}

// ListMessages returns messages oldest first so a client can render the
// conversation top to bottom.
func (r *chatRepoPG) ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*ChatMessage, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE thread_id = $1`, threadID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageCols+` FROM chat_messages
		WHERE thread_id = $1 ORDER BY sent_at ASC LIMIT $2 OFFSET $3`,
		threadID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderAccountID, &m.SenderRole, &m.Body, &m.SentAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, rows.Err()
}
