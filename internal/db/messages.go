package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/eternalist/theprintfarm/internal/model"
)

const messageColumns = `msg.id, msg.sender_id, msg.receiver_id, msg.content, msg.model_url, msg.is_read, msg.created_at`

func messageDest(m *model.Message) []any {
	return []any{&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ModelURL, &m.IsRead, &m.CreatedAt}
}

func scanMessage(row pgx.Row) (model.Message, error) {
	var m model.Message
	err := row.Scan(messageDest(&m)...)
	return m, err
}

func (q *Queries) CreateMessage(ctx context.Context, m model.Message) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, model_url, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.ModelURL, m.IsRead, m.CreatedAt)
	return err
}

func (q *Queries) GetMessage(ctx context.Context, id string) (model.Message, error) {
	return scanMessage(q.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages msg WHERE msg.id = $1`, id))
}

func (q *Queries) DeleteMessage(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListConversationHeads groups every message the account sent or received
// by counterpart.
func (q *Queries) ListConversationHeads(ctx context.Context, accountID string) ([]model.ConversationHead, error) {
	rows, err := q.db.Query(ctx, `
		SELECT partner_id, max(created_at), count(*) FILTER (WHERE receiver_id = $1 AND NOT is_read)
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS partner_id,
				receiver_id, is_read, created_at
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
		) pairs
		GROUP BY partner_id
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ConversationHead
	for rows.Next() {
		var head model.ConversationHead
		if err := rows.Scan(&head.PartnerID, &head.LastMessageAt, &head.UnreadCount); err != nil {
			return nil, err
		}
		out = append(out, head)
	}
	return out, rows.Err()
}

func (q *Queries) GetLatestMessageBetween(ctx context.Context, a, b string) (model.Message, error) {
	return scanMessage(q.db.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages msg
		WHERE (msg.sender_id = $1 AND msg.receiver_id = $2) OR (msg.sender_id = $2 AND msg.receiver_id = $1)
		ORDER BY msg.created_at DESC, msg.id DESC
		LIMIT 1
	`, a, b))
}

// ListThread returns the pair's messages newest first.
func (q *Queries) ListThread(ctx context.Context, a, b string, limit, offset int) ([]model.Message, int, error) {
	const pair = ` WHERE (msg.sender_id = $1 AND msg.receiver_id = $2) OR (msg.sender_id = $2 AND msg.receiver_id = $1)`
	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM messages msg`+pair, a, b).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.db.Query(ctx, `SELECT `+messageColumns+` FROM messages msg`+pair+
		` ORDER BY msg.created_at DESC, msg.id DESC LIMIT $3 OFFSET $4`, a, b, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// MarkThreadRead marks every unread message from sender to receiver.
func (q *Queries) MarkThreadRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read
	`, receiverID, senderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) MarkMessageRead(ctx context.Context, id, receiverID string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE messages SET is_read = TRUE WHERE id = $1 AND receiver_id = $2`, id, receiverID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) CountUnread(ctx context.Context, accountID string) (int, error) {
	var count int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM messages WHERE receiver_id = $1 AND NOT is_read`, accountID).Scan(&count)
	return count, err
}

type MessageFilter struct {
	// AccountID scopes to messages the account sent or received.
	AccountID  string
	UnreadOnly bool
	// UserID and Search are admin filters.
	UserID string
	Search string
	Limit  int
	Offset int
}

func (q *Queries) ListMessages(ctx context.Context, params MessageFilter) ([]model.Message, int, error) {
	var f filter
	if params.AccountID != "" {
		if params.UnreadOnly {
			f.add("msg.receiver_id = ? AND NOT msg.is_read", params.AccountID)
		} else {
			f.add("(msg.sender_id = ? OR msg.receiver_id = ?)", params.AccountID)
		}
	}
	if params.UserID != "" {
		f.add("(msg.sender_id = ? OR msg.receiver_id = ?)", params.UserID)
	}
	if params.Search != "" {
		f.add("msg.content ILIKE ?", likePattern(params.Search))
	}

	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM messages msg`+f.clause(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `, s.name, s.avatar, s.role, r.name, r.avatar, r.role
		FROM messages msg
		JOIN users s ON s.id = msg.sender_id
		JOIN users r ON r.id = msg.receiver_id` + f.clause() +
		` ORDER BY msg.created_at DESC, msg.id DESC` + f.page(params.Limit, params.Offset)
	rows, err := q.db.Query(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		sender := &model.AccountSummary{}
		receiver := &model.AccountSummary{}
		var senderRole, receiverRole string
		dest := append(messageDest(&m), &sender.Name, &sender.Avatar, &senderRole, &receiver.Name, &receiver.Avatar, &receiverRole)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		sender.ID = m.SenderID
		receiver.ID = m.ReceiverID
		if sender.Role, err = model.ParseRole(senderRole); err != nil {
			return nil, 0, err
		}
		if receiver.Role, err = model.ParseRole(receiverRole); err != nil {
			return nil, 0, err
		}
		m.Sender = sender
		m.Receiver = receiver
		out = append(out, m)
	}
	return out, total, rows.Err()
}
