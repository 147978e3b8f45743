package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/eternalist/theprintfarm/internal/model"
)

const announcementColumns = `id, title, content, type, priority, is_active, created_at, updated_at`

func scanAnnouncement(row pgx.Row) (model.Announcement, error) {
	var a model.Announcement
	var kind string
	err := row.Scan(&a.ID, &a.Title, &a.Content, &kind, &a.Priority, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	a.Type = model.AnnouncementType(kind)
	return a, err
}

type AnnouncementFilter struct {
	ActiveOnly bool
	// IsActive and Type are admin filters.
	IsActive *bool
	Type     model.AnnouncementType
	Limit    int
	Offset   int
}

// ListAnnouncements orders by priority, highest first, then newest.
func (q *Queries) ListAnnouncements(ctx context.Context, params AnnouncementFilter) ([]model.Announcement, int, error) {
	var f filter
	if params.ActiveOnly {
		f.addRaw("is_active")
	}
	if params.IsActive != nil {
		f.add("is_active = ?", *params.IsActive)
	}
	if params.Type != "" {
		f.add("type = ?", string(params.Type))
	}
	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM announcements`+f.clause(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.db.Query(ctx, `SELECT `+announcementColumns+` FROM announcements`+f.clause()+
		` ORDER BY priority DESC, created_at DESC, id ASC`+f.page(params.Limit, params.Offset), f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (q *Queries) GetAnnouncement(ctx context.Context, id string) (model.Announcement, error) {
	return scanAnnouncement(q.db.QueryRow(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
}

func (q *Queries) CreateAnnouncement(ctx context.Context, a model.Announcement) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO announcements (id, title, content, type, priority, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.Title, a.Content, string(a.Type), a.Priority, a.IsActive, a.CreatedAt, a.UpdatedAt)
	return err
}

func (q *Queries) UpdateAnnouncement(ctx context.Context, a model.Announcement) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE announcements
		SET title = $2, content = $3, type = $4, priority = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`, a.ID, a.Title, a.Content, string(a.Type), a.Priority, a.IsActive, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteAnnouncement(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
