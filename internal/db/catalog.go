package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eternalist/theprintfarm/internal/model"
)

// modelSelect expects the viewer id as the first argument; an empty viewer
// never matches a favorite.
const modelSelect = `
	SELECT m.id, m.thing_id, m.title, m.description, m.image_url, m.source_url, m.tags, m.license,
		m.author_name, m.published_at, m.complexity, m.like_count, m.download_count, m.print_time,
		m.filament_used, m.created_at,
		(SELECT count(*) FROM favorites fc WHERE fc.model_id = m.id),
		(SELECT count(*) FROM print_requests pc WHERE pc.model_id = m.id),
		EXISTS (SELECT 1 FROM favorites fv WHERE fv.model_id = m.id AND fv.user_id::text = $1)
	FROM models m`

func scanModel(row pgx.Row) (model.ModelListing, error) {
	var listing model.ModelListing
	var complexity *string
	err := row.Scan(
		&listing.ID,
		&listing.ThingID,
		&listing.Title,
		&listing.Description,
		&listing.ImageURL,
		&listing.SourceURL,
		&listing.Tags,
		&listing.License,
		&listing.AuthorName,
		&listing.PublishedAt,
		&complexity,
		&listing.LikeCount,
		&listing.DownloadCount,
		&listing.PrintTime,
		&listing.FilamentUsed,
		&listing.CreatedAt,
		&listing.FavoritesCount,
		&listing.PrintRequestsCount,
		&listing.IsFavorited,
	)
	if complexity != nil {
		value := model.Complexity(*complexity)
		listing.Complexity = &value
	}
	return listing, err
}

type ModelFilter struct {
	ViewerID   string
	Search     string
	Tags       []string
	Complexity model.Complexity
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
}

// SortTrending orders by likes then downloads, both descending.
const SortTrending = "trending"

var modelSortColumns = map[string]string{
	"createdAt":     "m.created_at",
	"title":         "m.title",
	"downloadCount": "m.download_count",
	"likeCount":     "m.like_count",
}

func modelWhere(f *filter, params ModelFilter) {
	if params.Search != "" {
		f.add("(m.title ILIKE ? OR m.description ILIKE ? OR m.author_name ILIKE ?)", likePattern(params.Search))
	}
	if len(params.Tags) > 0 {
		f.add("m.tags && ?", params.Tags)
	}
	if params.Complexity != "" {
		f.add("m.complexity = ?", string(params.Complexity))
	}
}

func (q *Queries) ListModels(ctx context.Context, params ModelFilter) ([]model.ModelListing, int, error) {
	var counted filter
	modelWhere(&counted, params)
	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM models m`+counted.clause(), counted.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var f filter
	f.arg(params.ViewerID)
	modelWhere(&f, params)

	var order string
	if params.SortBy == SortTrending {
		order = " ORDER BY m.like_count DESC, m.download_count DESC, m.id ASC"
	} else {
		sortColumn, ok := modelSortColumns[params.SortBy]
		if !ok {
			sortColumn = "m.created_at"
		}
		order = fmt.Sprintf(" ORDER BY %s %s, m.id ASC", sortColumn, direction(params.SortDesc))
	}

	rows, err := q.db.Query(ctx, modelSelect+f.clause()+order+f.page(params.Limit, params.Offset), f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ModelListing
	for rows.Next() {
		listing, err := scanModel(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, listing)
	}
	return out, total, rows.Err()
}

func (q *Queries) GetModel(ctx context.Context, id, viewerID string) (model.ModelListing, error) {
	return scanModel(q.db.QueryRow(ctx, modelSelect+` WHERE m.id = $2`, viewerID, id))
}

func (q *Queries) ModelExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM models WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (q *Queries) CreateModel(ctx context.Context, m model.ModelListing) error {
	var complexity *string
	if m.Complexity != nil {
		value := string(*m.Complexity)
		complexity = &value
	}
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO models (id, thing_id, title, description, image_url, source_url, tags, license, author_name, published_at, complexity, like_count, download_count, print_time, filament_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (thing_id) DO NOTHING
	`, m.ID, m.ThingID, m.Title, m.Description, m.ImageURL, m.SourceURL, tags, m.License, m.AuthorName, m.PublishedAt, complexity, m.LikeCount, m.DownloadCount, m.PrintTime, m.FilamentUsed, m.CreatedAt)
	return err
}

func (q *Queries) ListFavoriteModels(ctx context.Context, accountID string, limit, offset int) ([]model.ModelListing, int, error) {
	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM favorites WHERE user_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}
	var f filter
	f.arg(accountID)
	query := modelSelect + ` JOIN favorites fav ON fav.model_id = m.id AND fav.user_id::text = $1
		ORDER BY fav.created_at DESC, m.id ASC` + f.page(limit, offset)
	rows, err := q.db.Query(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ModelListing
	for rows.Next() {
		listing, err := scanModel(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, listing)
	}
	return out, total, rows.Err()
}

func (q *Queries) AddFavorite(ctx context.Context, accountID, modelID string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO favorites (user_id, model_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT DO NOTHING
	`, accountID, modelID)
	return err
}

// RemoveFavorite reports whether a favorite existed.
func (q *Queries) RemoveFavorite(ctx context.Context, accountID, modelID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND model_id = $2`, accountID, modelID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) ListTagCounts(ctx context.Context, limit int) ([]model.TagCount, error) {
	rows, err := q.db.Query(ctx, `
		SELECT tag, count(*) AS uses
		FROM models, unnest(tags) AS tag
		GROUP BY tag
		ORDER BY uses DESC, tag ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TagCount
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
