package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/eternalist/theprintfarm/internal/model"
)

const printRequestColumns = `p.id, p.model_id, p.customer_id, p.maker_id, p.quantity, p.material, p.color, p.notes,
	p.urgency, p.status, p.quoted_price, p.final_price, p.accepted_at, p.started_at, p.completed_at,
	p.delivered_at, p.created_at, p.updated_at`

const printRequestSelect = `
	SELECT ` + printRequestColumns + `,
		m.title, m.image_url, m.source_url,
		c.name, c.avatar, c.role,
		k.name, k.avatar, k.role
	FROM print_requests p
	JOIN models m ON m.id = p.model_id
	JOIN users c ON c.id = p.customer_id
	JOIN users k ON k.id = p.maker_id`

func printRequestDest(pr *model.PrintRequest, urgency, status *string) []any {
	return []any{
		&pr.ID,
		&pr.ModelID,
		&pr.CustomerID,
		&pr.MakerID,
		&pr.Quantity,
		&pr.Material,
		&pr.Color,
		&pr.Notes,
		urgency,
		status,
		&pr.QuotedPrice,
		&pr.FinalPrice,
		&pr.AcceptedAt,
		&pr.StartedAt,
		&pr.CompletedAt,
		&pr.DeliveredAt,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	}
}

func scanPrintRequest(row pgx.Row) (model.PrintRequest, error) {
	var pr model.PrintRequest
	var urgency, status string
	err := row.Scan(printRequestDest(&pr, &urgency, &status)...)
	pr.Urgency = model.Urgency(urgency)
	pr.Status = model.RequestStatus(status)
	return pr, err
}

func scanPrintRequestDetail(row pgx.Row) (model.PrintRequest, error) {
	var pr model.PrintRequest
	var urgency, status, customerRole, makerRole string
	modelSummary := &model.ModelSummary{}
	customer := &model.AccountSummary{}
	maker := &model.AccountSummary{}
	dest := append(printRequestDest(&pr, &urgency, &status),
		&modelSummary.Title, &modelSummary.ImageURL, &modelSummary.SourceURL,
		&customer.Name, &customer.Avatar, &customerRole,
		&maker.Name, &maker.Avatar, &makerRole,
	)
	if err := row.Scan(dest...); err != nil {
		return pr, err
	}
	pr.Urgency = model.Urgency(urgency)
	pr.Status = model.RequestStatus(status)
	modelSummary.ID = pr.ModelID
	customer.ID = pr.CustomerID
	maker.ID = pr.MakerID
	var err error
	if customer.Role, err = model.ParseRole(customerRole); err != nil {
		return pr, err
	}
	if maker.Role, err = model.ParseRole(makerRole); err != nil {
		return pr, err
	}
	pr.Model = modelSummary
	pr.Customer = customer
	pr.Maker = maker
	return pr, nil
}

func (q *Queries) CreatePrintRequest(ctx context.Context, pr model.PrintRequest) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO print_requests (id, model_id, customer_id, maker_id, quantity, material, color, notes, urgency, status, quoted_price, final_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, pr.ID, pr.ModelID, pr.CustomerID, pr.MakerID, pr.Quantity, pr.Material, pr.Color, pr.Notes, string(pr.Urgency), string(pr.Status), pr.QuotedPrice, pr.FinalPrice, pr.CreatedAt, pr.UpdatedAt)
	return err
}

// GetPrintRequest loads a request with its model and party summaries.
func (q *Queries) GetPrintRequest(ctx context.Context, id string) (model.PrintRequest, error) {
	return scanPrintRequestDetail(q.db.QueryRow(ctx, printRequestSelect+` WHERE p.id = $1`, id))
}

// LockPrintRequest must run inside a transaction; the row stays locked until
// commit or rollback.
func (q *Queries) LockPrintRequest(ctx context.Context, id string) (model.PrintRequest, error) {
	return scanPrintRequest(q.db.QueryRow(ctx, `SELECT `+printRequestColumns+` FROM print_requests p WHERE p.id = $1 FOR UPDATE`, id))
}

// UpdatePrintRequestStatus writes the status, prices and lifecycle stamps
// only if the stored status still equals from. It returns the number of rows
// written.
func (q *Queries) UpdatePrintRequestStatus(ctx context.Context, pr model.PrintRequest, from model.RequestStatus) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE print_requests
		SET status = $3,
			quoted_price = $4,
			final_price = $5,
			accepted_at = $6,
			started_at = $7,
			completed_at = $8,
			delivered_at = $9,
			updated_at = $10
		WHERE id = $1 AND status = $2
	`, pr.ID, string(from), string(pr.Status), pr.QuotedPrice, pr.FinalPrice, pr.AcceptedAt, pr.StartedAt, pr.CompletedAt, pr.DeliveredAt, pr.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeletePrintRequest(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM print_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type RequestOrder int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest RequestOrder = iota
	// OrderQueue sorts by urgency High, Normal, Low, then oldest first.
	OrderQueue
	// OrderRecentlyCompleted sorts by completion time, newest first.
	OrderRecentlyCompleted
)

type PrintRequestFilter struct {
	CustomerID string
	MakerID    string
	ModelID    string
	Statuses   []model.RequestStatus
	Urgency    model.Urgency
	Order      RequestOrder
	Limit      int
	Offset     int
}

func printRequestWhere(f *filter, params PrintRequestFilter) {
	if params.CustomerID != "" {
		f.add("p.customer_id = ?", params.CustomerID)
	}
	if params.MakerID != "" {
		f.add("p.maker_id = ?", params.MakerID)
	}
	if params.ModelID != "" {
		f.add("p.model_id = ?", params.ModelID)
	}
	if len(params.Statuses) > 0 {
		f.add("p.status = ANY(?)", statusStrings(params.Statuses))
	}
	if params.Urgency != "" {
		f.add("p.urgency = ?", string(params.Urgency))
	}
}

func (q *Queries) ListPrintRequests(ctx context.Context, params PrintRequestFilter) ([]model.PrintRequest, int, error) {
	var f filter
	printRequestWhere(&f, params)

	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM print_requests p`+f.clause(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var order string
	switch params.Order {
	case OrderQueue:
		order = ` ORDER BY CASE p.urgency WHEN 'High' THEN 0 WHEN 'Normal' THEN 1 ELSE 2 END, p.created_at ASC, p.id ASC`
	case OrderRecentlyCompleted:
		order = ` ORDER BY p.completed_at DESC NULLS LAST, p.id ASC`
	default:
		order = ` ORDER BY p.created_at DESC, p.id ASC`
	}

	rows, err := q.db.Query(ctx, printRequestSelect+f.clause()+order+f.page(params.Limit, params.Offset), f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.PrintRequest
	for rows.Next() {
		pr, err := scanPrintRequestDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pr)
	}
	return out, total, rows.Err()
}

func (q *Queries) CountPrintRequestsByStatus(ctx context.Context, params PrintRequestFilter) (map[model.RequestStatus]int, error) {
	var f filter
	printRequestWhere(&f, params)
	rows, err := q.db.Query(ctx, `SELECT p.status, count(*) FROM print_requests p`+f.clause()+` GROUP BY p.status`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.RequestStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[model.RequestStatus(status)] = count
	}
	return out, rows.Err()
}
