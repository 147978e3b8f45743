package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eternalist/theprintfarm/internal/model"
)

const accountColumns = `u.id, u.email, u.name, u.avatar, u.role, u.is_active, u.last_login, u.created_at, u.updated_at`

func scanAccount(row pgx.Row, extra ...any) (model.Account, error) {
	var account model.Account
	var role string
	dest := append([]any{
		&account.ID,
		&account.Email,
		&account.Name,
		&account.Avatar,
		&role,
		&account.IsActive,
		&account.LastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return account, err
	}
	parsed, err := model.ParseRole(role)
	if err != nil {
		return account, err
	}
	account.Role = parsed
	return account, nil
}

func (q *Queries) GetAccount(ctx context.Context, id string) (model.Account, error) {
	row := q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users u WHERE u.id = $1`, id)
	return scanAccount(row)
}

func (q *Queries) GetAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	row := q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email)
	return scanAccount(row)
}

func (q *Queries) CreateAccount(ctx context.Context, account model.Account) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO users (id, email, name, avatar, role, is_active, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, account.ID, account.Email, account.Name, account.Avatar, account.Role.String(), account.IsActive, account.LastLogin, account.CreatedAt, account.UpdatedAt)
	return err
}

func (q *Queries) UpdateAccount(ctx context.Context, account model.Account) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE users
		SET name = $2, avatar = $3, role = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`, account.ID, account.Name, account.Avatar, account.Role.String(), account.IsActive, account.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) GetAccountSummaries(ctx context.Context, ids []string) ([]model.AccountSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx, `SELECT id, name, avatar, role FROM users WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AccountSummary
	for rows.Next() {
		var summary model.AccountSummary
		var role string
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.Avatar, &role); err != nil {
			return nil, err
		}
		if summary.Role, err = model.ParseRole(role); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (q *Queries) CountActiveRequests(ctx context.Context, accountID string) (int, error) {
	var count int
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM print_requests
		WHERE (customer_id = $1 OR maker_id = $1) AND status = ANY($2)
	`, accountID, statusStrings(model.ActiveRequestStatuses)).Scan(&count)
	return count, err
}

func (q *Queries) GetAccountCounts(ctx context.Context, accountID string) (model.AccountCounts, error) {
	var counts model.AccountCounts
	err := q.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM favorites WHERE user_id = $1),
			(SELECT count(*) FROM print_requests WHERE customer_id = $1),
			(SELECT count(*) FROM print_requests WHERE maker_id = $1),
			(SELECT count(*) FROM messages WHERE sender_id = $1),
			(SELECT count(*) FROM messages WHERE receiver_id = $1)
	`, accountID).Scan(&counts.Favorites, &counts.PrintRequests, &counts.AssignedPrints, &counts.MessagesSent, &counts.MessagesReceived)
	return counts, err
}

type AccountFilter struct {
	Search   string
	Role     model.Role
	IsActive *bool
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

var accountSortColumns = map[string]string{
	"createdAt": "u.created_at",
	"name":      "u.name",
	"email":     "u.email",
	"lastLogin": "u.last_login",
	"role":      "u.role",
}

func (q *Queries) ListAccounts(ctx context.Context, params AccountFilter) ([]model.Account, int, error) {
	var f filter
	if params.Search != "" {
		f.add("(u.name ILIKE ? OR u.email ILIKE ?)", likePattern(params.Search))
	}
	if params.Role.Valid() {
		f.add("u.role = ?", params.Role.String())
	}
	if params.IsActive != nil {
		f.add("u.is_active = ?", *params.IsActive)
	}

	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM users u`+f.clause(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := accountSortColumns[params.SortBy]
	if !ok {
		sortColumn = "u.created_at"
	}
	query := `
		SELECT ` + accountColumns + `,
			(SELECT count(*) FROM favorites WHERE user_id = u.id),
			(SELECT count(*) FROM print_requests WHERE customer_id = u.id),
			(SELECT count(*) FROM print_requests WHERE maker_id = u.id),
			(SELECT count(*) FROM messages WHERE sender_id = u.id),
			(SELECT count(*) FROM messages WHERE receiver_id = u.id)
		FROM users u` + f.clause() +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, u.id ASC", sortColumn, direction(params.SortDesc)) +
		f.page(params.Limit, params.Offset)

	rows, err := q.db.Query(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var counts model.AccountCounts
		account, err := scanAccount(rows, &counts.Favorites, &counts.PrintRequests, &counts.AssignedPrints, &counts.MessagesSent, &counts.MessagesReceived)
		if err != nil {
			return nil, 0, err
		}
		account.Counts = &counts
		out = append(out, account)
	}
	return out, total, rows.Err()
}

func (q *Queries) GetUserStats(ctx context.Context, since time.Time) (model.UserStats, error) {
	var stats model.UserStats
	err := q.db.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE role = 'CUSTOMER'),
			count(*) FILTER (WHERE role = 'MAKER'),
			count(*) FILTER (WHERE is_active),
			count(*) FILTER (WHERE created_at >= $1)
		FROM users
	`, since).Scan(&stats.TotalUsers, &stats.TotalCustomers, &stats.TotalMakers, &stats.ActiveUsers, &stats.RecentSignups)
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	return stats, err
}

func statusStrings(statuses []model.RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}
