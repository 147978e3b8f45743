package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eternalist/theprintfarm/internal/model"
)

const makerProfileColumns = `mp.user_id, mp.materials, mp.printer_volume, mp.resolution, mp.has_enclosure, mp.status,
	mp.availability, mp.hourly_rate, mp.city, mp.state, mp.country, mp.completed_prints, mp.rating, mp.total_ratings`

func makerProfileDest(p *model.MakerProfile, status *string) []any {
	return []any{
		&p.AccountID,
		&p.Materials,
		&p.PrinterVolume,
		&p.Resolution,
		&p.HasEnclosure,
		status,
		&p.Availability,
		&p.HourlyRate,
		&p.City,
		&p.State,
		&p.Country,
		&p.CompletedPrints,
		&p.Rating,
		&p.TotalRatings,
	}
}

func (q *Queries) GetMakerProfile(ctx context.Context, accountID string) (model.MakerProfile, error) {
	var profile model.MakerProfile
	var status string
	row := q.db.QueryRow(ctx, `SELECT `+makerProfileColumns+` FROM maker_profiles mp WHERE mp.user_id = $1`, accountID)
	if err := row.Scan(makerProfileDest(&profile, &status)...); err != nil {
		return profile, err
	}
	profile.Status = model.MakerStatus(status)
	return profile, nil
}

func (q *Queries) GetCustomerProfile(ctx context.Context, accountID string) (model.CustomerProfile, error) {
	var profile model.CustomerProfile
	row := q.db.QueryRow(ctx, `
		SELECT user_id, preferred_materials, max_budget, city, state, country
		FROM customer_profiles
		WHERE user_id = $1
	`, accountID)
	err := row.Scan(&profile.AccountID, &profile.PreferredMaterials, &profile.MaxBudget, &profile.City, &profile.State, &profile.Country)
	return profile, err
}

// UpsertMakerProfile writes the editable maker fields. Counters and ratings
// are only set on insert.
func (q *Queries) UpsertMakerProfile(ctx context.Context, p model.MakerProfile) error {
	materials := p.Materials
	if materials == nil {
		materials = []string{}
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO maker_profiles (user_id, materials, printer_volume, resolution, has_enclosure, status, availability, hourly_rate, city, state, country, completed_prints, rating, total_ratings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			materials = EXCLUDED.materials,
			printer_volume = EXCLUDED.printer_volume,
			resolution = EXCLUDED.resolution,
			has_enclosure = EXCLUDED.has_enclosure,
			status = EXCLUDED.status,
			availability = EXCLUDED.availability,
			hourly_rate = EXCLUDED.hourly_rate,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			country = EXCLUDED.country
	`, p.AccountID, materials, p.PrinterVolume, p.Resolution, p.HasEnclosure, string(p.Status), p.Availability, p.HourlyRate, p.City, p.State, p.Country, p.CompletedPrints, p.Rating, p.TotalRatings)
	return err
}

func (q *Queries) UpsertCustomerProfile(ctx context.Context, p model.CustomerProfile) error {
	materials := p.PreferredMaterials
	if materials == nil {
		materials = []string{}
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO customer_profiles (user_id, preferred_materials, max_budget, city, state, country)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_materials = EXCLUDED.preferred_materials,
			max_budget = EXCLUDED.max_budget,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			country = EXCLUDED.country
	`, p.AccountID, materials, p.MaxBudget, p.City, p.State, p.Country)
	return err
}

func (q *Queries) DeleteMakerProfile(ctx context.Context, accountID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM maker_profiles WHERE user_id = $1`, accountID)
	return err
}

func (q *Queries) DeleteCustomerProfile(ctx context.Context, accountID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM customer_profiles WHERE user_id = $1`, accountID)
	return err
}

func (q *Queries) IncrementCompletedPrints(ctx context.Context, makerID string) error {
	tag, err := q.db.Exec(ctx, `UPDATE maker_profiles SET completed_prints = completed_prints + 1 WHERE user_id = $1`, makerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type MakerFilter struct {
	Material string
	Status   model.MakerStatus
	City     string
	State    string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

var makerSortColumns = map[string]string{
	"rating":          "mp.rating",
	"completedPrints": "mp.completed_prints",
	"hourlyRate":      "mp.hourly_rate",
	"createdAt":       "u.created_at",
}

// ListMakers returns active maker accounts with their profile attached.
func (q *Queries) ListMakers(ctx context.Context, params MakerFilter) ([]model.Account, int, error) {
	var f filter
	f.addRaw("u.role = 'MAKER'")
	f.addRaw("u.is_active")
	if params.Material != "" {
		f.add("? = ANY(mp.materials)", params.Material)
	}
	if params.Status != "" {
		f.add("mp.status = ?", string(params.Status))
	}
	if params.City != "" {
		f.add("mp.city ILIKE ?", likePattern(params.City))
	}
	if params.State != "" {
		f.add("mp.state ILIKE ?", likePattern(params.State))
	}

	from := ` FROM users u JOIN maker_profiles mp ON mp.user_id = u.id`
	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*)`+from+f.clause(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := makerSortColumns[params.SortBy]
	if !ok {
		sortColumn = "u.created_at"
	}
	query := `SELECT ` + accountColumns + `, ` + makerProfileColumns + from + f.clause() +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, u.id ASC", sortColumn, direction(params.SortDesc)) +
		f.page(params.Limit, params.Offset)

	rows, err := q.db.Query(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var profile model.MakerProfile
		var status string
		account, err := scanAccount(rows, makerProfileDest(&profile, &status)...)
		if err != nil {
			return nil, 0, err
		}
		profile.Status = model.MakerStatus(status)
		account.MakerProfile = &profile
		out = append(out, account)
	}
	return out, total, rows.Err()
}
