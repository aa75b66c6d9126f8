package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const uniqueViolation = "23505"

const leadColumns = `id, email, name, phone, message, category, category_tag, source, attribution, origin_ip, created_at, updated_at`

// LeadRepository stores leads in Postgres. The UNIQUE(email) constraint is
// what turns a concurrent double insert into entity.ErrLeadAlreadyExists.
type LeadRepository struct {
	pool Pool
}

func NewLeadRepository(pool Pool) *LeadRepository {
	return &LeadRepository{pool: pool}
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE email = $1`, email)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "leads: find by email")
	}
	return lead, nil
}

func (r *LeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	attribution, err := marshalAttribution(lead.Attribution)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		lead.ID,
		lead.Email,
		lead.Name,
		lead.Phone,
		lead.Message,
		string(lead.Category),
		lead.CategoryTag,
		lead.Source,
		attribution,
		lead.OriginIP,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entity.ErrLeadAlreadyExists
		}
		return eris.Wrap(err, "leads: insert")
	}
	return nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	attribution, err := marshalAttribution(lead.Attribution)
	if err != nil {
		return err
	}

	query := `
		UPDATE leads SET
			name = $2,
			phone = $3,
			message = $4,
			category = $5,
			category_tag = $6,
			source = $7,
			attribution = $8,
			origin_ip = $9,
			updated_at = $10
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		lead.ID,
		lead.Name,
		lead.Phone,
		lead.Message,
		string(lead.Category),
		lead.CategoryTag,
		lead.Source,
		attribution,
		lead.OriginIP,
		lead.UpdatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "leads: update")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) CountByCategory(ctx context.Context) (map[entity.Category]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, COUNT(*) FROM leads GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "leads: count by category")
	}
	defer rows.Close()

	counts := make(map[entity.Category]int64, len(entity.Categories))
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, eris.Wrap(err, "leads: scan category count")
		}
		counts[entity.Category(category)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "leads: iterate category counts")
	}
	return counts, nil
}

func (r *LeadRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var (
		lead        entity.Lead
		category    string
		attribution []byte
	)
	err := row.Scan(
		&lead.ID,
		&lead.Email,
		&lead.Name,
		&lead.Phone,
		&lead.Message,
		&category,
		&lead.CategoryTag,
		&lead.Source,
		&attribution,
		&lead.OriginIP,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.Category = entity.Category(category)
	if lead.Attribution, err = unmarshalAttribution(attribution); err != nil {
		return nil, err
	}
	return &lead, nil
}

func marshalAttribution(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "leads: marshal attribution")
	}
	return b, nil
}

func unmarshalAttribution(b []byte) (map[string]string, error) {
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, eris.Wrap(err, "leads: decode attribution")
	}
	return m, nil
}
