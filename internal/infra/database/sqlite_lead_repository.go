package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT 'inquiry'
		CHECK (category IN ('inquiry', 'complaint', 'quote-request', 'other')),
	category_tag TEXT
		CHECK (category_tag IS NULL OR category = 'other'),
	source       TEXT NOT NULL DEFAULT 'web',
	attribution  TEXT NOT NULL DEFAULT '{}',
	origin_ip    TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_category_created ON leads (category, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_source_created ON leads (source, created_at);
`

const sqliteTimeLayout = time.RFC3339Nano

// SQLiteLeadRepository is the embedded store used for local runs and tests.
type SQLiteLeadRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating when needed) a SQLite database and applies the
// lead schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteLeadRepository, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection serializes writers; uniqueness is still enforced
	// by the schema, not by this setting.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteLeadRepository{db: db}, nil
}

func (r *SQLiteLeadRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteLeadRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteLeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE email = ?`, email)

	var (
		lead                 entity.Lead
		category             string
		tag                  sql.NullString
		attribution          string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&lead.ID,
		&lead.Email,
		&lead.Name,
		&lead.Phone,
		&lead.Message,
		&category,
		&tag,
		&lead.Source,
		&attribution,
		&lead.OriginIP,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by email")
	}

	lead.Category = entity.Category(category)
	if tag.Valid {
		lead.CategoryTag = &tag.String
	}
	if lead.Attribution, err = unmarshalAttribution([]byte(attribution)); err != nil {
		return nil, err
	}
	if lead.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse created_at")
	}
	if lead.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse updated_at")
	}
	return &lead, nil
}

func (r *SQLiteLeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	attribution, err := marshalAttribution(lead.Attribution)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lead.ID,
		lead.Email,
		lead.Name,
		lead.Phone,
		lead.Message,
		string(lead.Category),
		nullableTag(lead.CategoryTag),
		lead.Source,
		string(attribution),
		lead.OriginIP,
		lead.CreatedAt.UTC().Format(sqliteTimeLayout),
		lead.UpdatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		var sqErr *sqlite.Error
		if errors.As(err, &sqErr) && sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return entity.ErrLeadAlreadyExists
		}
		return eris.Wrap(err, "sqlite: insert")
	}
	return nil
}

func (r *SQLiteLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	attribution, err := marshalAttribution(lead.Attribution)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET
			name = ?, phone = ?, message = ?, category = ?, category_tag = ?,
			source = ?, attribution = ?, origin_ip = ?, updated_at = ?
		WHERE id = ?
	`,
		lead.Name,
		lead.Phone,
		lead.Message,
		string(lead.Category),
		nullableTag(lead.CategoryTag),
		lead.Source,
		string(attribution),
		lead.OriginIP,
		lead.UpdatedAt.UTC().Format(sqliteTimeLayout),
		lead.ID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *SQLiteLeadRepository) CountByCategory(ctx context.Context) (map[entity.Category]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM leads GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by category")
	}
	defer rows.Close()

	counts := make(map[entity.Category]int64, len(entity.Categories))
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category count")
		}
		counts[entity.Category(category)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate category counts")
}

func nullableTag(tag *string) sql.NullString {
	if tag == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *tag, Valid: true}
}
