package database

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id           UUID PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT 'inquiry'
		CHECK (category IN ('inquiry', 'complaint', 'quote-request', 'other')),
	category_tag TEXT
		CHECK (category_tag IS NULL OR (category = 'other' AND char_length(category_tag) <= 50)),
	source       TEXT NOT NULL DEFAULT 'web',
	attribution  JSONB NOT NULL DEFAULT '{}'::jsonb,
	origin_ip    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_category_created ON leads (category, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_source_created ON leads (source, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_tag_created ON leads (category_tag, created_at DESC);
`

// MigratePostgres applies the lead schema through database/sql and lib/pq.
// It is idempotent.
func MigratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return eris.Wrap(err, "migrate: open")
	}
	defer db.Close()

	return migrate(ctx, db, postgresSchema)
}

func migrate(ctx context.Context, db *sql.DB, schema string) error {
	if err := db.PingContext(ctx); err != nil {
		return eris.Wrap(err, "migrate: ping")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return eris.Wrap(err, "migrate: apply schema")
	}
	return nil
}
