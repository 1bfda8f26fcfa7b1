package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Postgres driver registration.
	_ "github.com/lib/pq"
)

// DB wraps the sql connection pool used by all repositories.
type DB struct {
	*sql.DB
}

// New opens a Postgres connection pool and verifies connectivity.
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// schema is applied idempotently at startup. Artifact tables are append-only;
// there are no update paths and no delete paths.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	provider_id TEXT UNIQUE,
	name TEXT,
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS photos (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	content_key TEXT NOT NULL,
	title TEXT,
	note TEXT,
	anchor_x DOUBLE PRECISION,
	anchor_y DOUBLE PRECISION,
	labels TEXT[] NOT NULL DEFAULT '{}',
	location_lat DOUBLE PRECISION,
	location_lon DOUBLE PRECISION,
	created_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS photos_user_created_idx ON photos (user_id, created_at);

CREATE TABLE IF NOT EXISTS notes (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS notes_user_created_idx ON notes (user_id, created_at);

CREATE TABLE IF NOT EXISTS summaries (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	summary_text TEXT NOT NULL,
	created_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS summaries_user_created_idx ON summaries (user_id, created_at);

CREATE TABLE IF NOT EXISTS oidc_config (
	id UUID PRIMARY KEY,
	provider TEXT NOT NULL UNIQUE,
	issuer TEXT NOT NULL,
	domain TEXT,
	client_id TEXT NOT NULL,
	client_secret TEXT,
	redirect_uri TEXT,
	jwks_url TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS photo_blobs (
	key TEXT PRIMARY KEY,
	content BYTEA NOT NULL,
	content_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables the service needs if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
