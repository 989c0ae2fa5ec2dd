package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the document tables. Nodes and edges stay as JSONB payloads;
// only the columns list views and filters touch are first-class.
const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	asset_type  TEXT NOT NULL,
	blob_path   TEXT NOT NULL,
	mime_type   TEXT NOT NULL,
	prompt      TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	workflow_id TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_assets_user_created ON assets (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS workflows (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	user_email    TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	is_public     BOOLEAN NOT NULL DEFAULT FALSE,
	thumbnail_ref TEXT NOT NULL DEFAULT '',
	node_count    INT NOT NULL DEFAULT 0,
	edge_count    INT NOT NULL DEFAULT 0,
	nodes         JSONB NOT NULL DEFAULT '[]',
	edges         JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_workflows_user_created ON workflows (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_workflows_public ON workflows (is_public, created_at DESC);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
