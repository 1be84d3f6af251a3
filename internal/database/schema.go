package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id         UUID PRIMARY KEY,
		author_id  UUID NOT NULL,
		topic_id   UUID,
		title      VARCHAR(200) NOT NULL,
		content    TEXT NOT NULL,
		likes      INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts (author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_topic_id ON posts (topic_id)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id           UUID PRIMARY KEY,
		title        VARCHAR(200) NOT NULL,
		description  TEXT,
		author       VARCHAR(100) NOT NULL,
		view_count   INTEGER NOT NULL DEFAULT 0,
		reply_count  INTEGER NOT NULL DEFAULT 0 CHECK (reply_count >= 0),
		pinned       BOOLEAN NOT NULL DEFAULT FALSE,
		closed       BOOLEAN NOT NULL DEFAULT FALSE,
		tags         JSONB NOT NULL DEFAULT '[]'::jsonb,
		deleted      BOOLEAN NOT NULL DEFAULT FALSE,
		last_post_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the forum tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db Service) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
