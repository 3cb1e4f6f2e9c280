package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is idempotent. The parent reference has no ON DELETE action so a
// delete that would orphan a reply fails the whole statement.
const Schema = `
CREATE TABLE IF NOT EXISTS comments (
	id             TEXT PRIMARY KEY,
	video_id       TEXT NOT NULL,
	author_id      TEXT NOT NULL,
	content        TEXT NOT NULL CHECK (char_length(content) BETWEEN 1 AND 2000),
	is_anonymous   BOOLEAN NOT NULL DEFAULT FALSE,
	parent_id      TEXT REFERENCES comments (id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	likes_count    INTEGER NOT NULL DEFAULT 0 CHECK (likes_count >= 0),
	dislikes_count INTEGER NOT NULL DEFAULT 0 CHECK (dislikes_count >= 0),
	is_flagged     BOOLEAN NOT NULL DEFAULT FALSE,
	is_pinned      BOOLEAN NOT NULL DEFAULT FALSE,
	is_tombstoned  BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS comments_video_created_idx ON comments (video_id, created_at, id);
CREATE INDEX IF NOT EXISTS comments_parent_idx ON comments (parent_id);
CREATE INDEX IF NOT EXISTS comments_flagged_idx ON comments (created_at DESC) WHERE is_flagged AND NOT is_tombstoned;

CREATE TABLE IF NOT EXISTS comment_reactions (
	comment_id TEXT NOT NULL REFERENCES comments (id) ON DELETE CASCADE,
	viewer_id  TEXT NOT NULL,
	state      TEXT NOT NULL CHECK (state IN ('liked', 'disliked')),
	PRIMARY KEY (comment_id, viewer_id)
);
CREATE INDEX IF NOT EXISTS comment_reactions_viewer_idx ON comment_reactions (viewer_id);

CREATE TABLE IF NOT EXISTS comment_reports (
	comment_id  TEXT NOT NULL REFERENCES comments (id) ON DELETE CASCADE,
	reporter_id TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (comment_id, reporter_id)
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
