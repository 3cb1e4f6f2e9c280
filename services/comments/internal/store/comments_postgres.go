package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/devtube/services/comments/internal/domain"
)

// PostgresCommentStore persists comments in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentColumns = `id, video_id, author_id, content, is_anonymous, parent_id, created_at,
	likes_count, dislikes_count, is_flagged, is_pinned, is_tombstoned`

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.VideoID, &c.AuthorID, &c.Content, &c.IsAnonymous, &c.ParentID,
		&c.CreatedAt, &c.LikesCount, &c.DislikesCount, &c.IsFlagged, &c.IsPinned, &c.IsTombstoned)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, err
}

func (s *PostgresCommentStore) Insert(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Comment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.ParentID != nil {
		// FOR SHARE blocks a concurrent tombstone of the parent until commit.
		var parentVideo string
		var parentTombstoned bool
		err := tx.QueryRow(ctx,
			`SELECT video_id, is_tombstoned FROM comments WHERE id = $1 FOR SHARE`,
			*c.ParentID).Scan(&parentVideo, &parentTombstoned)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Comment{}, domain.ErrInvalidParent
		case err != nil:
			return domain.Comment{}, err
		case parentVideo != c.VideoID:
			return domain.Comment{}, domain.ErrInvalidParent
		case parentTombstoned:
			return domain.Comment{}, domain.ErrParentDeleted
		}
	}

	const q = `INSERT INTO comments (id, video_id, author_id, content, is_anonymous, parent_id, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING ` + commentColumns
	out, err := scanComment(tx.QueryRow(ctx, q,
		c.ID, c.VideoID, c.AuthorID, c.Content, c.IsAnonymous, c.ParentID, c.CreatedAt))
	if err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Comment{}, err
	}
	return out, nil
}

func (s *PostgresCommentStore) Get(ctx context.Context, commentID string) (domain.Comment, error) {
	return scanComment(s.pool.QueryRow(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID))
}

func (s *PostgresCommentStore) ListByVideo(ctx context.Context, videoID string, includeTombstoned bool) ([]domain.Comment, error) {
	q := `SELECT ` + commentColumns + `
	      FROM comments
	      WHERE video_id = $1 AND ($2 OR NOT is_tombstoned)
	      ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, q, videoID, includeTombstoned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCommentStore) MarkTombstoned(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE comments SET is_tombstoned = TRUE WHERE id = ANY($1)`, commentIDs)
	return err
}

func (s *PostgresCommentStore) ClearTombstoned(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE comments SET is_tombstoned = FALSE WHERE id = ANY($1)`, commentIDs)
	return err
}

func (s *PostgresCommentStore) DeleteMany(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Reactions and reports go with their comment via ON DELETE CASCADE.
	// The parent FK is checked at statement end, so the whole subtree can
	// be removed in one statement while a missed reply aborts it.
	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = ANY($1)`, commentIDs); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresCommentStore) GetReaction(ctx context.Context, commentID, viewerID string) (domain.ReactionState, error) {
	var state string
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM comment_reactions WHERE comment_id = $1 AND viewer_id = $2`,
		commentID, viewerID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReactionNone, nil
	}
	if err != nil {
		return domain.ReactionNone, err
	}
	return domain.ReactionState(state), nil
}

func (s *PostgresCommentStore) SwapReaction(ctx context.Context, commentID, viewerID string, expected, next domain.ReactionState) (domain.ReactionCounts, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ReactionCounts{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the comment row; all reaction changes of a comment serialize here.
	var tombstoned bool
	err = tx.QueryRow(ctx,
		`SELECT is_tombstoned FROM comments WHERE id = $1 FOR UPDATE`, commentID).Scan(&tombstoned)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && tombstoned) {
		return domain.ReactionCounts{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ReactionCounts{}, err
	}

	current := domain.ReactionNone
	var stored string
	err = tx.QueryRow(ctx,
		`SELECT state FROM comment_reactions WHERE comment_id = $1 AND viewer_id = $2`,
		commentID, viewerID).Scan(&stored)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return domain.ReactionCounts{}, err
	default:
		current = domain.ReactionState(stored)
	}
	if current != expected {
		return domain.ReactionCounts{}, domain.ErrReactionConflict
	}

	switch {
	case next == domain.ReactionNone:
		_, err = tx.Exec(ctx,
			`DELETE FROM comment_reactions WHERE comment_id = $1 AND viewer_id = $2`, commentID, viewerID)
	case current == domain.ReactionNone:
		_, err = tx.Exec(ctx,
			`INSERT INTO comment_reactions (comment_id, viewer_id, state) VALUES ($1, $2, $3)`,
			commentID, viewerID, string(next))
	default:
		_, err = tx.Exec(ctx,
			`UPDATE comment_reactions SET state = $3 WHERE comment_id = $1 AND viewer_id = $2`,
			commentID, viewerID, string(next))
	}
	if err != nil {
		return domain.ReactionCounts{}, err
	}

	dl, dd := domain.CounterDelta(current, next)
	out := domain.ReactionCounts{ViewerState: next}
	err = tx.QueryRow(ctx,
		`UPDATE comments SET likes_count = likes_count + $2, dislikes_count = dislikes_count + $3
		 WHERE id = $1 RETURNING likes_count, dislikes_count`,
		commentID, dl, dd).Scan(&out.Likes, &out.Dislikes)
	if err != nil {
		return domain.ReactionCounts{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ReactionCounts{}, err
	}
	return out, nil
}

func (s *PostgresCommentStore) ReactionsByViewer(ctx context.Context, videoID, viewerID string) (map[string]domain.ReactionState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.comment_id, r.state
		 FROM comment_reactions r JOIN comments c ON c.id = r.comment_id
		 WHERE c.video_id = $1 AND r.viewer_id = $2`, videoID, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.ReactionState)
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, err
		}
		out[id] = domain.ReactionState(state)
	}
	return out, rows.Err()
}

func (s *PostgresCommentStore) SetFlagged(ctx context.Context, commentID string, flagged bool) error {
	return s.setBool(ctx, `UPDATE comments SET is_flagged = $2 WHERE id = $1 AND NOT is_tombstoned`, commentID, flagged)
}

func (s *PostgresCommentStore) SetPinned(ctx context.Context, commentID string, pinned bool) error {
	return s.setBool(ctx, `UPDATE comments SET is_pinned = $2 WHERE id = $1 AND NOT is_tombstoned`, commentID, pinned)
}

func (s *PostgresCommentStore) setBool(ctx context.Context, q, commentID string, v bool) error {
	tag, err := s.pool.Exec(ctx, q, commentID, v)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) AddReport(ctx context.Context, r domain.Report) (bool, error) {
	const q = `INSERT INTO comment_reports (comment_id, reporter_id, reason)
	           SELECT id, $2, $3 FROM comments WHERE id = $1 AND NOT is_tombstoned
	           ON CONFLICT (comment_id, reporter_id) DO NOTHING`
	tag, err := s.pool.Exec(ctx, q, r.CommentID, r.ReporterID, r.Reason)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Nothing inserted: either a duplicate or the comment is gone.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1 AND NOT is_tombstoned)`,
		r.CommentID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (s *PostgresCommentStore) ListFlagged(ctx context.Context, limit int) ([]FlaggedComment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+commentColumns+` FROM comments
		 WHERE is_flagged AND NOT is_tombstoned
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	var out []FlaggedComment
	index := make(map[string]int)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[c.ID] = len(out)
		out = append(out, FlaggedComment{Comment: c, Reports: []domain.Report{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []FlaggedComment{}, nil
	}

	ids := make([]string, len(out))
	for i, fc := range out {
		ids[i] = fc.Comment.ID
	}
	rrows, err := s.pool.Query(ctx,
		`SELECT comment_id, reporter_id, reason, created_at FROM comment_reports
		 WHERE comment_id = ANY($1) ORDER BY created_at ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var r domain.Report
		if err := rrows.Scan(&r.CommentID, &r.ReporterID, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		i := index[r.CommentID]
		out[i].Reports = append(out[i].Reports, r)
	}
	return out, rrows.Err()
}
