package video

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const videoColumns = `id, user_id, title, description, video_url, thumbnail_url, created_at, updated_at`

// Repository handles all video database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanVideo(row pgx.Row) (*Video, error) {
	v := &Video{}
	err := row.Scan(&v.ID, &v.UserID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Create inserts a new video and returns the stored record.
func (r *Repository) Create(ctx context.Context, v *Video) (*Video, error) {
	created, err := scanVideo(r.db.QueryRow(ctx,
		`INSERT INTO videos (user_id, title, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+videoColumns,
		v.UserID, v.Title, v.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	return created, nil
}

// GetByID fetches a video by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Video, error) {
	v, err := scanVideo(r.db.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video by id: %w", err)
	}
	return v, nil
}

// ListByUser returns a user's videos, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]*Video, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]*Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// SetVideoURL points the record at a new video object.
func (r *Repository) SetVideoURL(ctx context.Context, id, ref string) (*Video, *string, error) {
	return r.setReference(ctx, "video_url", id, ref)
}

// SetThumbnailURL points the record at a new thumbnail.
func (r *Repository) SetThumbnailURL(ctx context.Context, id, ref string) (*Video, *string, error) {
	return r.setReference(ctx, "thumbnail_url", id, ref)
}

// setReference updates a single reference column. column is one of the two
// constants above, never user input.
func (r *Repository) setReference(ctx context.Context, column, id, ref string) (*Video, *string, error) {
	query := fmt.Sprintf(
		`WITH old AS (SELECT id, %[1]s FROM videos WHERE id = $1 FOR UPDATE)
		 UPDATE videos v
		 SET %[1]s = $2, updated_at = NOW()
		 FROM old
		 WHERE v.id = old.id
		 RETURNING v.id, v.user_id, v.title, v.description, v.video_url, v.thumbnail_url,
		           v.created_at, v.updated_at, old.%[1]s`,
		column,
	)

	v := &Video{}
	var previous *string
	err := r.db.QueryRow(ctx, query, id, ref).Scan(
		&v.ID, &v.UserID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.CreatedAt, &v.UpdatedAt, &previous,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("set %s: %w", column, err)
	}
	return v, previous, nil
}

// CountByUser returns how many videos userID owns.
func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}

// Delete removes a video record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
