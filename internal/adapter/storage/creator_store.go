// internal/adapter/storage/creator_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"collabmap/internal/domain/creator"
)

// CreatorStore implements creator.Store on Postgres.
type CreatorStore struct {
	db *pgxpool.Pool
}

// NewCreatorStore creates a new creator store.
func NewCreatorStore(db *pgxpool.Pool) *CreatorStore {
	return &CreatorStore{
		db: db,
	}
}

// ListCreators returns the full discoverable candidate set.
func (s *CreatorStore) ListCreators(ctx context.Context) ([]creator.Summary, error) {
	query := `
		SELECT id, name, niche, location, latitude, longitude,
		       follower_count, open_to_collab, avatar_url, twitter_handle
		FROM creators
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var creators []creator.Summary
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		creators = append(creators, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return creators, nil
}

// GetCreator returns a single creator by ID.
func (s *CreatorStore) GetCreator(ctx context.Context, id string) (*creator.Summary, error) {
	query := `
		SELECT id, name, niche, location, latitude, longitude,
		       follower_count, open_to_collab, avatar_url, twitter_handle
		FROM creators
		WHERE id = $1
	`

	row := s.db.QueryRow(ctx, query, id)

	c, err := scanCreator(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, creator.ErrNotFound
		}
		return nil, fmt.Errorf("scan error: %w", err)
	}

	return &c, nil
}

// UpsertCreator inserts or updates a creator record.
func (s *CreatorStore) UpsertCreator(ctx context.Context, c creator.Summary) error {
	query := `
		INSERT INTO creators (
			id, name, niche, location, latitude, longitude,
			follower_count, open_to_collab, avatar_url, twitter_handle,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now()
		)
		ON CONFLICT (id) DO UPDATE
		SET
			name = $2,
			niche = $3,
			location = $4,
			latitude = $5,
			longitude = $6,
			follower_count = $7,
			open_to_collab = $8,
			avatar_url = $9,
			twitter_handle = $10,
			updated_at = now()
	`

	_, err := s.db.Exec(
		ctx,
		query,
		c.ID,
		c.Name,
		c.Niche,
		c.Location,
		c.Latitude,
		c.Longitude,
		c.FollowerCount,
		c.OpenToCollab,
		c.AvatarURL,
		c.TwitterHandle,
	)
	if err != nil {
		return fmt.Errorf("upserting creator: %w", err)
	}

	return nil
}

// UpdateFollowerCount updates only the follower count of a creator.
func (s *CreatorStore) UpdateFollowerCount(ctx context.Context, id string, count int) error {
	tag, err := s.db.Exec(
		ctx,
		`UPDATE creators SET follower_count = $2, updated_at = now() WHERE id = $1`,
		id,
		count,
	)
	if err != nil {
		return fmt.Errorf("updating follower count: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return creator.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCreator(row rowScanner) (creator.Summary, error) {
	var c creator.Summary
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Niche,
		&c.Location,
		&c.Latitude,
		&c.Longitude,
		&c.FollowerCount,
		&c.OpenToCollab,
		&c.AvatarURL,
		&c.TwitterHandle,
	)
	return c, err
}
