package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrackRepository handles track and rank-set database operations.
type TrackRepository struct {
	pool *pgxpool.Pool
}

const trackColumns = `id, name, artist, album, spotify_id, image_url, is_track_of_day, created_at`

// ReplaceTopTracks replaces a user's complete rank set in one transaction:
// tracks are upserted by spotify_id, rank rows not in the new set are pruned,
// and the surviving rows are upserted with rank = position + 1. Re-running
// with the same input yields the same final set.
func (r *TrackRepository) ReplaceTopTracks(ctx context.Context, userID uuid.UUID, tracks []Track) ([]RankedTrack, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsertTrack := `
		INSERT INTO tracks (id, name, artist, album, spotify_id, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			name = EXCLUDED.name,
			artist = EXCLUDED.artist,
			album = EXCLUDED.album,
			image_url = EXCLUDED.image_url
		RETURNING id
	`
	trackIDs := make([]uuid.UUID, len(tracks))
	for i, t := range tracks {
		id := t.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		err := tx.QueryRow(ctx, upsertTrack,
			id,
			t.Name,
			t.Artist,
			t.Album,
			t.SpotifyID,
			t.ImageURL,
		).Scan(&trackIDs[i])
		if err != nil {
			return nil, fmt.Errorf("upserting track %s: %w", t.SpotifyID, err)
		}
	}

	// Prune before upserting so no two rows ever share a rank.
	prune := `DELETE FROM user_tracks WHERE user_id = $1 AND track_id != ALL($2::uuid[])`
	if _, err := tx.Exec(ctx, prune, userID, trackIDs); err != nil {
		return nil, fmt.Errorf("pruning stale rank entries: %w", err)
	}

	upsertRank := `
		INSERT INTO user_tracks (user_id, track_id, rank, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, track_id) DO UPDATE SET
			rank = EXCLUDED.rank,
			created_at = EXCLUDED.created_at
	`
	for i, trackID := range trackIDs {
		if _, err := tx.Exec(ctx, upsertRank, userID, trackID, i+1); err != nil {
			return nil, fmt.Errorf("upserting rank entry: %w", err)
		}
	}

	ranked, err := queryRankedTracks(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return ranked, nil
}

// GetUserTracks retrieves a user's current rank set, ordered by rank ascending.
func (r *TrackRepository) GetUserTracks(ctx context.Context, userID uuid.UUID) ([]RankedTrack, error) {
	return queryRankedTracks(ctx, r.pool, userID)
}

// queryRankedTracks runs the rank-set join on either a pool or an open tx.
func queryRankedTracks(ctx context.Context, q querier, userID uuid.UUID) ([]RankedTrack, error) {
	query := `
		SELECT ut.rank, ut.created_at,
		       t.id, t.name, t.artist, t.album, t.spotify_id, t.image_url, t.is_track_of_day, t.created_at
		FROM user_tracks ut
		JOIN tracks t ON t.id = ut.track_id
		WHERE ut.user_id = $1
		ORDER BY ut.rank
	`
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user rank set: %w", err)
	}
	defer rows.Close()

	var ranked []RankedTrack
	for rows.Next() {
		var rt RankedTrack
		if err := rows.Scan(
			&rt.Rank,
			&rt.CreatedAt,
			&rt.Track.ID,
			&rt.Track.Name,
			&rt.Track.Artist,
			&rt.Track.Album,
			&rt.Track.SpotifyID,
			&rt.Track.ImageURL,
			&rt.Track.IsTrackOfDay,
			&rt.Track.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning rank entry: %w", err)
		}
		ranked = append(ranked, rt)
	}
	return ranked, rows.Err()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// All retrieves the full track corpus.
func (r *TrackRepository) All(ctx context.Context) ([]Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		if err := scanTrack(rows, &t); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// SetTrackOfDay flags the given track and unflags every other one in a single
// conditional write, so readers never observe zero flagged tracks.
func (r *TrackRepository) SetTrackOfDay(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tracks SET is_track_of_day = (id = $1)`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("setting track of day: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTrackOfDay retrieves the currently flagged track.
func (r *TrackRepository) GetTrackOfDay(ctx context.Context) (*Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE is_track_of_day`
	var t Track
	row := r.pool.QueryRow(ctx, query)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Artist,
		&t.Album,
		&t.SpotifyID,
		&t.ImageURL,
		&t.IsTrackOfDay,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying track of day: %w", err)
	}
	return &t, nil
}

// ListUserTopTracks retrieves every user's current rank set for the shared
// feed, grouped per user and ordered by rank within each group.
func (r *TrackRepository) ListUserTopTracks(ctx context.Context) ([]UserTopTracks, error) {
	query := `
		SELECT u.id, u.username, ut.rank, ut.created_at,
		       t.id, t.name, t.artist, t.album, t.spotify_id, t.image_url, t.is_track_of_day, t.created_at
		FROM user_tracks ut
		JOIN users u ON u.id = ut.user_id
		JOIN tracks t ON t.id = ut.track_id
		ORDER BY u.created_at, ut.rank
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying user top tracks: %w", err)
	}
	defer rows.Close()

	var feed []UserTopTracks
	for rows.Next() {
		var (
			userID   uuid.UUID
			username string
			rt       RankedTrack
		)
		if err := rows.Scan(
			&userID,
			&username,
			&rt.Rank,
			&rt.CreatedAt,
			&rt.Track.ID,
			&rt.Track.Name,
			&rt.Track.Artist,
			&rt.Track.Album,
			&rt.Track.SpotifyID,
			&rt.Track.ImageURL,
			&rt.Track.IsTrackOfDay,
			&rt.Track.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning user top track: %w", err)
		}

		if len(feed) == 0 || feed[len(feed)-1].UserID != userID {
			feed = append(feed, UserTopTracks{UserID: userID, Username: username})
		}
		last := &feed[len(feed)-1]
		last.Tracks = append(last.Tracks, rt)
	}
	return feed, rows.Err()
}

// scanTrack scans one track row in trackColumns order.
func scanTrack(rows pgx.Rows, t *Track) error {
	if err := rows.Scan(
		&t.ID,
		&t.Name,
		&t.Artist,
		&t.Album,
		&t.SpotifyID,
		&t.ImageURL,
		&t.IsTrackOfDay,
		&t.CreatedAt,
	); err != nil {
		return fmt.Errorf("scanning track: %w", err)
	}
	return nil
}
