// Package reconcile persists a user's latest top-tracks result as their
// current rank set.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"friendify/internal/db"
	"friendify/internal/spotify"
)

// MaxTopTracks is the number of rank entries kept per user.
const MaxTopTracks = 5

// Store is the persistence surface the reconciler needs.
type Store interface {
	// ReplaceTopTracks atomically replaces a user's rank set and returns the
	// new set joined with track details, ordered by rank ascending.
	ReplaceTopTracks(ctx context.Context, userID uuid.UUID, tracks []db.Track) ([]db.RankedTrack, error)
}

// Error is a reconciliation failure carrying the affected user and the
// underlying persistence cause.
type Error struct {
	UserID uuid.UUID
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reconciling tracks for user %s: %v", e.UserID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Service reconciles provider top-tracks results into the database.
type Service struct {
	store Store
}

// New creates a reconciler over the given store.
func New(store Store) *Service {
	return &Service{store: store}
}

// Reconcile truncates tracks to at most MaxTopTracks entries in input order,
// upserts each track by its Spotify ID, and replaces the user's rank set so
// rank = position + 1. The returned set is ordered by rank ascending.
// Re-running with the same input yields the same final set.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID, tracks []spotify.TopTrack) ([]db.RankedTrack, error) {
	if len(tracks) > MaxTopTracks {
		tracks = tracks[:MaxTopTracks]
	}

	rows := make([]db.Track, len(tracks))
	for i, t := range tracks {
		rows[i] = db.Track{
			Name:      t.Name,
			Artist:    t.Artist,
			Album:     t.Album,
			SpotifyID: t.SpotifyID,
			ImageURL:  t.ImageURL,
		}
	}

	ranked, err := s.store.ReplaceTopTracks(ctx, userID, rows)
	if err != nil {
		return nil, &Error{UserID: userID, Err: err}
	}
	return ranked, nil
}
