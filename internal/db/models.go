package db

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered Friendify user with their provider identity and
// current OAuth tokens. Tokens are nullable: a row can outlive its grant.
type User struct {
	ID             uuid.UUID
	Username       string
	SpotifyID      string
	AccessToken    *string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Track is a Spotify track shared across users, de-duplicated by spotify_id.
// At most one row carries IsTrackOfDay = true at a time. Track rows double as
// API payloads, hence the JSON tags.
type Track struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Artist       string    `json:"artist"` // first credited artist only
	Album        string    `json:"album"`
	SpotifyID    string    `json:"spotifyId"`
	ImageURL     *string   `json:"imageUrl"`
	IsTrackOfDay bool      `json:"isTrackOfDay"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserTrack is one rank entry of a user's current top tracks.
type UserTrack struct {
	UserID    uuid.UUID
	TrackID   uuid.UUID
	Rank      int // 1..5, 1 = most played
	CreatedAt time.Time
}

// RankedTrack is a rank entry joined with its track details.
type RankedTrack struct {
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
	Track     Track     `json:"track"`
}

// UserTopTracks groups one user's current rank set for the shared feed.
type UserTopTracks struct {
	UserID   uuid.UUID     `json:"userId"`
	Username string        `json:"username"`
	Tracks   []RankedTrack `json:"tracks"`
}

// Session is a server-side login session.
type Session struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}
