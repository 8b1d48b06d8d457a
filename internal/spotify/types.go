package spotify

// Profile is the subset of the Spotify user profile Friendify stores.
type Profile struct {
	SpotifyID   string
	DisplayName string
}

// TopTrack is one entry of a user's top-tracks result, most played first.
type TopTrack struct {
	SpotifyID string
	Name      string
	Artist    string
	Album     string
	ImageURL  *string // nil when the album has no cover image
}
