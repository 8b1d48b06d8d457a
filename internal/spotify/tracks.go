package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// FetchTopTracks fetches top tracks with a one-off client built from the
// given token. Suits callers that hold per-user stored tokens.
func FetchTopTracks(ctx context.Context, token *oauth2.Token, limit int) ([]TopTrack, error) {
	return NewWithToken(ctx, token).TopTracks(ctx, limit)
}

// TopTracks retrieves the user's most played tracks over the short-term range
// (roughly the last 4 weeks), most played first.
func (c *Client) TopTracks(ctx context.Context, limit int) ([]TopTrack, error) {
	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Limit(limit),
		spotify.Timerange(spotify.ShortTermRange),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}

	tracks := make([]TopTrack, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	return tracks, nil
}

// convertTrack maps a Spotify track to a TopTrack, keeping only the first
// credited artist and the first album image.
func convertTrack(t spotify.FullTrack) TopTrack {
	var artist string
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}

	var imageURL *string
	if len(t.Album.Images) > 0 && t.Album.Images[0].URL != "" {
		u := t.Album.Images[0].URL
		imageURL = &u
	}

	return TopTrack{
		SpotifyID: t.ID.String(),
		Name:      t.Name,
		Artist:    artist,
		Album:     t.Album.Name,
		ImageURL:  imageURL,
	}
}
