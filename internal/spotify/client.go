// Package spotify provides the two Spotify-facing clients: a token client for
// the PKCE code and refresh exchanges, and a Web API wrapper for profile and
// top-tracks reads.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Client wraps the Spotify Web API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a Client from an already-authenticated API client.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewWithToken creates a Client authenticated with a stored token. The token
// is used as-is; refreshing is the caller's responsibility.
func NewWithToken(ctx context.Context, token *oauth2.Token) *Client {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return &Client{api: spotify.New(httpClient, spotify.WithRetry(true))}
}

// Profile returns the current user's stable Spotify ID and display name.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	return &Profile{
		SpotifyID:   user.ID,
		DisplayName: user.DisplayName,
	}, nil
}
