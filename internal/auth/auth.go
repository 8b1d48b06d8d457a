// Package auth builds the Spotify authorization flow: PKCE material and the
// authorization URL the login handler redirects to.
package auth

import (
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Authenticator constructs Spotify authorization URLs for the PKCE flow.
type Authenticator struct {
	auth *spotifyauth.Authenticator
}

// New creates an Authenticator for the given Spotify application.
func New(clientID, clientSecret, redirectURI string) *Authenticator {
	return &Authenticator{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(clientID),
			spotifyauth.WithClientSecret(clientSecret),
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithScopes(spotifyauth.ScopeUserTopRead),
		),
	}
}

// AuthURL returns the provider authorization URL carrying the state and the
// S256 code challenge. The matching verifier must be presented on exchange.
func (a *Authenticator) AuthURL(state, challenge string) string {
	return a.auth.AuthURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)
}
