// Package config reads Friendify configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
)

// DefaultAddr is the default server listen address.
const DefaultAddr = "127.0.0.1:8080"

// Config holds the full server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// SpotifyClientID and SpotifyClientSecret identify the registered
	// Spotify application.
	SpotifyClientID     string
	SpotifyClientSecret string

	// RedirectURI must match the Spotify app configuration exactly.
	RedirectURI string

	// CronSecret guards the scheduled refresh endpoint.
	CronSecret string
}

// requiredVars are the environment variables that must be set.
var requiredVars = []string{
	"DATABASE_URL",
	"SPOTIFY_ID",
	"SPOTIFY_SECRET",
	"SPOTIFY_REDIRECT_URI",
	"CRON_SECRET",
}

// Load reads configuration from the environment. It returns an error naming
// every missing required variable.
func Load() (*Config, error) {
	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = DefaultAddr
	}

	return &Config{
		Addr:                addr,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SpotifyClientID:     os.Getenv("SPOTIFY_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_SECRET"),
		RedirectURI:         os.Getenv("SPOTIFY_REDIRECT_URI"),
		CronSecret:          os.Getenv("CRON_SECRET"),
	}, nil
}
