package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"friendify/internal/auth"
	"friendify/internal/db"
	"friendify/internal/refresh"
	"friendify/internal/spotify"
)

const (
	stateCookieName    = "oauth_state"
	verifierCookieName = "pkce_verifier"

	// authCookieTTL bounds how long a pending login may take.
	authCookieTTL = 300 // seconds
)

// TokenExchanger trades an authorization code and PKCE verifier for tokens.
type TokenExchanger interface {
	Exchange(ctx context.Context, code, verifier, redirectURI string) (*oauth2.Token, error)
}

// RefreshRunner runs the scheduled refresh batch.
type RefreshRunner interface {
	Run(ctx context.Context) (*refresh.Result, error)
}

// Reconciler persists a user's fetched top tracks as their rank set.
type Reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID, tracks []spotify.TopTrack) ([]db.RankedTrack, error)
}

// TrackReader serves the read-only API endpoints.
type TrackReader interface {
	GetTrackOfDay(ctx context.Context) (*db.Track, error)
	ListUserTopTracks(ctx context.Context) ([]db.UserTopTracks, error)
}

// Handlers contains the HTTP handlers for the Friendify API.
type Handlers struct {
	auth        *auth.Authenticator
	tokens      TokenExchanger
	sessions    SessionManager
	users       *db.UserRepository
	tracks      TrackReader
	reconciler  Reconciler
	refresher   RefreshRunner
	redirectURI string
	cronSecret  string
	logger      *log.Logger
}

// Home reports authentication state (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	resp := map[string]any{
		"authenticated": session != nil,
	}
	if session != nil {
		resp["user"] = map[string]any{
			"id":       session.UserID,
			"username": session.Username,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Login initiates the Spotify PKCE flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	verifier, err := auth.GenerateVerifier(auth.DefaultVerifierLength)
	if err != nil {
		http.Error(w, "Failed to generate verifier", http.StatusInternalServerError)
		return
	}

	// Both live only until the callback; the verifier binds the eventual
	// authorization code to this browser.
	setAuthCookie(w, stateCookieName, state)
	setAuthCookie(w, verifierCookieName, verifier)

	url := h.auth.AuthURL(state, auth.GenerateChallenge(verifier))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback): exchanges
// the code, upserts the user with their tokens, saves their top tracks, and
// opens a session.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}
	verifierCookie, err := r.Cookie(verifierCookieName)
	if err != nil {
		http.Error(w, "Missing verifier cookie", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// The pending-login state is single-use either way.
	clearAuthCookie(w, stateCookieName)
	clearAuthCookie(w, verifierCookieName)

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, "Spotify auth error: "+errMsg, http.StatusBadRequest)
		return
	}

	token, err := h.tokens.Exchange(ctx, r.URL.Query().Get("code"), verifierCookie.Value, h.redirectURI)
	if errors.Is(err, spotify.ErrInvalidGrant) {
		// Reload race: the code was already used by a previous exchange.
		// The earlier exchange established the session, so stay quiet.
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	if err != nil {
		h.logger.Error("code exchange failed", "err", err)
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	client := spotify.NewWithToken(ctx, token)
	profile, err := client.Profile(ctx)
	if err != nil {
		h.logger.Error("profile fetch failed", "err", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	user := &db.User{
		Username:  profile.DisplayName,
		SpotifyID: profile.SpotifyID,
	}
	if err := h.users.Upsert(ctx, user); err != nil {
		h.logger.Error("user upsert failed", "err", err)
		http.Error(w, "Failed to save user", http.StatusInternalServerError)
		return
	}
	if err := h.users.UpdateTokens(ctx, user.ID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		h.logger.Error("token save failed", "err", err)
		http.Error(w, "Failed to save tokens", http.StatusInternalServerError)
		return
	}

	tracks, err := client.TopTracks(ctx, 5)
	if err != nil {
		h.logger.Error("top tracks fetch failed", "err", err)
		http.Error(w, "Failed to fetch top tracks", http.StatusInternalServerError)
		return
	}
	if len(tracks) > 0 {
		if _, err := h.reconciler.Reconcile(ctx, user.ID, tracks); err != nil {
			h.logger.Error("track reconciliation failed", "err", err)
			http.Error(w, "Failed to save tracks", http.StatusInternalServerError)
			return
		}
	}

	session, err := h.sessions.Create(ctx, user.ID, user.Username)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, session)

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout clears the session (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Me returns the authenticated user (GET /api/me).
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       session.UserID,
		"username": session.Username,
	})
}

// AllTracks returns every user's ranked tracks (GET /api/tracks).
func (h *Handlers) AllTracks(w http.ResponseWriter, r *http.Request) {
	feed, err := h.tracks.ListUserTopTracks(r.Context())
	if err != nil {
		h.logger.Error("feed query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Error fetching tracks",
			"error":   err.Error(),
		})
		return
	}
	if feed == nil {
		feed = []db.UserTopTracks{}
	}
	writeJSON(w, http.StatusOK, feed)
}

// GetTrackOfDay returns the currently flagged track (GET /api/getTrackOfDay).
func (h *Handlers) GetTrackOfDay(w http.ResponseWriter, r *http.Request) {
	track, err := h.tracks.GetTrackOfDay(r.Context())
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "No track of the day"})
		return
	}
	if err != nil {
		h.logger.Error("track of day query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Error fetching track of day",
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"track": track})
}

// UpdateTrackOfDay runs the scheduled refresh batch (GET /api/updateTrackOfDay).
// The endpoint is a GET because hosted cron schedulers issue GETs; it is
// guarded by a shared bearer secret instead.
func (h *Handlers) UpdateTrackOfDay(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+h.cronSecret {
		h.logger.Warn("scheduled refresh rejected", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
		return
	}

	result, err := h.refresher.Run(r.Context())
	if errors.Is(err, refresh.ErrNoTracks) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message":     "No tracks found",
			"userUpdates": result.UserUpdates,
		})
		return
	}
	if err != nil {
		h.logger.Error("scheduled refresh failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Error updating track of the day",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// setAuthCookie stores a short-lived pending-login value.
func setAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   authCookieTTL,
	})
}

// clearAuthCookie removes a pending-login cookie.
func clearAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
