package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestTokenClient points a TokenClient at a test server with a fixed clock.
func newTestTokenClient(server *httptest.Server, now time.Time) *TokenClient {
	return &TokenClient{
		clientID:   "test-client-id",
		httpClient: server.Client(),
		tokenURL:   server.URL,
		now:        func() time.Time { return now },
	}
}

func TestExchange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      int
		response    map[string]any
		wantErr     error
		wantAccess  string
		wantRefresh string
		wantExpiry  time.Time
	}{
		{
			name:   "success",
			status: http.StatusOK,
			response: map[string]any{
				"access_token":  "access-1",
				"token_type":    "Bearer",
				"expires_in":    1800,
				"refresh_token": "refresh-1",
			},
			wantAccess:  "access-1",
			wantRefresh: "refresh-1",
			wantExpiry:  now.Add(30 * time.Minute),
		},
		{
			name:   "missing expires_in defaults to one hour",
			status: http.StatusOK,
			response: map[string]any{
				"access_token":  "access-2",
				"token_type":    "Bearer",
				"refresh_token": "refresh-2",
			},
			wantAccess:  "access-2",
			wantRefresh: "refresh-2",
			wantExpiry:  now.Add(time.Hour),
		},
		{
			name:   "invalid grant",
			status: http.StatusBadRequest,
			response: map[string]any{
				"error":             "invalid_grant",
				"error_description": "Authorization code expired",
			},
			wantErr: ErrInvalidGrant,
		},
		{
			name:   "other provider error",
			status: http.StatusBadRequest,
			response: map[string]any{
				"error":             "invalid_request",
				"error_description": "code_verifier required",
			},
			wantErr: ErrExchangeFailed,
		},
		{
			name:     "success status without access token",
			status:   http.StatusOK,
			response: map[string]any{"token_type": "Bearer"},
			wantErr:  ErrExchangeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("parsing form: %v", err)
				}
				if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
					t.Errorf("grant_type = %q, want authorization_code", got)
				}
				if got := r.PostForm.Get("code_verifier"); got != "test-verifier" {
					t.Errorf("code_verifier = %q, want test-verifier", got)
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := newTestTokenClient(server, now)
			token, err := client.Exchange(context.Background(), "test-code", "test-verifier", "http://127.0.0.1:8080/callback")

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Exchange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			if token.AccessToken != tt.wantAccess {
				t.Errorf("AccessToken = %q, want %q", token.AccessToken, tt.wantAccess)
			}
			if token.RefreshToken != tt.wantRefresh {
				t.Errorf("RefreshToken = %q, want %q", token.RefreshToken, tt.wantRefresh)
			}
			if !token.Expiry.Equal(tt.wantExpiry) {
				t.Errorf("Expiry = %v, want %v", token.Expiry, tt.wantExpiry)
			}
		})
	}
}

func TestExchange_InvalidGrantIsNotExchangeFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
	}))
	defer server.Close()

	client := newTestTokenClient(server, time.Now())
	_, err := client.Exchange(context.Background(), "stale-code", "v", "http://127.0.0.1:8080/callback")

	if !errors.Is(err, ErrInvalidGrant) {
		t.Errorf("error = %v, want ErrInvalidGrant", err)
	}
	if errors.Is(err, ErrExchangeFailed) {
		t.Error("invalid_grant should be distinguishable from ErrExchangeFailed")
	}
}

func TestRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      int
		response    map[string]any
		wantErr     error
		wantAccess  string
		wantRefresh string
	}{
		{
			name:   "success with rotated refresh token",
			status: http.StatusOK,
			response: map[string]any{
				"access_token":  "access-new",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "refresh-new",
			},
			wantAccess:  "access-new",
			wantRefresh: "refresh-new",
		},
		{
			name:   "omitted refresh token falls back to previous",
			status: http.StatusOK,
			response: map[string]any{
				"access_token": "access-new",
				"token_type":   "Bearer",
				"expires_in":   3600,
			},
			wantAccess:  "access-new",
			wantRefresh: "refresh-old",
		},
		{
			name:     "provider rejection",
			status:   http.StatusBadRequest,
			response: map[string]any{"error": "invalid_grant", "error_description": "Refresh token revoked"},
			wantErr:  ErrRefreshFailed,
		},
		{
			name:     "missing access token",
			status:   http.StatusOK,
			response: map[string]any{"token_type": "Bearer"},
			wantErr:  ErrRefreshFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("parsing form: %v", err)
				}
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("grant_type = %q, want refresh_token", got)
				}
				if got := r.PostForm.Get("refresh_token"); got != "refresh-old" {
					t.Errorf("refresh_token = %q, want refresh-old", got)
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := newTestTokenClient(server, now)
			token, err := client.Refresh(context.Background(), "refresh-old")

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Refresh() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			if token.AccessToken != tt.wantAccess {
				t.Errorf("AccessToken = %q, want %q", token.AccessToken, tt.wantAccess)
			}
			if token.RefreshToken != tt.wantRefresh {
				t.Errorf("RefreshToken = %q, want %q", token.RefreshToken, tt.wantRefresh)
			}
			if !token.Expiry.Equal(now.Add(time.Hour)) {
				t.Errorf("Expiry = %v, want %v", token.Expiry, now.Add(time.Hour))
			}
		})
	}
}

func TestNewTokenClient(t *testing.T) {
	client := NewTokenClient("client-id")

	if client.clientID != "client-id" {
		t.Errorf("clientID = %q, want client-id", client.clientID)
	}
	if client.tokenURL != DefaultTokenURL {
		t.Errorf("tokenURL = %q, want %q", client.tokenURL, DefaultTokenURL)
	}
	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}
}
