package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenURL is Spotify's OAuth token endpoint.
const DefaultTokenURL = "https://accounts.spotify.com/api/token"

// defaultExpirySeconds is assumed when the provider omits expires_in.
const defaultExpirySeconds = 3600

// Sentinel errors.
var (
	// ErrInvalidGrant is returned when the authorization code is expired or
	// already used. Callers may treat it as a silent page-reload race.
	ErrInvalidGrant = errors.New("authorization code expired or already used")

	// ErrExchangeFailed is returned when the code exchange is rejected.
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrRefreshFailed is returned when the refresh exchange is rejected or
	// the response carries no access token.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// TokenClient exchanges authorization codes and refresh tokens against the
// provider token endpoint using the PKCE flow.
type TokenClient struct {
	clientID   string
	httpClient *http.Client
	tokenURL   string
	now        func() time.Time
}

// NewTokenClient creates a TokenClient for the given Spotify application.
func NewTokenClient(clientID string) *TokenClient {
	return &TokenClient{
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokenURL: DefaultTokenURL,
		now:      time.Now,
	}
}

// tokenResponse is the provider token endpoint response body, success or error.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange trades an authorization code and its PKCE verifier for tokens.
// Returns ErrInvalidGrant when the code is stale or replayed, ErrExchangeFailed
// for any other rejection.
func (c *TokenClient) Exchange(ctx context.Context, code, verifier, redirectURI string) (*oauth2.Token, error) {
	params := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
	}

	body, status, err := c.post(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	if status < 200 || status >= 300 {
		if body.Error == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidGrant, errDetail(body))
		}
		return nil, fmt.Errorf("%w: %s", ErrExchangeFailed, errDetail(body))
	}

	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", ErrExchangeFailed)
	}

	return c.token(body, ""), nil
}

// Refresh trades a refresh token for a fresh access token. The provider may
// omit a new refresh token; the previous one is retained in that case.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	params := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	body, status, err := c.post(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrRefreshFailed, errDetail(body))
	}

	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", ErrRefreshFailed)
	}

	return c.token(body, refreshToken), nil
}

// token builds an oauth2.Token with an absolute expiry so later checks do not
// recompute from a relative lifetime.
func (c *TokenClient) token(body *tokenResponse, previousRefresh string) *oauth2.Token {
	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}

	refresh := body.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return &oauth2.Token{
		AccessToken:  body.AccessToken,
		TokenType:    body.TokenType,
		RefreshToken: refresh,
		Expiry:       c.now().Add(time.Duration(expiresIn) * time.Second),
	}
}

// post issues the form-encoded request and decodes the response body.
func (c *TokenClient) post(ctx context.Context, params url.Values) (*tokenResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}

	var body tokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parsing response body: %w", err)
	}
	return &body, resp.StatusCode, nil
}

// errDetail picks the most descriptive field from an error response.
func errDetail(body *tokenResponse) string {
	if body.ErrorDescription != "" {
		return body.ErrorDescription
	}
	if body.Error != "" {
		return body.Error
	}
	return "provider returned non-success status"
}
