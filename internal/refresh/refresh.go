// Package refresh implements the scheduled batch that re-fetches every
// registered user's top tracks and elects a track of the day.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"friendify/internal/db"
	"friendify/internal/reconcile"
	"friendify/internal/spotify"
)

// ErrNoTracks is returned when the track corpus is empty. It is a valid empty
// state, not a failure: no writes are performed.
var ErrNoTracks = errors.New("no tracks available")

// tokenExpiryMargin absorbs latency between the expiry check and the token's
// actual use against the provider.
const tokenExpiryMargin = 5 * time.Minute

// TokenRefresher exchanges a refresh token for a fresh access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// TrackSource fetches a user's top tracks with the given access token.
type TrackSource interface {
	TopTracks(ctx context.Context, token *oauth2.Token, limit int) ([]spotify.TopTrack, error)
}

// TrackSourceFunc adapts a function to the TrackSource interface.
type TrackSourceFunc func(ctx context.Context, token *oauth2.Token, limit int) ([]spotify.TopTrack, error)

func (f TrackSourceFunc) TopTracks(ctx context.Context, token *oauth2.Token, limit int) ([]spotify.TopTrack, error) {
	return f(ctx, token, limit)
}

// Reconciler persists a fetched top-tracks result as the user's rank set.
type Reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID, tracks []spotify.TopTrack) ([]db.RankedTrack, error)
}

// UserStore is the user persistence surface the orchestrator needs.
type UserStore interface {
	All(ctx context.Context) ([]db.User, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error
}

// TrackStore is the track persistence surface the selector needs.
type TrackStore interface {
	All(ctx context.Context) ([]db.Track, error)
	SetTrackOfDay(ctx context.Context, id uuid.UUID) error
}

// Status is the terminal outcome of one user's refresh.
type Status string

const (
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// UserUpdate reports one user's outcome in a batch run.
type UserUpdate struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Status   Status    `json:"status"`
	Tracks   int       `json:"tracks,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// UpdateSummary aggregates per-user outcomes. Skipped users are reported in
// Failed alongside hard failures, each with its own reason.
type UpdateSummary struct {
	Success []UserUpdate `json:"success"`
	Failed  []UserUpdate `json:"failed"`
	Summary string       `json:"summary"`
}

// Result is the outcome of one full batch run.
type Result struct {
	Message     string        `json:"message"`
	Track       *db.Track     `json:"track,omitempty"`
	UserUpdates UpdateSummary `json:"userUpdates"`
}

// Service runs the scheduled refresh batch.
type Service struct {
	users      UserStore
	tracks     TrackStore
	tokens     TokenRefresher
	source     TrackSource
	reconciler Reconciler
	limit      int
	now        func() time.Time
	randIntn   func(n int) int
	logger     *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand sets the random index source used by the selector.
func WithRand(intn func(n int) int) Option {
	return func(s *Service) { s.randIntn = intn }
}

// WithLogger sets the batch logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a refresh service.
func New(users UserStore, tracks TrackStore, tokens TokenRefresher, source TrackSource, reconciler Reconciler, opts ...Option) *Service {
	s := &Service{
		users:      users,
		tracks:     tracks,
		tokens:     tokens,
		source:     source,
		reconciler: reconciler,
		limit:      reconcile.MaxTopTracks,
		now:        time.Now,
		randIntn:   rand.Intn,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run refreshes every registered user strictly sequentially, then elects a
// track of the day over the full corpus. One user's failure never aborts the
// batch. When the corpus is empty the per-user summary is still returned,
// together with ErrNoTracks.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	users, err := s.users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	summary := UpdateSummary{
		Success: []UserUpdate{},
		Failed:  []UserUpdate{},
	}
	for _, user := range users {
		update := s.refreshUser(ctx, user)
		switch update.Status {
		case StatusUpdated:
			s.logger.Info("refreshed user tracks", "user", user.Username, "tracks", update.Tracks)
			summary.Success = append(summary.Success, update)
		default:
			s.logger.Warn("user not updated", "user", user.Username, "status", update.Status, "reason", update.Reason)
			summary.Failed = append(summary.Failed, update)
		}
	}
	summary.Summary = fmt.Sprintf("%d updated, %d skipped or failed", len(summary.Success), len(summary.Failed))

	track, err := s.SelectTrackOfDay(ctx)
	if errors.Is(err, ErrNoTracks) {
		return &Result{Message: "No tracks found", UserUpdates: summary}, ErrNoTracks
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("selected track of the day", "track", track.Name, "artist", track.Artist)
	return &Result{
		Message:     "Track of the day updated successfully",
		Track:       track,
		UserUpdates: summary,
	}, nil
}

// refreshUser runs the per-user state machine to a terminal outcome.
func (s *Service) refreshUser(ctx context.Context, user db.User) UserUpdate {
	update := UserUpdate{UserID: user.ID, Username: user.Username}

	if user.RefreshToken == nil || *user.RefreshToken == "" {
		update.Status = StatusSkipped
		update.Reason = "no refresh token"
		return update
	}

	token, ok := s.storedToken(user)
	if !ok {
		fresh, err := s.tokens.Refresh(ctx, *user.RefreshToken)
		if err != nil {
			update.Status = StatusSkipped
			update.Reason = "token refresh failed"
			return update
		}
		if err := s.users.UpdateTokens(ctx, user.ID, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
			update.Status = StatusFailed
			update.Reason = err.Error()
			return update
		}
		token = fresh
	}

	tracks, err := s.source.TopTracks(ctx, token, s.limit)
	if err != nil {
		update.Status = StatusFailed
		update.Reason = err.Error()
		return update
	}
	if len(tracks) == 0 {
		update.Status = StatusSkipped
		update.Reason = "no top tracks"
		return update
	}

	ranked, err := s.reconciler.Reconcile(ctx, user.ID, tracks)
	if err != nil {
		update.Status = StatusFailed
		update.Reason = err.Error()
		return update
	}

	update.Status = StatusUpdated
	update.Tracks = len(ranked)
	return update
}

// storedToken returns the user's persisted access token when it is still
// usable, i.e. more than tokenExpiryMargin away from its absolute expiry.
func (s *Service) storedToken(user db.User) (*oauth2.Token, bool) {
	if user.AccessToken == nil || *user.AccessToken == "" || user.TokenExpiresAt == nil {
		return nil, false
	}
	if s.expired(*user.TokenExpiresAt) {
		return nil, false
	}
	return &oauth2.Token{
		AccessToken:  *user.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: *user.RefreshToken,
		Expiry:       *user.TokenExpiresAt,
	}, true
}

// expired treats a token as expired once the current time is within
// tokenExpiryMargin of its stored expiry.
func (s *Service) expired(expiresAt time.Time) bool {
	return !s.now().Add(tokenExpiryMargin).Before(expiresAt)
}

// SelectTrackOfDay picks one track uniformly at random from the full corpus
// and flags it in a single conditional write. Returns ErrNoTracks, without
// writing, when the corpus is empty.
func (s *Service) SelectTrackOfDay(ctx context.Context) (*db.Track, error) {
	tracks, err := s.tracks.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	selected := tracks[s.randIntn(len(tracks))]
	if err := s.tracks.SetTrackOfDay(ctx, selected.ID); err != nil {
		return nil, fmt.Errorf("flagging track of day: %w", err)
	}
	selected.IsTrackOfDay = true
	return &selected, nil
}
