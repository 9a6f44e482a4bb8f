package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
)

// Session is the outcome of a guarded request: an API handle bound to the
// effective access token and, when a refresh happened, the replacement pair
// the caller has to adopt. TwitterID is the client-asserted account, used for
// bookkeeping only.
type Session struct {
	Client    port.TwitterClient
	Tokens    domain.TokenPair
	Refreshed *domain.TokenPair
	TwitterID string
}

// TokenGuard validates a client-held token pair before each protected call.
type TokenGuard struct {
	provider port.OAuthProvider
	users    port.UserStore
	now      func() time.Time
}

// NewTokenGuard creates a guard.
func NewTokenGuard(provider port.OAuthProvider, users port.UserStore) *TokenGuard {
	return &TokenGuard{provider: provider, users: users, now: time.Now}
}

// Authenticate refreshes creds if expired, mirrors the refresh to the store,
// and returns a session usable for the downstream call.
func (g *TokenGuard) Authenticate(ctx context.Context, creds domain.Credentials) (*Session, error) {
	if !creds.Complete() {
		return nil, port.ErrAuthenticationRequired
	}

	tokens := creds.TokenPair
	var refreshed *domain.TokenPair

	if tokens.Expired(g.now()) {
		pair, err := g.provider.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			slog.Warn("token refresh failed", "twitter_id", creds.TwitterID, "error", err)
			return nil, fmt.Errorf("%w: refresh: %v", port.ErrAuthenticationFailed, err)
		}
		if pair.RefreshToken == "" {
			pair.RefreshToken = tokens.RefreshToken
		}
		tokens = *pair
		refreshed = pair

		if creds.TwitterID != "" {
			g.persist(ctx, creds.TwitterID, *pair)
		}
	}

	return &Session{
		Client:    g.provider.Client(ctx, tokens.AccessToken),
		Tokens:    tokens,
		Refreshed: refreshed,
		TwitterID: creds.TwitterID,
	}, nil
}

// persist writes the refreshed pair before the request proceeds. A failure is
// logged only; the caller still receives the pair.
func (g *TokenGuard) persist(ctx context.Context, twitterID string, pair domain.TokenPair) {
	err := g.users.UpdateUserTokens(ctx, twitterID, pair)
	switch {
	case err == nil:
		slog.Info("refreshed tokens stored", "twitter_id", twitterID)
	case errors.Is(err, port.ErrUserNotFound):
		slog.Warn("refreshed tokens for unknown user", "twitter_id", twitterID)
	default:
		slog.Error("failed to store refreshed tokens", "twitter_id", twitterID, "error", err)
	}
}
