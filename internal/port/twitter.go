package port

import (
	"context"
	"encoding/json"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
)

// OAuthProvider abstracts the Twitter OAuth 2.0 authorization server.
type OAuthProvider interface {
	// GenerateVerifier returns a fresh PKCE code verifier.
	GenerateVerifier() string

	// AuthURL returns the authorization URL carrying state and the S256 challenge of verifier.
	AuthURL(state, verifier string) string

	// ExchangeCode trades an authorization code and its PKCE verifier for a token pair.
	ExchangeCode(ctx context.Context, code, verifier string) (*domain.TokenPair, error)

	// Refresh runs the refresh grant once. If the provider does not rotate the
	// refresh token, the returned pair carries the one passed in.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)

	// Revoke invalidates an access token and returns the provider's raw answer.
	Revoke(ctx context.Context, accessToken string) (*RevokeResult, error)

	// Client builds an API handle authenticated with accessToken.
	Client(ctx context.Context, accessToken string) TwitterClient
}

// TwitterClient is an authenticated handle to the Twitter API v2.
type TwitterClient interface {
	// Me returns the account the access token belongs to.
	Me(ctx context.Context) (*domain.Profile, error)

	// Like makes userID like tweetID.
	Like(ctx context.Context, userID, tweetID string) (*ActionResponse, error)

	// Retweet makes userID retweet tweetID.
	Retweet(ctx context.Context, userID, tweetID string) (*ActionResponse, error)
}

// ActionResponse is the provider's answer to a like or retweet.
// Done is the literal liked/retweeted flag; Raw is the "data" object as sent.
type ActionResponse struct {
	Done bool
	Raw  json.RawMessage
}

// RevokeResult is the provider's answer to a revocation.
type RevokeResult struct {
	Revoked bool
	Raw     json.RawMessage
}

// StateSealer mints and opens the per-flow OAuth state that carries the PKCE verifier.
type StateSealer interface {
	Seal(verifier string) (string, error)
	Open(state string) (verifier string, err error)
}
