package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
)

// AuthService handles the authentication flow.
type AuthService struct {
	provider port.OAuthProvider
	sealer   port.StateSealer
	users    port.UserStore
}

// NewAuthService creates a new authentication service.
func NewAuthService(provider port.OAuthProvider, sealer port.StateSealer, users port.UserStore) *AuthService {
	return &AuthService{provider: provider, sealer: sealer, users: users}
}

// LoginURL returns the authorization URL for a new flow. The PKCE verifier
// travels sealed inside the state.
func (s *AuthService) LoginURL() (string, error) {
	verifier := s.provider.GenerateVerifier()

	state, err := s.sealer.Seal(verifier)
	if err != nil {
		return "", fmt.Errorf("seal state: %w", err)
	}
	return s.provider.AuthURL(state, verifier), nil
}

// HandleCallback opens the state, exchanges the code, and upserts the user.
func (s *AuthService) HandleCallback(ctx context.Context, code, state string) (*domain.User, *domain.TokenPair, error) {
	if code == "" {
		return nil, nil, port.Validation("missing authorization code")
	}
	if state == "" {
		return nil, nil, port.Validation("missing state")
	}

	verifier, err := s.sealer.Open(state)
	if err != nil {
		return nil, nil, err
	}

	// Exchange authorization code for tokens
	tokens, err := s.provider.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: exchange code: %v", port.ErrAuthenticationFailed, err)
	}

	profile, err := s.provider.Client(ctx, tokens.AccessToken).Me(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get profile: %w", err)
	}

	user, err := s.users.UpsertUser(ctx, &domain.User{
		TwitterID:    profile.ID,
		Username:     profile.Username,
		Name:         profile.Name,
		ProfileImage: profile.ProfileImageURL,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert user: %w", err)
	}

	slog.Info("user authenticated", "user_id", user.ID, "twitter_id", user.TwitterID)
	return user, tokens, nil
}

// Revoke invalidates the session's access token at the provider. Local rows
// are left alone.
func (s *AuthService) Revoke(ctx context.Context, sess *Session) (*port.RevokeResult, error) {
	res, err := s.provider.Revoke(ctx, sess.Tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("revoke token: %w", err)
	}
	return res, nil
}

// Verify returns the provider's view of the session owner.
func (s *AuthService) Verify(ctx context.Context, sess *Session) (*domain.Profile, error) {
	return me(ctx, sess)
}

// me resolves the session owner. A provider 401 still matches
// port.ErrAuthenticationFailed through the wrap.
func me(ctx context.Context, sess *Session) (*domain.Profile, error) {
	profile, err := sess.Client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return profile, nil
}
