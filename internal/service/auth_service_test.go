package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/adapter/state"
	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, p *fakeProvider, s *memStore) *AuthService {
	sealer, err := state.NewSealer("test-secret", time.Minute)
	require.NoError(t, err)
	return NewAuthService(p, sealer, s)
}

func loginState(t *testing.T, svc *AuthService) string {
	authURL, err := svc.LoginURL()
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestLoginURL(t *testing.T) {
	svc := newAuthService(t, &fakeProvider{}, newMemStore())

	authURL, err := svc.LoginURL()
	require.NoError(t, err)
	assert.Contains(t, authURL, "code_challenge_method=S256")
	assert.NotEqual(t, loginState(t, svc), loginState(t, svc), "state is per flow")
}

func TestHandleCallbackCreatesUser(t *testing.T) {
	store := newMemStore()
	p := &fakeProvider{
		exchanged: domain.TokenPair{AccessToken: "at", RefreshToken: "rt", ExpiresAt: ptr(1_700_000_000_000)},
		profile:   domain.Profile{ID: "42", Username: "jack", Name: "Jack", ProfileImageURL: "https://img/42.png"},
	}
	svc := newAuthService(t, p, store)

	user, tokens, err := svc.HandleCallback(context.Background(), "code-1", loginState(t, svc))
	require.NoError(t, err)
	assert.Equal(t, "42", user.TwitterID)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, []string{"at"}, p.clients)

	// A second login for the same account updates the same row.
	_, _, err = svc.HandleCallback(context.Background(), "code-2", loginState(t, svc))
	require.NoError(t, err)
	assert.Len(t, store.users, 1)
	assert.Equal(t, "https://img/42.png", store.users["42"].ProfileImage)
}

func TestHandleCallbackRejectsBadInput(t *testing.T) {
	store := newMemStore()
	p := &fakeProvider{profile: domain.Profile{ID: "42"}}
	svc := newAuthService(t, p, store)

	_, _, err := svc.HandleCallback(context.Background(), "", loginState(t, svc))
	assert.ErrorIs(t, err, port.ErrValidation)

	_, _, err = svc.HandleCallback(context.Background(), "code", "")
	assert.ErrorIs(t, err, port.ErrValidation)

	for _, st := range []string{"WRONG", "twitter-auth-state"} {
		_, _, err = svc.HandleCallback(context.Background(), "code", st)
		assert.ErrorIs(t, err, port.ErrInvalidState)
	}

	assert.Empty(t, store.users)
	assert.Empty(t, p.clients, "nothing is exchanged on a bad state")
}

func TestHandleCallbackExchangeFailure(t *testing.T) {
	store := newMemStore()
	p := &fakeProvider{exchangeErr: errors.New("invalid_grant")}
	svc := newAuthService(t, p, store)

	_, _, err := svc.HandleCallback(context.Background(), "code", loginState(t, svc))
	assert.ErrorIs(t, err, port.ErrAuthenticationFailed)
	assert.Empty(t, store.users)
}

func TestRevokeAndVerify(t *testing.T) {
	p := &fakeProvider{profile: domain.Profile{ID: "42", Username: "jack"}}
	svc := newAuthService(t, p, newMemStore())
	sess := &Session{Client: p.Client(context.Background(), "at"), Tokens: domain.TokenPair{AccessToken: "at", RefreshToken: "rt"}}

	res, err := svc.Revoke(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, res.Revoked)
	assert.Equal(t, []string{"at"}, p.revokeCalls)

	profile, err := svc.Verify(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "jack", profile.Username)
}
