package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/google/uuid"
)

type fakeProvider struct {
	mu           sync.Mutex
	refreshCalls int
	refreshErr   error
	refreshed    domain.TokenPair
	clients      []string // access tokens clients were built with
	exchangeErr  error
	exchanged    domain.TokenPair
	profile      domain.Profile
	meErr        error
	likeResp     *port.ActionResponse
	actionErr    error
	revokeCalls  []string
}

func (p *fakeProvider) GenerateVerifier() string { return "verifier-1" }

func (p *fakeProvider) AuthURL(state, verifier string) string {
	return "https://twitter.test/i/oauth2/authorize?state=" + state + "&code_challenge_method=S256"
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*domain.TokenPair, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	pair := p.exchanged
	return &pair, nil
}

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (*domain.TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	pair := p.refreshed
	return &pair, nil
}

func (p *fakeProvider) Revoke(_ context.Context, accessToken string) (*port.RevokeResult, error) {
	p.revokeCalls = append(p.revokeCalls, accessToken)
	return &port.RevokeResult{Revoked: true, Raw: json.RawMessage(`{"revoked":true}`)}, nil
}

func (p *fakeProvider) Client(_ context.Context, accessToken string) port.TwitterClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = append(p.clients, accessToken)
	return &fakeClient{p: p}
}

type fakeClient struct {
	p *fakeProvider
}

func (c *fakeClient) Me(context.Context) (*domain.Profile, error) {
	if c.p.meErr != nil {
		return nil, c.p.meErr
	}
	profile := c.p.profile
	return &profile, nil
}

func (c *fakeClient) Like(context.Context, string, string) (*port.ActionResponse, error) {
	if c.p.actionErr != nil {
		return nil, c.p.actionErr
	}
	return c.p.likeResp, nil
}

func (c *fakeClient) Retweet(ctx context.Context, userID, tweetID string) (*port.ActionResponse, error) {
	return c.Like(ctx, userID, tweetID)
}

// memStore implements port.UserStore and port.ActionStore in memory.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	actions   []domain.UserAction
	updateErr error
	actionErr error
	lookupErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*domain.User{}}
}

func (m *memStore) UpsertUser(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.TwitterID]; ok {
		u.ID = existing.ID
	} else {
		u.ID = uuid.NewString()
	}
	cp := *u
	m.users[u.TwitterID] = &cp
	return &cp, nil
}

func (m *memStore) GetUserByTwitterID(_ context.Context, twitterID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	u, ok := m.users[twitterID]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdateUserTokens(_ context.Context, twitterID string, tokens domain.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[twitterID]
	if !ok {
		return port.ErrUserNotFound
	}
	u.AccessToken, u.RefreshToken, u.ExpiresAt = tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt
	return nil
}

func (m *memStore) CreateAction(_ context.Context, a *domain.UserAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actionErr != nil {
		return m.actionErr
	}
	a.ID = uuid.NewString()
	m.actions = append(m.actions, *a)
	return nil
}

func (m *memStore) ActionStats(_ context.Context, userID string) (*domain.ActionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st domain.ActionStats
	for _, a := range m.actions {
		if a.UserID != userID {
			continue
		}
		st.TotalActions++
		if a.Action == domain.ActionLike {
			st.Likes++
		} else {
			st.Retweets++
		}
		if a.Success {
			st.Successful++
		} else {
			st.Failed++
		}
	}
	return &st, nil
}

func (m *memStore) ListActions(_ context.Context, userID string, limit int) ([]domain.UserAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.UserAction{}
	for i := len(m.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if m.actions[i].UserID == userID {
			out = append(out, m.actions[i])
		}
	}
	return out, nil
}

// providerError mimics an API error carrying the provider payload.
type providerError struct {
	body string
}

func (e *providerError) Error() string { return fmt.Sprintf("twitter api: %s", e.body) }
func (e *providerError) Payload() json.RawMessage { return json.RawMessage(e.body) }

var errDB = errors.New("connection refused")
