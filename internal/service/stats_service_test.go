package service

import (
	"context"
	"testing"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsIsIdempotent(t *testing.T) {
	store, user := seededStore(t)
	for i, a := range []domain.UserAction{
		{Action: domain.ActionLike, Success: true},
		{Action: domain.ActionLike, Success: false},
		{Action: domain.ActionRetweet, Success: true},
	} {
		a.UserID = user.ID
		a.TweetID = string(rune('a' + i))
		require.NoError(t, store.CreateAction(context.Background(), &a))
	}

	p := &fakeProvider{profile: domain.Profile{ID: "42"}}
	svc := NewStatsService(store, store)

	u, first, err := svc.Stats(context.Background(), session(p))
	require.NoError(t, err)
	assert.Equal(t, user.ID, u.ID)
	assert.Equal(t, domain.ActionStats{TotalActions: 3, Likes: 2, Retweets: 1, Successful: 2, Failed: 1}, *first)

	_, second, err := svc.Stats(context.Background(), session(p))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStatsUnknownUser(t *testing.T) {
	store := newMemStore()
	p := &fakeProvider{profile: domain.Profile{ID: "404"}}

	_, _, err := NewStatsService(store, store).Stats(context.Background(), session(p))
	assert.ErrorIs(t, err, port.ErrUserNotFound)
}

func TestRecentActionsLimit(t *testing.T) {
	store, user := seededStore(t)
	for i := 0; i < MaxActionsLimit+10; i++ {
		require.NoError(t, store.CreateAction(context.Background(), &domain.UserAction{UserID: user.ID, TweetID: "t", Action: domain.ActionLike}))
	}
	p := &fakeProvider{profile: domain.Profile{ID: "42"}}
	svc := NewStatsService(store, store)

	for limit, want := range map[int]int{0: DefaultActionsLimit, -3: DefaultActionsLimit, 5: 5, 10_000: MaxActionsLimit} {
		actions, err := svc.RecentActions(context.Background(), session(p), limit)
		require.NoError(t, err)
		assert.Len(t, actions, want, "limit %d", limit)
	}
}
