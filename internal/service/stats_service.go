package service

import (
	"context"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
)

// Page bounds for recent actions.
const (
	DefaultActionsLimit = 50
	MaxActionsLimit     = 200
)

// StatsService reads the action log of the session owner.
type StatsService struct {
	users   port.UserStore
	actions port.ActionStore
}

// NewStatsService creates a new stats service.
func NewStatsService(users port.UserStore, actions port.ActionStore) *StatsService {
	return &StatsService{users: users, actions: actions}
}

// Stats returns the local user and its aggregated counters.
// port.ErrUserNotFound when the account never logged in.
func (s *StatsService) Stats(ctx context.Context, sess *Session) (*domain.User, *domain.ActionStats, error) {
	user, err := s.owner(ctx, sess)
	if err != nil {
		return nil, nil, err
	}

	stats, err := s.actions.ActionStats(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, stats, nil
}

// RecentActions returns up to limit actions, newest first. limit is clamped
// to [1, MaxActionsLimit], zero or less meaning DefaultActionsLimit.
func (s *StatsService) RecentActions(ctx context.Context, sess *Session, limit int) ([]domain.UserAction, error) {
	switch {
	case limit <= 0:
		limit = DefaultActionsLimit
	case limit > MaxActionsLimit:
		limit = MaxActionsLimit
	}

	user, err := s.owner(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.actions.ListActions(ctx, user.ID, limit)
}

func (s *StatsService) owner(ctx context.Context, sess *Session) (*domain.User, error) {
	profile, err := me(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByTwitterID(ctx, profile.ID)
}
