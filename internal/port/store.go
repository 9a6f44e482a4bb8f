package port

import (
	"context"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
)

// UserStore persists users and their latest token pair.
type UserStore interface {
	// UpsertUser inserts or updates a user keyed by twitter id.
	UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error)

	// GetUserByTwitterID returns ErrUserNotFound when no row matches.
	GetUserByTwitterID(ctx context.Context, twitterID string) (*domain.User, error)

	// UpdateUserTokens overwrites the stored token pair and bumps updated_at.
	UpdateUserTokens(ctx context.Context, twitterID string, tokens domain.TokenPair) error
}

// ActionStore persists the append-only action log.
type ActionStore interface {
	CreateAction(ctx context.Context, a *domain.UserAction) error
	ActionStats(ctx context.Context, userID string) (*domain.ActionStats, error)
	ListActions(ctx context.Context, userID string, limit int) ([]domain.UserAction, error)
}
