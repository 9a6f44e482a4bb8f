package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
)

// ActionResult is what a like or retweet reports back to the client.
// Success is the provider's literal flag; Data is its payload, error or not.
type ActionResult struct {
	Success bool
	Data    json.RawMessage
}

// payloadError is an error that carries the provider's own response body.
type payloadError interface {
	Payload() json.RawMessage
}

// TweetService proxies write actions to Twitter and logs their outcome.
type TweetService struct {
	users   port.UserStore
	actions port.ActionStore
}

// NewTweetService creates a new tweet service.
func NewTweetService(users port.UserStore, actions port.ActionStore) *TweetService {
	return &TweetService{users: users, actions: actions}
}

// Like makes the session owner like tweetID.
func (s *TweetService) Like(ctx context.Context, sess *Session, tweetID string) (*ActionResult, error) {
	return s.perform(ctx, sess, domain.ActionLike, tweetID)
}

// Retweet makes the session owner retweet tweetID.
func (s *TweetService) Retweet(ctx context.Context, sess *Session, tweetID string) (*ActionResult, error) {
	return s.perform(ctx, sess, domain.ActionRetweet, tweetID)
}

func (s *TweetService) perform(ctx context.Context, sess *Session, action, tweetID string) (*ActionResult, error) {
	tweetID = strings.TrimSpace(tweetID)
	if tweetID == "" {
		return nil, port.Validation("tweetId is required")
	}

	profile, err := me(ctx, sess)
	if err != nil {
		return nil, err
	}

	var resp *port.ActionResponse
	switch action {
	case domain.ActionLike:
		resp, err = sess.Client.Like(ctx, profile.ID, tweetID)
	case domain.ActionRetweet:
		resp, err = sess.Client.Retweet(ctx, profile.ID, tweetID)
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}

	result := &ActionResult{}
	if err != nil {
		// Provider failures are an outcome, not a request failure.
		slog.Warn("tweet action failed", "action", action, "tweet_id", tweetID, "twitter_id", profile.ID, "error", err)
		result.Data = failurePayload(err)
	} else {
		result.Success = resp.Done
		result.Data = resp.Raw
	}

	if err := s.record(ctx, profile.ID, action, tweetID, result.Success); err != nil {
		return nil, err
	}
	return result, nil
}

// record appends the outcome when the acting account has a local row.
func (s *TweetService) record(ctx context.Context, twitterID, action, tweetID string, success bool) error {
	user, err := s.users.GetUserByTwitterID(ctx, twitterID)
	if errors.Is(err, port.ErrUserNotFound) {
		slog.Debug("action not logged, no local user", "twitter_id", twitterID, "action", action)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	return s.actions.CreateAction(ctx, &domain.UserAction{
		UserID:  user.ID,
		TweetID: tweetID,
		Action:  action,
		Success: success,
	})
}

func failurePayload(err error) json.RawMessage {
	var pe payloadError
	if errors.As(err, &pe) {
		return pe.Payload()
	}
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return b
}
