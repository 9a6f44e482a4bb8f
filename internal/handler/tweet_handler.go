package handler

import (
	"context"

	"github.com/arturoeanton/twitter-action-broker/internal/middleware"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/arturoeanton/twitter-action-broker/internal/service"
	"github.com/gofiber/fiber/v3"
)

// TweetHandler proxies like and retweet.
type TweetHandler struct {
	tweets *service.TweetService
}

// NewTweetHandler creates a new tweet handler.
func NewTweetHandler(tweets *service.TweetService) *TweetHandler {
	return &TweetHandler{tweets: tweets}
}

// Register sets up tweet routes behind guard.
func (h *TweetHandler) Register(router fiber.Router, guard fiber.Handler) {
	tweets := router.Group("/tweets", guard)
	tweets.Post("/like", h.Like)
	tweets.Post("/retweet", h.Retweet)
}

// Like makes the caller like a tweet.
func (h *TweetHandler) Like(c fiber.Ctx) error {
	return h.act(c, h.tweets.Like)
}

// Retweet makes the caller retweet a tweet.
func (h *TweetHandler) Retweet(c fiber.Ctx) error {
	return h.act(c, h.tweets.Retweet)
}

type actionFunc func(ctx context.Context, sess *service.Session, tweetID string) (*service.ActionResult, error)

func (h *TweetHandler) act(c fiber.Ctx, do actionFunc) error {
	var body struct {
		TweetID string `json:"tweetId"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return port.Validation("invalid request")
		}
	}
	if body.TweetID == "" {
		body.TweetID = c.Query("tweetId")
	}

	res, err := do(c.Context(), middleware.GetSession(c), body.TweetID)
	if err != nil {
		return err
	}

	return c.JSON(withTokens(c, fiber.Map{
		"success": res.Success,
		"data":    res.Data,
	}))
}
