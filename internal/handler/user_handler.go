package handler

import (
	"strconv"

	"github.com/arturoeanton/twitter-action-broker/internal/middleware"
	"github.com/arturoeanton/twitter-action-broker/internal/service"
	"github.com/gofiber/fiber/v3"
)

// UserHandler exposes the caller's action log.
type UserHandler struct {
	stats *service.StatsService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(stats *service.StatsService) *UserHandler {
	return &UserHandler{stats: stats}
}

// Register sets up user routes behind guard.
func (h *UserHandler) Register(router fiber.Router, guard fiber.Handler) {
	user := router.Group("/user", guard)
	user.Get("/stats", h.Stats)
	user.Get("/actions", h.ListActions)
}

// Stats returns aggregated counters for the caller.
func (h *UserHandler) Stats(c fiber.Ctx) error {
	user, stats, err := h.stats.Stats(c.Context(), middleware.GetSession(c))
	if err != nil {
		return err
	}
	return c.JSON(withTokens(c, fiber.Map{
		"user":  user,
		"stats": stats,
	}))
}

// ListActions returns the caller's most recent actions.
func (h *UserHandler) ListActions(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(service.DefaultActionsLimit)))

	actions, err := h.stats.RecentActions(c.Context(), middleware.GetSession(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(withTokens(c, fiber.Map{
		"actions": actions,
		"count":   len(actions),
	}))
}
