package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/middleware"
	"github.com/arturoeanton/twitter-action-broker/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	frontendURL string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Register sets up auth routes. guard protects revoke and verify.
func (h *AuthHandler) Register(router fiber.Router, guard fiber.Handler) {
	auth := router.Group("/auth")
	auth.Get("/login", h.Login)
	auth.Get("/callback", h.Callback)
	auth.Post("/revoke", guard, h.Revoke)
	auth.Get("/verify", guard, h.Verify)
}

// Login returns the authorization URL; the caller redirects the browser.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	authURL, err := h.authService.LoginURL()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"authUrl": authURL})
}

// Callback completes the flow and hands the tokens to the front end.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	user, tokens, err := h.authService.HandleCallback(c.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		return err
	}
	middleware.SetAuditAction(c, domain.AuditActionLogin)

	q := url.Values{}
	q.Set("accessToken", tokens.AccessToken)
	q.Set("refreshToken", tokens.RefreshToken)
	if tokens.ExpiresAt != nil {
		q.Set("expiresAt", strconv.FormatInt(*tokens.ExpiresAt, 10))
	}
	q.Set("twitterId", user.TwitterID)
	q.Set("username", user.Username)
	q.Set("name", user.Name)
	q.Set("profileImage", user.ProfileImage)

	return c.Redirect().Status(fiber.StatusFound).To(h.frontendURL + "/auth/callback?" + q.Encode())
}

// Revoke invalidates the caller's access token at the provider.
func (h *AuthHandler) Revoke(c fiber.Ctx) error {
	res, err := h.authService.Revoke(c.Context(), middleware.GetSession(c))
	if err != nil {
		return err
	}
	middleware.SetAuditAction(c, domain.AuditActionRevoke)

	return c.JSON(withTokens(c, fiber.Map{
		"success":  res.Revoked,
		"response": res.Raw,
	}))
}

// Verify returns the provider's current view of the caller.
func (h *AuthHandler) Verify(c fiber.Ctx) error {
	profile, err := h.authService.Verify(c.Context(), middleware.GetSession(c))
	if err != nil {
		return err
	}
	return c.JSON(withTokens(c, fiber.Map{"user": profile}))
}
