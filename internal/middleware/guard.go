package middleware

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/arturoeanton/twitter-action-broker/internal/service"
	"github.com/gofiber/fiber/v3"
)

const sessionKey = "session"

// Authenticator turns client-held credentials into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (*service.Session, error)
}

// credentialsBody mirrors the token pair fields a client posts. expiresAt is
// kept raw because clients send it as a number or as a string.
type credentialsBody struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    json.RawMessage `json:"expiresAt"`
	TwitterID    string          `json:"twitterId"`
}

// TokenGuard creates a Fiber middleware that authenticates the token pair of
// the request and injects the resulting session into the request locals.
func TokenGuard(auth Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		creds, err := ExtractCredentials(c)
		if err != nil {
			return err
		}

		sess, err := auth.Authenticate(c.Context(), creds)
		if err != nil {
			return err
		}

		c.Locals(sessionKey, sess)
		return c.Next()
	}
}

// GetSession extracts the session from Fiber locals.
func GetSession(c fiber.Ctx) *service.Session {
	s, ok := c.Locals(sessionKey).(*service.Session)
	if !ok {
		return nil
	}
	return s
}

// ExtractCredentials reads the token pair from the JSON body, then fills the
// missing fields from the query string and finally from headers.
func ExtractCredentials(c fiber.Ctx) (domain.Credentials, error) {
	var creds domain.Credentials
	var body credentialsBody

	if raw := c.Body(); len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return creds, port.Validation("invalid JSON body")
		}
	}

	creds.AccessToken = firstNonEmpty(body.AccessToken, c.Query("accessToken"), bearer(c.Get(fiber.HeaderAuthorization)))
	creds.RefreshToken = firstNonEmpty(body.RefreshToken, c.Query("refreshToken"), c.Get("X-Refresh-Token"))
	creds.TwitterID = firstNonEmpty(body.TwitterID, c.Query("twitterId"), c.Get("X-Twitter-Id"))

	expiresAt, err := domain.ParseEpochMillis(string(body.ExpiresAt))
	if err == nil && expiresAt == nil {
		expiresAt, err = domain.ParseEpochMillis(firstNonEmpty(c.Query("expiresAt"), c.Get("X-Expires-At")))
	}
	if err != nil {
		return creds, port.Validation(err.Error())
	}
	creds.ExpiresAt = expiresAt

	return creds, nil
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
