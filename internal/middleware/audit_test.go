package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/service"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditLog
	release chan struct{}
}

func (m *memAudit) WriteAudit(_ context.Context, l domain.AuditLog) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, l)
	return nil
}

func TestAuditRecordsRequests(t *testing.T) {
	writer := &memAudit{}
	audit := NewAudit(writer)

	app := fiber.New()
	app.Use(audit.Middleware())
	app.Get("/api/health", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/refreshed", func(c fiber.Ctx) error {
		c.Locals(sessionKey, &service.Session{TwitterID: "42", Refreshed: &domain.TokenPair{AccessToken: "at-2"}})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/login", func(c fiber.Ctx) error {
		SetAuditAction(c, domain.AuditActionLogin)
		return fiber.NewError(fiber.StatusTeapot, "nope")
	})

	for _, path := range []string{"/api/health", "/api/refreshed", "/api/login"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, audit.Wait(ctx))

	byPath := map[string]domain.AuditLog{}
	for _, e := range writer.entries {
		byPath[e.ResourceID] = e
	}
	require.Len(t, byPath, 3)

	assert.Equal(t, "anonymous", byPath["/api/health"].UserID)
	assert.Equal(t, domain.AuditActionRequest, byPath["/api/health"].Action)

	assert.Equal(t, "42", byPath["/api/refreshed"].UserID)
	assert.Equal(t, domain.AuditActionRefresh, byPath["/api/refreshed"].Action)

	login := byPath["/api/login"]
	assert.Equal(t, domain.AuditActionLogin, login.Action)
	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(login.Details), &details))
	assert.EqualValues(t, fiber.StatusTeapot, details["status"])
}

func TestAuditWaitHonorsContext(t *testing.T) {
	writer := &memAudit{release: make(chan struct{})}
	audit := NewAudit(writer)

	app := fiber.New()
	app.Use(audit.Middleware())
	app.Get("/", func(c fiber.Ctx) error { return nil })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, audit.Wait(ctx), context.DeadlineExceeded)

	close(writer.release)
	require.NoError(t, audit.Wait(context.Background()))
	assert.Len(t, writer.entries, 1)
}

type mockAuditWriter struct {
	mock.Mock
}

func (m *mockAuditWriter) WriteAudit(ctx context.Context, l domain.AuditLog) error {
	return m.Called(ctx, l).Error(0)
}

func TestAuditWriteFailureDoesNotAffectResponse(t *testing.T) {
	writer := &mockAuditWriter{}
	writer.On("WriteAudit", mock.Anything, mock.MatchedBy(func(l domain.AuditLog) bool {
		return l.ResourceID == "/api/health" && l.Resource == "api"
	})).Return(errors.New("db down")).Once()

	audit := NewAudit(writer)
	app := fiber.New()
	app.Use(audit.Middleware())
	app.Get("/api/health", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, audit.Wait(context.Background()))
	writer.AssertExpectations(t)
}
