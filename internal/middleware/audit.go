package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/gofiber/fiber/v3"
)

const auditActionKey = "audit_action"

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(ctx context.Context, l domain.AuditLog) error
}

// Audit records every request asynchronously and tracks pending writes so
// they can be drained on shutdown.
type Audit struct {
	writer  AuditWriter
	pending sync.WaitGroup
}

// NewAudit creates an audit recorder.
func NewAudit(writer AuditWriter) *Audit {
	return &Audit{writer: writer}
}

// SetAuditAction overrides the audit action recorded for the current request.
func SetAuditAction(c fiber.Ctx, action string) {
	c.Locals(auditActionKey, action)
}

// Middleware logs every request for compliance purposes.
func (a *Audit) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get(fiber.HeaderUserAgent))

		err := c.Next()

		userID := "anonymous"
		action := domain.AuditActionRequest
		refreshed := false
		if sess := GetSession(c); sess != nil {
			if sess.TwitterID != "" {
				userID = sess.TwitterID
			}
			if sess.Refreshed != nil {
				refreshed = true
				action = domain.AuditActionRefresh
			}
		}
		if override, ok := c.Locals(auditActionKey).(string); ok && override != "" {
			action = override
		}

		// Render the error now so the recorded status is the one sent.
		if err != nil {
			if handlerErr := c.App().Config().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		details, _ := json.Marshal(map[string]any{
			"method":           method,
			"path":             path,
			"status":           c.Response().StatusCode(),
			"duration_ms":      time.Since(start).Milliseconds(),
			"tokens_refreshed": refreshed,
		})

		entry := domain.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   "api",
			ResourceID: path,
			Details:    string(details),
			IP:         ip,
			UserAgent:  userAgent,
		}

		a.pending.Add(1)
		go func() {
			defer a.pending.Done()
			if writeErr := a.writer.WriteAudit(context.Background(), entry); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return nil
	}
}

// Wait blocks until pending writes finish or ctx is done.
func (a *Audit) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
