package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TokenPair holds a provider access token, its refresh token and the access
// token expiry in epoch milliseconds. A nil ExpiresAt means "unknown".
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    *int64 `json:"expiresAt,omitempty"`
}

// Expired reports whether now is at or past the expiry. Unknown expiry never expires.
func (p TokenPair) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.UnixMilli() >= *p.ExpiresAt
}

// Credentials is the bearer credential a client presents on every protected call.
// TwitterID is optional; without it a refresh is not mirrored to the store.
type Credentials struct {
	TokenPair
	TwitterID string `json:"twitterId,omitempty"`
}

// Complete reports whether both tokens are present.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// ExpiryFromTime converts an oauth expiry to epoch milliseconds. Zero means unknown.
func ExpiryFromTime(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// ParseEpochMillis parses an expiry coming from JSON, a query string or a header.
// Blank and "null" yield nil. Float notation is accepted since browsers round-trip
// numbers through JavaScript.
func ParseEpochMillis(raw string) (*int64, error) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" || raw == "null" || raw == "undefined" {
		return nil, nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &n, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expiresAt %q", raw)
	}
	n := int64(f)
	return &n, nil
}
