package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
)

// Client implements port.TwitterClient on top of an oauth2 bearer HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-successful answer from the Twitter API. Body keeps the
// provider payload untouched so callers can hand it to the client.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	body := string(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("twitter api: status %d: %s", e.StatusCode, body)
}

// Is makes a 401 match port.ErrAuthenticationFailed.
func (e *APIError) Is(target error) bool {
	return target == port.ErrAuthenticationFailed && e.StatusCode == http.StatusUnauthorized
}

// Payload returns the provider body as JSON, quoting it when it is not JSON already.
func (e *APIError) Payload() json.RawMessage {
	if json.Valid(e.Body) {
		return e.Body
	}
	b, _ := json.Marshal(string(e.Body))
	return b
}

// Me fetches the authenticated account.
func (c *Client) Me(ctx context.Context) (*domain.Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/users/me?user.fields=profile_image_url", nil)
	if err != nil {
		return nil, fmt.Errorf("twitter: fetch me: %w", err)
	}

	var resp struct {
		Data domain.Profile `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("twitter: decode me: %w", err)
	}
	if resp.Data.ID == "" {
		return nil, errors.New("twitter: me returned no account")
	}
	return &resp.Data, nil
}

// Like makes userID like tweetID.
func (c *Client) Like(ctx context.Context, userID, tweetID string) (*port.ActionResponse, error) {
	return c.action(ctx, "/users/"+url.PathEscape(userID)+"/likes", tweetID, "liked")
}

// Retweet makes userID retweet tweetID.
func (c *Client) Retweet(ctx context.Context, userID, tweetID string) (*port.ActionResponse, error) {
	return c.action(ctx, "/users/"+url.PathEscape(userID)+"/retweets", tweetID, "retweeted")
}

func (c *Client) action(ctx context.Context, path, tweetID, flag string) (*port.ActionResponse, error) {
	body, err := c.do(ctx, http.MethodPost, path, map[string]string{"tweet_id": tweetID})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("twitter: decode %s response: %w", flag, err)
	}

	// A 200 without "data" carries only "errors" (e.g. deleted tweet).
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, &APIError{StatusCode: http.StatusOK, Body: body}
	}

	var fields map[string]any
	if err := json.Unmarshal(resp.Data, &fields); err != nil {
		return nil, fmt.Errorf("twitter: decode %s data: %w", flag, err)
	}
	done, _ := fields[flag].(bool)

	return &port.ActionResponse{Done: done, Raw: resp.Data}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return readBody(resp)
}

// readBody drains and closes resp, turning non-2xx answers into *APIError.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
