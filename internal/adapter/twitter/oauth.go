package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL   = "https://twitter.com/i/oauth2/authorize"
	defaultTokenURL  = "https://api.twitter.com/2/oauth2/token"
	defaultRevokeURL = "https://api.twitter.com/2/oauth2/revoke"
	defaultAPIURL    = "https://api.twitter.com/2"
)

// ProviderConfig configures the Twitter OAuth 2.0 client. Empty URLs fall back
// to the production endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL   string
	TokenURL  string
	RevokeURL string
	APIURL    string
}

// Provider implements port.OAuthProvider for Twitter OAuth 2.0 with PKCE.
// It is built once at startup and shared by every request.
type Provider struct {
	oauth      oauth2.Config
	revokeURL  string
	apiURL     string
	httpClient *http.Client
}

// NewProvider creates a new Twitter OAuth provider.
func NewProvider(cfg ProviderConfig) *Provider {
	return NewProviderWithClient(cfg, &http.Client{})
}

// NewProviderWithClient creates a provider that sends every request through httpClient.
func NewProviderWithClient(cfg ProviderConfig, httpClient *http.Client) *Provider {
	// Confidential clients authenticate to the token endpoint with HTTP Basic;
	// public clients send client_id in the form.
	authStyle := oauth2.AuthStyleInParams
	if cfg.ClientSecret != "" {
		authStyle = oauth2.AuthStyleInHeader
	}

	return &Provider{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, defaultAuthURL),
				TokenURL:  orDefault(cfg.TokenURL, defaultTokenURL),
				AuthStyle: authStyle,
			},
		},
		revokeURL:  orDefault(cfg.RevokeURL, defaultRevokeURL),
		apiURL:     strings.TrimRight(orDefault(cfg.APIURL, defaultAPIURL), "/"),
		httpClient: httpClient,
	}
}

// GenerateVerifier returns a fresh PKCE code verifier.
func (p *Provider) GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthURL returns the consent screen URL with an S256 code challenge.
func (p *Provider) AuthURL(state, verifier string) string {
	return p.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// ExchangeCode exchanges an authorization code and its verifier for tokens.
func (p *Provider) ExchangeCode(ctx context.Context, code, verifier string) (*domain.TokenPair, error) {
	tok, err := p.oauth.Exchange(p.withHTTPClient(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("twitter: token exchange: %w", err)
	}
	return toTokenPair(tok, ""), nil
}

// Refresh runs the refresh grant exactly once.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	// An empty access token forces the token source to refresh.
	src := p.oauth.TokenSource(p.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("twitter: refresh token: %w", err)
	}
	return toTokenPair(tok, refreshToken), nil
}

// Revoke invalidates accessToken at the provider.
func (p *Provider) Revoke(ctx context.Context, accessToken string) (*port.RevokeResult, error) {
	form := url.Values{
		"token":           {accessToken},
		"token_type_hint": {"access_token"},
	}
	if p.oauth.ClientSecret == "" {
		form.Set("client_id", p.oauth.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("twitter: create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if p.oauth.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(p.oauth.ClientID), url.QueryEscape(p.oauth.ClientSecret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter: revoke: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("twitter: revoke: %w", err)
	}

	var out struct {
		Revoked bool `json:"revoked"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("twitter: decode revoke response: %w", err)
	}

	return &port.RevokeResult{Revoked: out.Revoked, Raw: body}, nil
}

// Client builds a per-request API handle that sends accessToken as a bearer token.
func (p *Provider) Client(ctx context.Context, accessToken string) port.TwitterClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &Client{
		baseURL:    p.apiURL,
		httpClient: oauth2.NewClient(p.withHTTPClient(ctx), src),
	}
}

func (p *Provider) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func toTokenPair(tok *oauth2.Token, previousRefresh string) *domain.TokenPair {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &domain.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    domain.ExpiryFromTime(tok.Expiry),
	}
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
