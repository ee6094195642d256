package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/common"
)

const (
	defaultRefreshMargin = 60 * time.Second
	defaultHTTPTimeout   = 12 * time.Second
)

// HTTPAuthClient talks to the hosted auth REST API (/auth/v1).
type HTTPAuthClient struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	refreshMargin time.Duration
	now           func() time.Time

	mu       sync.Mutex
	session  *models.Session
	verified bool

	// refreshMu serializes token refreshes so a refresh token is spent once.
	refreshMu sync.Mutex

	listeners listeners
}

type AuthOption func(*HTTPAuthClient)

func WithHTTPClient(c *http.Client) AuthOption {
	return func(a *HTTPAuthClient) { a.httpClient = c }
}

// WithRefreshMargin sets how long before expiry the access token is refreshed.
func WithRefreshMargin(d time.Duration) AuthOption {
	return func(a *HTTPAuthClient) { a.refreshMargin = d }
}

func WithClock(now func() time.Time) AuthOption {
	return func(a *HTTPAuthClient) { a.now = now }
}

func NewHTTPAuthClient(baseURL, apiKey string, opts ...AuthOption) *HTTPAuthClient {
	c := &HTTPAuthClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		refreshMargin: defaultRefreshMargin,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var (
	_ AuthService     = (*HTTPAuthClient)(nil)
	_ SessionRestorer = (*HTTPAuthClient)(nil)
)

type userDTO struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userDTO) identity() models.Identity {
	return models.Identity{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt, Metadata: u.UserMetadata}
}

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         *userDTO `json:"user"`
}

// signUpResponse is a token response when the project auto-confirms, or a
// bare user object when email confirmation is pending.
type signUpResponse struct {
	tokenResponse
	userDTO
}

func (c *HTTPAuthClient) toSession(tr tokenResponse) *models.Session {
	s := &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	default:
		s.ExpiresAt = tokenExpiry(tr.AccessToken)
	}
	if tr.User != nil {
		s.User = tr.User.identity()
	}
	if s.User.ID == "" {
		if claims, err := ParseAccessToken(tr.AccessToken); err == nil {
			s.User.ID = claims.Subject
			s.User.Email = claims.Email
		}
	}
	return s
}

func (c *HTTPAuthClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapTransportError(err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return mapHTTPError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", common.ErrUnknown, err)
		}
	}
	return nil
}

func (c *HTTPAuthClient) tokenGrant(ctx context.Context, grant string, in any) (*models.Session, error) {
	var tr tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grant, "", in, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access token", common.ErrUnknown)
	}
	return c.toSession(tr), nil
}

// install makes s current and notifies listeners.
func (c *HTTPAuthClient) install(s *models.Session, ev models.AuthEventType) {
	c.mu.Lock()
	c.session = s
	c.verified = true
	c.mu.Unlock()

	c.listeners.emit(models.AuthEvent{Type: ev, Session: cloneSession(s)})
}

// drop clears the session if it is still stale and emits SignedOut.
func (c *HTTPAuthClient) drop(stale *models.Session) {
	c.mu.Lock()
	if c.session != stale {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.verified = false
	c.mu.Unlock()

	c.listeners.emit(models.AuthEvent{Type: models.SignedOut})
}

func (c *HTTPAuthClient) current() (*models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.verified
}

// GetCurrentSession returns the live session. A restored session is checked
// against the API once; an expiring one is refreshed first. A rejected
// refresh token ends the session and yields (nil, nil).
func (c *HTTPAuthClient) GetCurrentSession(ctx context.Context) (*models.Session, error) {
	s, verified := c.current()
	if s == nil {
		return nil, nil
	}
	if s.ExpiresWithin(c.now(), c.refreshMargin) {
		return c.refresh(ctx, s)
	}
	if verified {
		return cloneSession(s), nil
	}

	var u userDTO
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", s.AccessToken, nil, &u)
	if errors.Is(err, common.ErrNotAuthenticated) {
		return c.refresh(ctx, s)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session == s {
		c.session.User = u.identity()
		c.verified = true
	}
	out := cloneSession(c.session)
	c.mu.Unlock()
	return out, nil
}

// AccessToken returns the bearer token of the held session, refreshing it
// when it is about to expire. It returns "" when no session is held.
func (c *HTTPAuthClient) AccessToken(ctx context.Context) (string, error) {
	s, _ := c.current()
	if s == nil {
		return "", nil
	}
	if s.ExpiresWithin(c.now(), c.refreshMargin) {
		fresh, err := c.refresh(ctx, s)
		if err != nil || fresh == nil {
			return "", err
		}
		return fresh.AccessToken, nil
	}
	return s.AccessToken, nil
}

func (c *HTTPAuthClient) refresh(ctx context.Context, stale *models.Session) (*models.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if cur, _ := c.current(); cur != stale {
		return cloneSession(cur), nil
	}
	if stale.RefreshToken == "" {
		c.drop(stale)
		return nil, nil
	}

	s, err := c.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": stale.RefreshToken})
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) || errors.Is(err, common.ErrNotAuthenticated) {
			c.drop(stale)
			return nil, nil
		}
		return nil, err
	}
	c.install(s, models.TokenRefreshed)
	return cloneSession(s), nil
}

func (c *HTTPAuthClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	s, err := c.tokenGrant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	c.install(s, models.SignedIn)
	return cloneSession(s), nil
}

func (c *HTTPAuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.SignUpResult, error) {
	in := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		in["data"] = metadata
	}

	var resp signUpResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", in, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		s := c.toSession(resp.tokenResponse)
		c.install(s, models.SignedIn)
		return &models.SignUpResult{Identity: s.User, Session: cloneSession(s)}, nil
	}
	if resp.userDTO.ID == "" {
		return nil, fmt.Errorf("%w: sign-up response without user", common.ErrUnknown)
	}
	return &models.SignUpResult{Identity: resp.userDTO.identity()}, nil
}

// SignOut revokes the session server-side. The local session is dropped even
// when the call fails; an already-ended session is not an error.
func (c *HTTPAuthClient) SignOut(ctx context.Context) error {
	s, _ := c.current()
	if s == nil {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", s.AccessToken, nil, nil)
	c.drop(s)

	if errors.Is(err, common.ErrNotAuthenticated) || errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// RestoreSession seeds the client with a persisted session without emitting
// an event. It is validated on the next GetCurrentSession.
func (c *HTTPAuthClient) RestoreSession(s *models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = cloneSession(s)
	c.verified = false
}

func (c *HTTPAuthClient) Subscribe(fn func(models.AuthEvent)) Subscription {
	return c.listeners.add(fn)
}

func cloneSession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
