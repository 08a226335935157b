package flipapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// ErrNoCredentials is returned when the API email or password is not
// configured. Callers surface this to the user rather than logging it
// away, since it blocks all derived functionality.
var ErrNoCredentials = errors.New("flipapi: email or password not configured")

// Tokens from the API expire in 7 days; refresh a day early.
const tokenLifetime = 6 * 24 * time.Hour

// TokenManager holds the JWT bearer token and refreshes it by logging in
// with email/password. The token and expiry are the one piece of mutable
// state shared across goroutines here, guarded by mu; concurrent refresh
// attempts (e.g. several 401s at once) coalesce through the singleflight
// group so at most one login is ever in flight.
type TokenManager struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

func NewTokenManager(baseURL, email, password string) *TokenManager {
	return &TokenManager{
		baseURL:  baseURL,
		email:    email,
		password: password,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Token returns a valid bearer token, logging in if the cached one is
// missing or expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.token != "" && time.Now().Before(m.expiry) {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	result, err, _ := m.group.Do("login", func() (any, error) {
		return m.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate clears the cached token, but only if it is still the one
// the caller saw fail — a refresh that already happened wins.
func (m *TokenManager) Invalidate(stale string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == stale {
		m.token = ""
		m.expiry = time.Time{}
	}
}

func (m *TokenManager) login(ctx context.Context) (string, error) {
	if m.email == "" || m.password == "" {
		return "", ErrNoCredentials
	}

	payload, err := json.Marshal(map[string]string{
		"email":    m.email,
		"password": m.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		telemetry.Metrics.AuthFailures.Inc()
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		telemetry.Metrics.AuthFailures.Inc()
		return "", fmt.Errorf("login rejected: incorrect email or password")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		telemetry.Metrics.AuthFailures.Inc()
		return "", fmt.Errorf("login failed: status=%d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("unmarshal login response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("login response missing access_token")
	}

	m.mu.Lock()
	m.token = tokenResp.AccessToken
	m.expiry = time.Now().Add(tokenLifetime)
	m.mu.Unlock()

	telemetry.Metrics.AuthRefreshes.Inc()
	telemetry.Infof("flipapi: authenticated")
	return tokenResp.AccessToken, nil
}
