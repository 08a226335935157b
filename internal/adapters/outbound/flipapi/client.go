package flipapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// Client talks to the Flip API over JSON/HTTPS with bearer-token auth.
// All calls are safe for concurrent use from background goroutines; the
// tick-processing path never calls it synchronously.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	auth         *TokenManager
	readLimiter  *rate.Limiter
	writeLimiter *rate.Limiter
}

func NewClient(baseURL string, auth *TokenManager, read, write *rate.Limiter) *Client {
	if read == nil {
		read = rate.NewLimiter(rate.Limit(5), 10)
	}
	if write == nil {
		write = rate.NewLimiter(rate.Limit(2), 5)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		auth:         auth,
		readLimiter:  read,
		writeLimiter: write,
	}
}

// do issues one authenticated request and decodes the response into out
// (skipped when out is nil). A 401 invalidates the token and replays the
// request exactly once after a coalesced refresh; the business call is
// never retried beyond that.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	lim := c.readLimiter
	if method != http.MethodGet {
		lim = c.writeLimiter
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	respBody, status, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		stale, _ := c.auth.Token(ctx)
		c.auth.Invalidate(stale)
		if _, err := c.auth.Token(ctx); err != nil {
			return fmt.Errorf("re-authenticate after 401: %w", err)
		}
		respBody, status, err = c.roundTrip(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return fmt.Errorf("%s %s: status=%d body=%s", method, path, status, truncate(respBody, 200))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	telemetry.Metrics.APILatency.Record(time.Since(start))
	telemetry.Debugf("flipapi: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	return respBody, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
