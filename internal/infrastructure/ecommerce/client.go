package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/marketplace"
	"golang.org/x/time/rate"
)

// maxResponseSize is the maximum allowed response size from a marketplace API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// client is the HTTP transport shared by the adapters. It paces requests
// and turns transport failures and HTTP statuses into marketplace errors.
type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	authorize  func(req *http.Request)
}

func newClient(cfg *Config, authorize func(req *http.Request)) *client {
	return &client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
		authorize:  authorize,
	}
}

// response is a successful round trip.
type response struct {
	body   []byte
	header http.Header
}

// do sends one request. body, when non-nil, is sent as JSON.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body any) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &marketplace.FetchError{Kind: marketplace.ErrUnreachable, Err: err}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ecommerce: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("ecommerce: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &marketplace.FetchError{Kind: marketplace.ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &marketplace.FetchError{Kind: marketplace.ErrUnreachable, StatusCode: resp.StatusCode, Err: err}
	}
	if kind := marketplace.ClassifyStatus(resp.StatusCode); kind != nil {
		return nil, &marketplace.FetchError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        errors.New(snippet(payload)),
		}
	}
	return &response{body: payload, header: resp.Header}, nil
}

// getJSON issues a GET and decodes the body into out.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if err := decode(resp.body, out); err != nil {
		return nil, err
	}
	return resp.header, nil
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return marketplace.ErrMalformedPayload.WithDetails("%v", err)
	}
	return nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	if s == "" {
		return "empty response"
	}
	return s
}
