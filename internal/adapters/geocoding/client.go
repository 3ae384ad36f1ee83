// Package geocoding resolves postal addresses to coordinates through the
// Google Geocoding API.
package geocoding

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sneaker_hub/internal/adapters/observability"
	"sneaker_hub/internal/domain"
)

const DefaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

var (
	ErrNoResults = errors.New("geocoding: no results for address")
	ErrDenied    = errors.New("geocoding: request denied")
	ErrEmpty     = errors.New("geocoding: empty address")
)

type Client struct {
	endpoint string
	key      string
	hc       *http.Client
	rl       *rate.Limiter
	retries  int
}

// New builds a client for endpoint (DefaultEndpoint when empty).
func New(endpoint, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("geocoding API key is required")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		endpoint: endpoint,
		key:      key,
		hc:       &http.Client{Timeout: 10 * time.Second},
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
		retries:  3,
	}, nil
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location domain.Location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns the coordinates of the first match for address.
func (c *Client) Resolve(ctx context.Context, address string) (domain.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Location{}, ErrEmpty
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.key)
	u := c.endpoint + "?" + q.Encode()

	var out response
	if err := c.get(ctx, u, &out); err != nil {
		return domain.Location{}, err
	}

	switch out.Status {
	case "OK":
		if len(out.Results) == 0 {
			return domain.Location{}, ErrNoResults
		}
		return out.Results[0].Geometry.Location, nil
	case "ZERO_RESULTS":
		return domain.Location{}, ErrNoResults
	case "REQUEST_DENIED":
		return domain.Location{}, fmt.Errorf("%w: %s", ErrDenied, out.ErrorMessage)
	default:
		return domain.Location{}, fmt.Errorf("geocoding: status %s: %s", out.Status, out.ErrorMessage)
	}
}

// get is a rate limited GET that retries network errors, 429 and 5xx,
// honoring Retry-After when the server sends one.
func (c *Client) get(ctx context.Context, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "sneaker-hub/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("geocoder", "geocode", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if attempt < c.retries && sleepCtx(ctx, backoff(attempt)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("geocoder", "geocode", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decoding geocoding response: %w", err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(attempt)
			}
			lastErr = fmt.Errorf("geocoding: remote %d", resp.StatusCode)
			if attempt < c.retries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("geocoding: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After in seconds or HTTP-date form. 0 when absent.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to 50% jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<attempt) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(0.5*float64(b[0])/255.0*float64(base))
}
