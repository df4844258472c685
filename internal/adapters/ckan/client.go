package ckan

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

	"github.com/topspinj/find-my-daycare/internal/adapters/observability"
	"github.com/topspinj/find-my-daycare/internal/domain"
)

// Client talks to a CKAN open-data portal: package metadata via the action
// API, full record dumps via the datastore dump endpoint.
type Client struct {
	base      string
	packageID string
	hc        *http.Client
	rl        *rate.Limiter
}

func New(base, packageID string, rps int) (*Client, error) {
	if packageID == "" {
		return nil, fmt.Errorf("package id is required")
	}
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		packageID: packageID,
		hc:        &http.Client{Timeout: 60 * time.Second},
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type packageShowResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Resources []resource `json:"resources"`
	} `json:"result"`
}

type resource struct {
	ID              string `json:"id"`
	DatastoreActive bool   `json:"datastore_active"`
	LastModified    string `json:"last_modified"`
}

// FetchSnapshot downloads the latest active datastore resource of the
// configured package and parses it into daycare records. The returned tag is
// the resource ID plus its last-modified stamp, so two fetches of the same
// upstream version produce the same tag.
func (c *Client) FetchSnapshot(ctx context.Context) (string, []domain.DaycareRecord, error) {
	res, err := c.latestResource(ctx)
	if err != nil {
		return "", nil, err
	}

	dumpURL := fmt.Sprintf("%s/datastore/dump/%s", c.base, res.ID)
	body, err := c.get(ctx, dumpURL)
	if err != nil {
		return "", nil, fmt.Errorf("datastore dump %s: %w", res.ID, err)
	}
	defer body.Close()

	records, err := ParseSnapshot(body)
	if err != nil {
		return "", nil, err
	}

	tag := res.ID
	if res.LastModified != "" {
		tag += "@" + res.LastModified
	}
	return tag, records, nil
}

func (c *Client) latestResource(ctx context.Context) (resource, error) {
	u := fmt.Sprintf("%s/api/3/action/package_show?id=%s", c.base, url.QueryEscape(c.packageID))
	body, err := c.get(ctx, u)
	if err != nil {
		return resource{}, fmt.Errorf("package_show %s: %w", c.packageID, err)
	}
	defer body.Close()

	var resp packageShowResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return resource{}, fmt.Errorf("decode package_show: %w", err)
	}
	if !resp.Success {
		return resource{}, fmt.Errorf("package_show reported failure for %s", c.packageID)
	}
	for _, r := range resp.Result.Resources {
		if r.DatastoreActive {
			return r, nil
		}
	}
	return resource{}, fmt.Errorf("%w: package %s has no active datastore resource", domain.ErrDataUnavailable, c.packageID)
}

var ErrNotFound = errors.New("ckan: not found")

// get performs a GET with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After when provided. The caller owns the
// returned body.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json, text/csv")
		req.Header.Set("User-Agent", "find-my-daycare/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, lastErr
		}
		observability.ObserveExternal("ckan", req.URL.Path, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			return resp.Body, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, ErrNotFound

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
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

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if
// absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter from crypto/rand to stay concurrency-safe.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
