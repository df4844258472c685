package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/topspinj/find-my-daycare/internal/adapters/observability"
	"github.com/topspinj/find-my-daycare/internal/domain"
)

const (
	// DefaultBase is the Google Maps web-service root.
	DefaultBase = "https://maps.googleapis.com/maps/api"

	// matrixBatchSize is the Distance Matrix destination limit per request.
	matrixBatchSize = 25
)

var (
	ErrNoMatch        = errors.New("googlemaps: address not found")
	ErrNoPreciseMatch = errors.New("googlemaps: no precise street-level match in Toronto")
)

// Client wraps the Geocoding and Distance Matrix web services.
type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = DefaultBase
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Geocode resolves a Toronto-area street address. Vague matches are rejected:
// only ROOFTOP and RANGE_INTERPOLATED results with a Toronto locality and a
// street-level component are accepted.
func (c *Client) Geocode(ctx context.Context, address string) (domain.OriginPoint, error) {
	if !strings.Contains(strings.ToLower(address), "toronto") {
		address += ", Toronto, Ontario, Canada"
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.key)

	var resp geocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", q, &resp); err != nil {
		return domain.OriginPoint{}, err
	}
	if resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 {
		return domain.OriginPoint{}, ErrNoMatch
	}
	if resp.Status != "OK" {
		return domain.OriginPoint{}, fmt.Errorf("googlemaps: geocode status %s", resp.Status)
	}

	best := resp.Results[0]
	switch best.Geometry.LocationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
	default:
		return domain.OriginPoint{}, ErrNoPreciseMatch
	}

	var inToronto, hasStreet bool
	for _, comp := range best.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality":
				if strings.Contains(strings.ToLower(comp.LongName), "toronto") {
					inToronto = true
				}
			case "street_number", "route":
				hasStreet = true
			}
		}
	}
	if !inToronto || !hasStreet {
		return domain.OriginPoint{}, ErrNoPreciseMatch
	}

	return domain.OriginPoint{Lat: best.Geometry.Location.Lat, Lon: best.Geometry.Location.Lng}, nil
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Durations returns one duration string per destination for the given mode,
// batching at the service's 25-destination limit. A failed batch degrades to
// "N/A" entries rather than failing the whole lookup; only context
// cancellation aborts early.
func (c *Client) Durations(ctx context.Context, origin domain.OriginPoint, dests []domain.OriginPoint, mode domain.TravelMode) ([]string, error) {
	out := make([]string, 0, len(dests))
	for start := 0; start < len(dests); start += matrixBatchSize {
		end := start + matrixBatchSize
		if end > len(dests) {
			end = len(dests)
		}
		batch := dests[start:end]

		times, err := c.matrixBatch(ctx, origin, batch, mode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			times = make([]string, len(batch))
			for i := range times {
				times[i] = "N/A"
			}
		}
		out = append(out, times...)
	}
	return out, nil
}

func (c *Client) matrixBatch(ctx context.Context, origin domain.OriginPoint, dests []domain.OriginPoint, mode domain.TravelMode) ([]string, error) {
	parts := make([]string, len(dests))
	for i, d := range dests {
		parts[i] = fmt.Sprintf("%f,%f", d.Lat, d.Lon)
	}

	q := url.Values{}
	q.Set("origins", fmt.Sprintf("%f,%f", origin.Lat, origin.Lon))
	q.Set("destinations", strings.Join(parts, "|"))
	q.Set("mode", string(mode))
	q.Set("units", "metric")
	q.Set("key", c.key)

	var resp matrixResponse
	if err := c.getJSON(ctx, "/distancematrix/json", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Rows) == 0 {
		return nil, fmt.Errorf("googlemaps: matrix status %s", resp.Status)
	}

	els := resp.Rows[0].Elements
	out := make([]string, len(dests))
	for i := range out {
		if i < len(els) && els[i].Status == "OK" && els[i].Duration.Text != "" {
			out[i] = els[i].Duration.Text
		} else {
			out[i] = "N/A"
		}
	}
	return out, nil
}

// getJSON performs a rate-limited GET with one retry on transient 5xx/429.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.base + path
	var lastErr error
	for i := 0; i < 2; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		observability.ObserveExternal("googlemaps", path, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			resp.Body.Close()
			lastErr = fmt.Errorf("googlemaps: remote %d", resp.StatusCode)
			continue
		default:
			resp.Body.Close()
			return fmt.Errorf("googlemaps: bad status %d", resp.StatusCode)
		}
	}
	return lastErr
}
