package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/topspinj/find-my-daycare/internal/adapters/googlemaps"
	httpserver "github.com/topspinj/find-my-daycare/internal/adapters/http_server"
	"github.com/topspinj/find-my-daycare/internal/app"
	"github.com/topspinj/find-my-daycare/internal/domain"
)

// ---- fakes ----

type fakeGeocoder struct {
	pt  domain.OriginPoint
	err error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.OriginPoint, error) {
	return f.pt, f.err
}

type fakeTravel struct{}

func (fakeTravel) Durations(ctx context.Context, origin domain.OriginPoint, dests []domain.OriginPoint, mode domain.TravelMode) ([]string, error) {
	out := make([]string, len(dests))
	for i := range out {
		out[i] = "9 mins"
	}
	return out, nil
}

type fakeRepo struct {
	tag     string
	records []domain.DaycareRecord
}

func (f *fakeRepo) ReplaceSnapshot(ctx context.Context, tag string, records []domain.DaycareRecord) error {
	f.tag, f.records = tag, records
	return nil
}

func (f *fakeRepo) ListAll(ctx context.Context) (string, []domain.DaycareRecord, error) {
	return f.tag, f.records, nil
}

type memCache struct{ store map[string][]byte }

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, _ := json.Marshal(v)
	c.store[key] = b
	return nil
}

func (c *memCache) Del(ctx context.Context, key string) error { delete(c.store, key); return nil }

// ---- fixture ----

func testRecord() domain.DaycareRecord {
	return domain.DaycareRecord{
		ID: "1001", Name: "Queen St Daycare", Address: "100 Queen St W",
		Lat: 43.6532, Lon: -79.3832,
		ToddlerSpaces: 5, TotalSpaces: 15, CWELCC: true,
	}
}

func newTestServer(t *testing.T, geoErr error, loaded bool) (*httptest.Server, *fakeRepo, *app.Catalog) {
	t.Helper()

	cat := app.NewCatalog()
	if loaded {
		if err := cat.Replace("v1", []domain.DaycareRecord{testRecord()}); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}
	geo := &fakeGeocoder{pt: domain.OriginPoint{Lat: 43.6532, Lon: -79.3832}, err: geoErr}
	search := app.NewSearchService(cat, geo, fakeTravel{}, &memCache{}, time.Minute)
	repo := &fakeRepo{}

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{S: search, Catalog: cat, Repo: repo})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, repo, cat
}

func toddlerBirthday() string {
	return time.Now().AddDate(0, -20, 0).Format("2006-01-02")
}

// ---- tests ----

func TestSearchEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, nil, true)

	resp, err := http.Get(ts.URL + "/v1/daycares/search?address=100+Queen+St+W&birthday=" + toddlerBirthday())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if resp.Header.Get("ETag") == "" {
		t.Fatalf("expected ETag header")
	}

	var out app.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID != "1001" {
		t.Fatalf("results: %+v", out.Results)
	}
	if out.Results[0].Travel.Walk != "9 mins" {
		t.Fatalf("travel: %+v", out.Results[0].Travel)
	}
	if out.RadiusKm != app.DefaultRadiusKm {
		t.Fatalf("default radius: %g", out.RadiusKm)
	}
	if out.Stats.Total != 1 {
		t.Fatalf("stats: %+v", out.Stats)
	}
}

func TestSearchEndpoint_BadInput(t *testing.T) {
	ts, _, _ := newTestServer(t, nil, true)

	cases := []string{
		"/v1/daycares/search?address=x",                                            // missing birthday
		"/v1/daycares/search?address=x&birthday=01-02-2024",                        // bad format
		"/v1/daycares/search?address=x&birthday=" + toddlerBirthday() + "&radius_km=oops", // bad radius
		"/v1/daycares/search?address=x&birthday=" + toddlerBirthday() + "&radius_km=-1",   // negative radius
		"/v1/daycares/search?birthday=" + toddlerBirthday(),                        // missing address
	}
	for _, path := range cases {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: content type %s", path, ct)
		}
	}
}

func TestSearchEndpoint_ImpreciseAddress(t *testing.T) {
	ts, _, _ := newTestServer(t, googlemaps.ErrNoPreciseMatch, true)

	resp, err := http.Get(ts.URL + "/v1/daycares/search?address=Queen+St&birthday=" + toddlerBirthday())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d, want 422", resp.StatusCode)
	}
}

func TestNearbyEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, nil, true)

	resp, err := http.Get(ts.URL + "/v1/daycares/nearby?lat=43.6532&lon=-79.3832&birthday=" + toddlerBirthday())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	var out struct {
		Results []domain.NearbyResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].DistanceKm != 0 {
		t.Fatalf("results: %+v", out.Results)
	}
	// The coordinate surface does no travel-time enrichment.
	if out.Results[0].Travel.Walk != "" {
		t.Fatalf("unexpected travel enrichment: %+v", out.Results[0].Travel)
	}
}

func TestNearbyEndpoint_EmptyResultIsNotAnError(t *testing.T) {
	ts, _, _ := newTestServer(t, nil, true)

	// Infant search against a toddler-only centre.
	birthday := time.Now().AddDate(0, -6, 0).Format("2006-01-02")
	resp, err := http.Get(ts.URL + "/v1/daycares/nearby?lat=43.6532&lon=-79.3832&birthday=" + birthday)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var out struct {
		Results []domain.NearbyResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Results == nil || len(out.Results) != 0 {
		t.Fatalf("expected empty array, got %+v", out.Results)
	}
}

func TestNearbyEndpoint_CatalogNotLoaded(t *testing.T) {
	ts, _, _ := newTestServer(t, nil, false)

	resp, err := http.Get(ts.URL + "/v1/daycares/nearby?lat=43.6532&lon=-79.3832&birthday=" + toddlerBirthday())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: %d, want 503", resp.StatusCode)
	}
}

func TestReloadEndpoint(t *testing.T) {
	ts, repo, cat := newTestServer(t, nil, false)
	repo.tag = "v2"
	repo.records = []domain.DaycareRecord{testRecord()}

	resp, err := http.Post(ts.URL+"/v1/admin/reload", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	snap, err := cat.Snapshot()
	if err != nil {
		t.Fatalf("catalog still empty: %v", err)
	}
	if snap.Tag() != "v2" {
		t.Fatalf("tag: %s", snap.Tag())
	}
}

func TestSearchEndpoint_ETagRoundTrip(t *testing.T) {
	ts, _, _ := newTestServer(t, nil, true)
	url := ts.URL + "/v1/daycares/nearby?lat=43.6532&lon=-79.3832&birthday=" + toddlerBirthday()

	first, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.Body.Close()
	etag := first.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag")
	}

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	second, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusNotModified {
		t.Fatalf("status: %d, want 304", second.StatusCode)
	}
}
