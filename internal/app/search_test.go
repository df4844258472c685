package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/topspinj/find-my-daycare/internal/app"
	"github.com/topspinj/find-my-daycare/internal/domain"
)

// ---- fakes ----

type fakeGeocoder struct {
	pt    domain.OriginPoint
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.OriginPoint, error) {
	f.calls++
	return f.pt, f.err
}

type fakeTravel struct {
	walk, transit, drive string
	err                  error
	calls                int
}

func (f *fakeTravel) Durations(ctx context.Context, origin domain.OriginPoint, dests []domain.OriginPoint, mode domain.TravelMode) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var v string
	switch mode {
	case domain.ModeWalking:
		v = f.walk
	case domain.ModeTransit:
		v = f.transit
	default:
		v = f.drive
	}
	out := make([]string, len(dests))
	for i := range out {
		out[i] = v
	}
	return out, nil
}

// fakeCache stores marshaled JSON so any value type round-trips.
type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, _ := json.Marshal(v)
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- tests ----

func searchFixture(t *testing.T) (*app.SearchService, *fakeGeocoder, *fakeTravel) {
	t.Helper()
	cat := loadedCatalog(t, domain.DaycareRecord{
		ID: "d1", Name: "Queen St Daycare", Address: "100 Queen St W",
		Lat: 43.6532, Lon: -79.3832,
		ToddlerSpaces: 5, CWELCC: true,
	})
	geo := &fakeGeocoder{pt: domain.OriginPoint{Lat: 43.6532, Lon: -79.3832}}
	travel := &fakeTravel{walk: "12 mins", transit: "8 mins", drive: "5 mins"}
	return app.NewSearchService(cat, geo, travel, &fakeCache{}, 10*time.Minute), geo, travel
}

func toddlerBirthday() time.Time {
	// 20 months old relative to the wall clock the service uses.
	return time.Now().AddDate(0, -20, 0)
}

func TestSearch_FullPipeline(t *testing.T) {
	svc, _, travel := searchFixture(t)

	resp, err := svc.Search(context.Background(), "100 Queen St W", toddlerBirthday(), 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Travel.Walk != "12 mins" || r.Travel.Transit != "8 mins" || r.Travel.Drive != "5 mins" {
		t.Fatalf("travel times: %+v", r.Travel)
	}
	if resp.AgeGroup != "toddler" {
		t.Fatalf("age group: %s", resp.AgeGroup)
	}
	if resp.Stats.Total != 1 || resp.Stats.WalkableCount != 1 || resp.Stats.CWELCCCount != 1 {
		t.Fatalf("stats: %+v", resp.Stats)
	}
	// Three modes, one batch each.
	if travel.calls != 3 {
		t.Fatalf("expected 3 travel calls, got %d", travel.calls)
	}
}

func TestSearch_SecondCallServedFromCache(t *testing.T) {
	svc, geo, travel := searchFixture(t)
	ctx := context.Background()
	birth := toddlerBirthday()

	if _, err := svc.Search(ctx, "100 Queen St W", birth, 5); err != nil {
		t.Fatalf("err: %v", err)
	}
	// Break both upstreams; a cached search must not touch them.
	geo.err = errors.New("geocoder down")
	travel.err = errors.New("matrix down")

	resp, err := svc.Search(ctx, "100 Queen St W", birth, 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Travel.Walk != "12 mins" {
		t.Fatalf("expected cached response, got %+v", resp.Results)
	}
}

func TestSearch_TravelFailureDegradesToNA(t *testing.T) {
	svc, _, travel := searchFixture(t)
	travel.err = errors.New("matrix down")

	resp, err := svc.Search(context.Background(), "100 Queen St W", toddlerBirthday(), 5)
	if err != nil {
		t.Fatalf("travel failure must not fail the search: %v", err)
	}
	if got := resp.Results[0].Travel; got.Walk != "N/A" || got.Transit != "N/A" || got.Drive != "N/A" {
		t.Fatalf("expected N/A travel times, got %+v", got)
	}
	if resp.Stats.WalkableCount != 0 {
		t.Fatalf("N/A walk times must not count as walkable")
	}
}

func TestSearch_InvalidInputs(t *testing.T) {
	svc, geo, _ := searchFixture(t)
	ctx := context.Background()
	birth := toddlerBirthday()

	if _, err := svc.Search(ctx, "   ", birth, 5); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank address: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Search(ctx, "100 Queen St W", birth, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("radius 0: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Search(ctx, "100 Queen St W", birth, app.MaxRadiusKm+1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("oversized radius: expected ErrInvalidInput, got %v", err)
	}
	// Input validation happens before any network call.
	if geo.calls != 0 {
		t.Fatalf("geocoder called %d times on invalid input", geo.calls)
	}
}

func TestSearch_GeocodeResultReused(t *testing.T) {
	svc, geo, _ := searchFixture(t)
	ctx := context.Background()

	// Different birthdates force distinct search cache keys, but the address
	// geocode itself is cached after the first call.
	if _, err := svc.Search(ctx, "100 Queen St W", toddlerBirthday(), 5); err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, err := svc.Search(ctx, "100 Queen St W", time.Now().AddDate(0, -40, 0), 5); err != nil {
		t.Fatalf("err: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("expected 1 geocoder call, got %d", geo.calls)
	}
}
