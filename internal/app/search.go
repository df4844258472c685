package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// SearchService runs the full address search: geocode, filter the catalog,
// enrich with travel times, summarize. The pure filtering core stays in
// FindNearby; everything network-bound lives behind ports so the service is
// testable with fakes.
type SearchService struct {
	catalog  *Catalog
	geo      domain.Geocoder
	travel   domain.TravelTimeClient
	cache    domain.Cache
	cacheTTL time.Duration

	now func() time.Time
}

func NewSearchService(cat *Catalog, geo domain.Geocoder, travel domain.TravelTimeClient, cache domain.Cache, ttl time.Duration) *SearchService {
	return &SearchService{
		catalog:  cat,
		geo:      geo,
		travel:   travel,
		cache:    cache,
		cacheTTL: ttl,
		now:      time.Now,
	}
}

// SearchResponse is the complete answer for one address search.
type SearchResponse struct {
	Address    string                `json:"address"`
	Origin     domain.OriginPoint    `json:"origin"`
	RadiusKm   float64               `json:"radius_km"`
	AgeGroup   string                `json:"age_group"`
	AgeLabel   string                `json:"age_group_label"`
	AgeDisplay string                `json:"age_display"`
	Results    []domain.NearbyResult `json:"results"`
	Stats      domain.SearchStats    `json:"stats"`
}

// Search geocodes the address and runs the nearby pipeline. radiusKm <= 0 is
// rejected before any network call; callers wanting the default pass
// DefaultRadiusKm explicitly.
func (s *SearchService) Search(ctx context.Context, address string, birthdate time.Time, radiusKm float64) (SearchResponse, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return SearchResponse{}, fmt.Errorf("%w: address is required", domain.ErrInvalidInput)
	}
	if radiusKm <= 0 || radiusKm > MaxRadiusKm {
		return SearchResponse{}, fmt.Errorf("%w: radius must be in (0, %g], got %g", domain.ErrInvalidInput, MaxRadiusKm, radiusKm)
	}

	origin, err := s.geocodeCached(ctx, address)
	if err != nil {
		return SearchResponse{}, err
	}

	ref := s.now()
	key := s.searchKey(origin, birthdate, radiusKm, ref)
	if key != "" {
		var cached SearchResponse
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			cached.Address = address
			return cached, nil
		}
	}

	results, err := FindNearby(s.catalog, origin, birthdate, radiusKm, ref)
	if err != nil {
		return SearchResponse{}, err
	}
	if results == nil {
		results = []domain.NearbyResult{}
	}

	s.enrichTravelTimes(ctx, origin, results)

	months, _ := AgeInMonths(birthdate, ref)
	group, _ := MapAgeGroup(birthdate, ref)
	resp := SearchResponse{
		Address:    address,
		Origin:     origin,
		RadiusKm:   radiusKm,
		AgeGroup:   group.String(),
		AgeLabel:   group.Label(),
		AgeDisplay: FormatAge(months),
		Results:    results,
		Stats:      Summarize(results),
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, resp, int(s.cacheTTL.Seconds()))
	}
	return resp, nil
}

// Nearby is the coordinate-only surface: no geocoding, no travel times, no
// caching. It is a thin context-free wrapper over the pure core.
func (s *SearchService) Nearby(ctx context.Context, origin domain.OriginPoint, birthdate time.Time, radiusKm float64) ([]domain.NearbyResult, error) {
	if radiusKm > MaxRadiusKm {
		return nil, fmt.Errorf("%w: radius must be at most %g km, got %g", domain.ErrInvalidInput, MaxRadiusKm, radiusKm)
	}
	return FindNearby(s.catalog, origin, birthdate, radiusKm, s.now())
}

func (s *SearchService) geocodeCached(ctx context.Context, address string) (domain.OriginPoint, error) {
	key := "geocode:" + strings.ToLower(address)
	var pt domain.OriginPoint
	if ok, _ := s.cache.Get(ctx, key, &pt); ok {
		return pt, nil
	}
	pt, err := s.geo.Geocode(ctx, address)
	if err != nil {
		return domain.OriginPoint{}, err
	}
	_ = s.cache.Set(ctx, key, pt, int(s.cacheTTL.Seconds()))
	return pt, nil
}

// enrichTravelTimes fills walk/transit/drive durations, one mode per
// goroutine. A failing mode degrades that column to "N/A" and never fails the
// search.
func (s *SearchService) enrichTravelTimes(ctx context.Context, origin domain.OriginPoint, results []domain.NearbyResult) {
	if len(results) == 0 || s.travel == nil {
		return
	}
	dests := make([]domain.OriginPoint, len(results))
	for i, r := range results {
		dests[i] = domain.OriginPoint{Lat: r.Lat, Lon: r.Lon}
	}

	modes := []domain.TravelMode{domain.ModeWalking, domain.ModeTransit, domain.ModeDriving}
	times := make([][]string, len(modes))
	var g errgroup.Group
	for i, mode := range modes {
		i, mode := i, mode
		g.Go(func() error {
			ds, err := s.travel.Durations(ctx, origin, dests, mode)
			if err != nil {
				log.Warn().Str("mode", string(mode)).Err(err).Msg("travel time lookup failed")
				ds = naSlice(len(dests))
			}
			times[i] = ds
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		results[i].Travel = domain.TravelTimes{
			Walk:    pick(times[0], i),
			Transit: pick(times[1], i),
			Drive:   pick(times[2], i),
		}
	}
}

// searchKey includes the snapshot tag so a reload naturally invalidates all
// cached searches, and rounds the origin so tiny geocoder jitter still hits.
func (s *SearchService) searchKey(origin domain.OriginPoint, birthdate time.Time, radiusKm float64, ref time.Time) string {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("search:%s:%.4f:%.4f:%s:%g:%s",
		snap.Tag(), origin.Lat, origin.Lon, birthdate.Format("2006-01-02"), radiusKm, ref.Format("2006-01-02"))
}

func naSlice(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "N/A"
	}
	return out
}

func pick(ds []string, i int) string {
	if i < len(ds) {
		return ds[i]
	}
	return "N/A"
}
