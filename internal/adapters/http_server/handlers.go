package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/topspinj/find-my-daycare/internal/adapters/googlemaps"
	"github.com/topspinj/find-my-daycare/internal/adapters/observability"
	"github.com/topspinj/find-my-daycare/internal/app"
	"github.com/topspinj/find-my-daycare/internal/domain"
)

type Handlers struct {
	S       *app.SearchService
	Catalog *app.Catalog
	Repo    domain.DaycareRepository
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/daycares/search", h.search)
	s.mux.Get("/v1/daycares/nearby", h.nearby)
	s.mux.Post("/v1/admin/reload", h.reload)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeErr maps service errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid input", err.Error())
	case errors.Is(err, googlemaps.ErrNoMatch), errors.Is(err, googlemaps.ErrNoPreciseMatch):
		writeProblem(w, http.StatusUnprocessableEntity, "Address not found",
			"could not resolve that address to a precise Toronto location; try a more specific address")
	case errors.Is(err, domain.ErrDataUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Data unavailable", "daycare dataset is not loaded")
	default:
		log.Error().Err(err).Msg("search failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func parseBirthday(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("birthday is required (YYYY-MM-DD)")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("birthday must be YYYY-MM-DD")
	}
	return t, nil
}

func parseRadius(s string) (float64, error) {
	if s == "" {
		return app.DefaultRadiusKm, nil
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("radius_km must be a number")
	}
	return r, nil
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	birthday, err := parseBirthday(q.Get("birthday"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid birthday", err.Error())
		return
	}
	radius, err := parseRadius(q.Get("radius_km"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid radius", err.Error())
		return
	}

	resp, err := h.S.Search(r.Context(), q.Get("address"), birthday, radius)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, r, resp)
}

type nearbyResponse struct {
	Origin   domain.OriginPoint    `json:"origin"`
	RadiusKm float64               `json:"radius_km"`
	Results  []domain.NearbyResult `json:"results"`
}

// nearby is the coordinate-only surface: no geocoding, no travel-time
// enrichment, just the in-memory filter.
func (h *Handlers) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid coordinates", "lat and lon must be numbers")
		return
	}
	birthday, err := parseBirthday(q.Get("birthday"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid birthday", err.Error())
		return
	}
	radius, err := parseRadius(q.Get("radius_km"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid radius", err.Error())
		return
	}

	results, err := h.S.Nearby(r.Context(), domain.OriginPoint{Lat: lat, Lon: lon}, birthday, radius)
	if err != nil {
		writeErr(w, err)
		return
	}
	if results == nil {
		results = []domain.NearbyResult{}
	}
	writeJSON(w, r, nearbyResponse{
		Origin:   domain.OriginPoint{Lat: lat, Lon: lon},
		RadiusKm: radius,
		Results:  results,
	})
}

// reload swaps in the latest stored snapshot without restarting the API.
func (h *Handlers) reload(w http.ResponseWriter, r *http.Request) {
	tag, n, err := app.LoadCatalog(r.Context(), h.Repo, h.Catalog)
	if err != nil {
		writeErr(w, err)
		return
	}
	observability.SetCatalogSize(n)
	log.Info().Str("tag", tag).Int("records", n).Msg("catalog reloaded")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"snapshot": tag, "records": n})
}
