package domain

import "context"

type DaycareRepository interface {
	// ReplaceSnapshot atomically replaces the stored record set with a new full
	// snapshot tagged by its dataset version (e.g. the source resource ID plus
	// fetch date).
	ReplaceSnapshot(ctx context.Context, tag string, records []DaycareRecord) error

	// ListAll returns every record of the most recent snapshot together with
	// its tag.
	ListAll(ctx context.Context) (tag string, records []DaycareRecord, err error)
}

// SnapshotSource fetches the latest full dataset from the upstream open-data
// portal.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (tag string, records []DaycareRecord, err error)
}

type Geocoder interface {
	// Geocode resolves a street address to coordinates. Imprecise or
	// out-of-area matches are errors, not approximate answers.
	Geocode(ctx context.Context, address string) (OriginPoint, error)
}

// TravelMode selects a distance-matrix travel profile.
type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeTransit TravelMode = "transit"
	ModeDriving TravelMode = "driving"
)

type TravelTimeClient interface {
	// Durations returns one provider-formatted duration string per
	// destination, in order. Unresolvable elements come back as "N/A";
	// the slice length always equals len(dests).
	Durations(ctx context.Context, origin OriginPoint, dests []OriginPoint, mode TravelMode) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
