package app

import (
	"fmt"
	"sync/atomic"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// Snapshot is one immutable, fully-validated view of the daycare dataset.
// Queries hold a snapshot for their whole lifetime, so a concurrent reload
// can never expose a half-replaced record set.
type Snapshot struct {
	tag     string
	records []domain.DaycareRecord
	byGroup map[domain.AgeGroup][]domain.DaycareRecord
}

// Tag identifies the dataset version this snapshot was built from.
func (s *Snapshot) Tag() string { return s.tag }

// All returns every record. Callers must not mutate the slice.
func (s *Snapshot) All() []domain.DaycareRecord { return s.records }

// WithCapacity returns the records with at least one licensed space in the
// given age group. The view is precomputed at load time.
func (s *Snapshot) WithCapacity(g domain.AgeGroup) []domain.DaycareRecord {
	return s.byGroup[g]
}

func (s *Snapshot) Len() int { return len(s.records) }

// Catalog owns the current snapshot. Replace swaps the whole set atomically;
// there is no per-record mutation API.
type Catalog struct {
	cur atomic.Pointer[Snapshot]
}

func NewCatalog() *Catalog { return &Catalog{} }

// Replace validates the incoming record set and installs it as the current
// snapshot. Any invalid record rejects the entire batch and leaves the
// previous snapshot in place.
func (c *Catalog) Replace(tag string, records []domain.DaycareRecord) error {
	for _, r := range records {
		if err := validateRecord(r); err != nil {
			return err
		}
	}

	snap := &Snapshot{
		tag:     tag,
		records: records,
		byGroup: make(map[domain.AgeGroup][]domain.DaycareRecord, len(domain.AgeGroups)),
	}
	for _, g := range domain.AgeGroups {
		for _, r := range records {
			if r.Capacity(g) > 0 {
				snap.byGroup[g] = append(snap.byGroup[g], r)
			}
		}
	}

	c.cur.Store(snap)
	return nil
}

// Snapshot returns the current record set, or ErrDataUnavailable when the
// catalog has never loaded or holds no records.
func (c *Catalog) Snapshot() (*Snapshot, error) {
	s := c.cur.Load()
	if s == nil || len(s.records) == 0 {
		return nil, domain.ErrDataUnavailable
	}
	return s, nil
}

func validateRecord(r domain.DaycareRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: record with empty id (%q)", domain.ErrInvalidInput, r.Name)
	}
	if !validLatLon(r.Lat, r.Lon) {
		return fmt.Errorf("%w: record %s has coordinates out of range (%f, %f)", domain.ErrInvalidInput, r.ID, r.Lat, r.Lon)
	}
	for _, g := range domain.AgeGroups {
		if r.Capacity(g) < 0 {
			return fmt.Errorf("%w: record %s has negative %s capacity", domain.ErrInvalidInput, r.ID, g)
		}
	}
	return nil
}
