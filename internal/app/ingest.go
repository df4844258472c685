package app

import (
	"context"
	"fmt"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// IngestionService pulls the latest dataset from the open-data portal and
// persists it as a new snapshot. Search caches are keyed by snapshot tag, so
// a successful ingest invalidates them implicitly once the API reloads.
type IngestionService struct {
	source domain.SnapshotSource
	repo   domain.DaycareRepository
}

func NewIngestionService(src domain.SnapshotSource, repo domain.DaycareRepository) *IngestionService {
	return &IngestionService{source: src, repo: repo}
}

// Ingest fetches, validates and stores one full snapshot. Any invalid record
// rejects the whole snapshot; the previously stored one stays in place.
func (s *IngestionService) Ingest(ctx context.Context) (string, int, error) {
	tag, records, err := s.source.FetchSnapshot(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("fetch snapshot: %w", err)
	}
	if len(records) == 0 {
		return "", 0, fmt.Errorf("%w: upstream returned an empty dataset", domain.ErrDataUnavailable)
	}
	for _, r := range records {
		if err := validateRecord(r); err != nil {
			return "", 0, err
		}
	}
	if err := s.repo.ReplaceSnapshot(ctx, tag, records); err != nil {
		return "", 0, fmt.Errorf("store snapshot %s: %w", tag, err)
	}
	return tag, len(records), nil
}

// LoadCatalog replaces the catalog contents with the most recent stored
// snapshot. Used at API startup and by the admin reload endpoint.
func LoadCatalog(ctx context.Context, repo domain.DaycareRepository, cat *Catalog) (string, int, error) {
	tag, records, err := repo.ListAll(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if len(records) == 0 {
		return "", 0, fmt.Errorf("%w: no stored snapshot", domain.ErrDataUnavailable)
	}
	if err := cat.Replace(tag, records); err != nil {
		return "", 0, err
	}
	return tag, len(records), nil
}
