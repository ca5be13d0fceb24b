package creative

import (
	"context"
	"fmt"
	"sort"
	"time"
)

type Service struct {
	repo  Repository // Redis
	store Store      // Postgres
	now   func() time.Time
}

func NewService(repo Repository, store Store) *Service {
	return &Service{repo: repo, store: store, now: time.Now}
}

var (
	_ Catalog   = (*Service)(nil)
	_ Telemetry = (*Service)(nil)
)

// ListActiveCreatives returns the creatives inside their active window,
// ordered by display order.
func (s *Service) ListActiveCreatives(ctx context.Context) ([]*Creative, error) {
	// 1. Active IDs (already sorted by display order in the Redis ZSET)
	ids, err := s.repo.GetActiveCreativeIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active creatives: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// 2. Metadata for all candidates (Pipeline)
	meta, err := s.repo.GetCreativesMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list active creatives: %w", err)
	}

	now := s.now()
	result := make([]*Creative, 0, len(ids))
	for _, id := range ids {
		c, ok := meta[id]
		if !ok || !c.InWindow(now) {
			continue
		}
		result = append(result, c)
	}
	// ZSET ties fall back to lexical member order; keep equal orders stable by id.
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DisplayOrder != result[j].DisplayOrder {
			return result[i].DisplayOrder < result[j].DisplayOrder
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Service) RecordView(ctx context.Context, creativeID int64) error {
	return s.repo.IncrementStat(ctx, creativeID, StatViews)
}

func (s *Service) RecordClick(ctx context.Context, creativeID int64) error {
	return s.repo.IncrementStat(ctx, creativeID, StatClicks)
}

func (s *Service) Stats(ctx context.Context, creativeID int64) (*Stats, error) {
	return s.repo.GetStats(ctx, creativeID)
}

// --- CRUD / Admin ---

func (s *Service) CreateCreative(ctx context.Context, c *Creative) error {
	if err := c.Validate(); err != nil {
		return err
	}
	// 1. Save to DB (Single Source of Truth)
	if err := s.store.Create(ctx, c); err != nil {
		return err
	}
	// 2. Sync to Redis (Cache / Hot Path)
	return s.repo.SaveCreative(ctx, c)
}

func (s *Service) UpdateCreative(ctx context.Context, c *Creative) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, c); err != nil {
		return err
	}
	return s.repo.SaveCreative(ctx, c)
}

func (s *Service) DeleteCreative(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return s.repo.RemoveCreative(ctx, id)
}

func (s *Service) ListCreatives(ctx context.Context) ([]*Creative, error) {
	return s.store.List(ctx) // DB Only
}

func (s *Service) GetCreative(ctx context.Context, id int64) (*Creative, error) {
	return s.store.GetByID(ctx, id) // DB Only
}

// SyncCreatives pushes every stored creative to Redis.
func (s *Service) SyncCreatives(ctx context.Context) error {
	list, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range list {
		if err := s.repo.SaveCreative(ctx, c); err != nil {
			return fmt.Errorf("sync creative %d: %w", c.ID, err)
		}
	}
	return nil
}
