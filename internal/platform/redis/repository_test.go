package redis

import (
	"context"
	"testing"
	"time"

	"popup-service/internal/creative"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func TestRepository_SaveAndListActive(t *testing.T) {
	rdb, _ := newTestClient(t)
	repo := NewRepository(rdb)
	ctx := context.Background()

	cap1 := 1
	for _, c := range []*creative.Creative{
		{ID: 10, Title: "second", DisplayOrder: 2, IsActive: true},
		{ID: 11, Title: "first", DisplayOrder: 1, IsActive: true, MaxPopupsPerSession: &cap1},
		{ID: 12, Title: "draft", DisplayOrder: 0},
	} {
		if err := repo.SaveCreative(ctx, c); err != nil {
			t.Fatalf("SaveCreative(%d): %v", c.ID, err)
		}
	}

	ids, err := repo.GetActiveCreativeIDs(ctx)
	if err != nil {
		t.Fatalf("GetActiveCreativeIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 10 {
		t.Fatalf("active ids = %v, want [11 10]", ids)
	}

	meta, err := repo.GetCreativesMetadata(ctx, []int64{11, 10, 404})
	if err != nil {
		t.Fatalf("GetCreativesMetadata: %v", err)
	}
	if len(meta) != 2 {
		t.Fatalf("metadata size = %d, want 2", len(meta))
	}
	if got := meta[11]; got.Title != "first" || got.MaxPopupsPerSession == nil || *got.MaxPopupsPerSession != 1 {
		t.Fatalf("metadata[11] = %+v", got)
	}
	if meta[10].MaxPopupsPerSession != nil {
		t.Fatal("unset session cap should stay unset through Redis")
	}
}

func TestRepository_DeactivateAndRemove(t *testing.T) {
	rdb, mr := newTestClient(t)
	repo := NewRepository(rdb)
	ctx := context.Background()

	c := &creative.Creative{ID: 5, Title: "promo", IsActive: true}
	_ = repo.SaveCreative(ctx, c)
	c.IsActive = false
	if err := repo.SaveCreative(ctx, c); err != nil {
		t.Fatalf("SaveCreative: %v", err)
	}
	if ids, _ := repo.GetActiveCreativeIDs(ctx); len(ids) != 0 {
		t.Fatalf("active ids = %v, want none", ids)
	}

	_ = repo.IncrementStat(ctx, 5, creative.StatViews)
	if err := repo.RemoveCreative(ctx, 5); err != nil {
		t.Fatalf("RemoveCreative: %v", err)
	}
	if mr.Exists(metaKey(5)) || mr.Exists(statsKey(5)) {
		t.Fatal("creative keys survived removal")
	}
}

func TestRepository_Stats(t *testing.T) {
	rdb, _ := newTestClient(t)
	repo := NewRepository(rdb)
	ctx := context.Background()

	st, err := repo.GetStats(ctx, 9)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.Views != 0 || st.Clicks != 0 {
		t.Fatalf("empty stats = %+v", st)
	}

	for i := 0; i < 3; i++ {
		_ = repo.IncrementStat(ctx, 9, creative.StatViews)
	}
	_ = repo.IncrementStat(ctx, 9, creative.StatClicks)

	st, _ = repo.GetStats(ctx, 9)
	if st.Views != 3 || st.Clicks != 1 {
		t.Fatalf("stats = %+v, want views=3 clicks=1", st)
	}
}

func TestServiceCatalogOverRedis(t *testing.T) {
	rdb, _ := newTestClient(t)
	repo := NewRepository(rdb)
	ctx := context.Background()

	ended := time.Now().Add(-time.Hour)
	_ = repo.SaveCreative(ctx, &creative.Creative{ID: 1, Title: "live", IsActive: true})
	_ = repo.SaveCreative(ctx, &creative.Creative{ID: 2, Title: "ended", IsActive: true, EndAt: &ended})

	svc := creative.NewService(repo, nil)
	list, err := svc.ListActiveCreatives(ctx)
	if err != nil {
		t.Fatalf("ListActiveCreatives: %v", err)
	}
	if len(list) != 1 || list[0].ID != 1 {
		t.Fatalf("catalog = %+v, want only creative 1", list)
	}
}
