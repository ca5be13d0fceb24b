package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"popup-service/internal/creative"

	"github.com/redis/go-redis/v9"
)

const activeKey = "creatives:active" // ZSET score=display_order, member=id

func metaKey(id int64) string  { return fmt.Sprintf("creative:%d:meta", id) }
func statsKey(id int64) string { return fmt.Sprintf("creative:%d:stats", id) }

type Repository struct {
	rdb *redis.Client
}

func NewRepository(rdb *redis.Client) *Repository {
	return &Repository{rdb: rdb}
}

var _ creative.Repository = (*Repository)(nil)

// GetActiveCreativeIDs fetches active creative IDs, lowest display order first.
func (r *Repository) GetActiveCreativeIDs(ctx context.Context) ([]int64, error) {
	idsStr, err := r.rdb.ZRange(ctx, activeKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active creatives: %w", err)
	}

	ids := make([]int64, 0, len(idsStr))
	for _, s := range idsStr {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue // Skip invalid IDs
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetCreativesMetadata fetches metadata for multiple creatives (Pipeline).
func (r *Repository) GetCreativesMetadata(ctx context.Context, ids []int64) (map[int64]*creative.Creative, error) {
	pipe := r.rdb.Pipeline()
	cmds := make(map[int64]*redis.StringCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.Get(ctx, metaKey(id))
	}

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to exec pipeline metadata: %w", err)
	}

	result := make(map[int64]*creative.Creative, len(ids))
	for id, cmd := range cmds {
		val, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var c creative.Creative
		if err := json.Unmarshal(val, &c); err == nil {
			c.ID = id
			result[id] = &c
		}
	}
	return result, nil
}

func (r *Repository) IncrementStat(ctx context.Context, creativeID int64, field string) error {
	if err := r.rdb.HIncrBy(ctx, statsKey(creativeID), field, 1).Err(); err != nil {
		return fmt.Errorf("increment %s for creative %d: %w", field, creativeID, err)
	}
	return nil
}

func (r *Repository) GetStats(ctx context.Context, creativeID int64) (*creative.Stats, error) {
	vals, err := r.rdb.HMGet(ctx, statsKey(creativeID), creative.StatViews, creative.StatClicks).Result()
	if err != nil {
		return nil, fmt.Errorf("get stats for creative %d: %w", creativeID, err)
	}
	return &creative.Stats{Views: toInt64(vals[0]), Clicks: toInt64(vals[1])}, nil
}

// SaveCreative syncs metadata to Redis and updates the active set.
func (r *Repository) SaveCreative(ctx context.Context, c *creative.Creative) error {
	bytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode creative %d: %w", c.ID, err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, metaKey(c.ID), bytes, 0)
	if c.IsActive {
		pipe.ZAdd(ctx, activeKey, redis.Z{Score: float64(c.DisplayOrder), Member: c.ID})
	} else {
		pipe.ZRem(ctx, activeKey, c.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save creative %d: %w", c.ID, err)
	}
	return nil
}

func (r *Repository) RemoveCreative(ctx context.Context, id int64) error {
	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, activeKey, id)
	pipe.Del(ctx, metaKey(id), statsKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove creative %d: %w", id, err)
	}
	return nil
}

// HMGET returns strings for present fields and nil for missing ones.
func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	case int64:
		return x
	default:
		return 0
	}
}
