package creative

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxPopupsPerSession applies when a creative leaves its session cap unset.
const DefaultMaxPopupsPerSession = 3

var (
	ErrNotFound        = errors.New("creative not found")
	ErrInvalidCreative = errors.New("invalid creative")
)

// Creative is one promotional image/link with its own display policy.
type Creative struct {
	ID                    int64      `json:"id"`
	Title                 string     `json:"title"`
	ImageURL              string     `json:"image_url"`
	TargetURL             string     `json:"target_url,omitempty"`
	DisplayOrder          int        `json:"display_order"`
	DisplayFrequencyHours float64    `json:"display_frequency_hours"`
	MaxPopupsPerSession   *int       `json:"max_popups_per_session,omitempty"` // nil = not specified
	StartAt               *time.Time `json:"start_at,omitempty"`
	EndAt                 *time.Time `json:"end_at,omitempty"`
	IsActive              bool       `json:"is_active,omitempty"` // For DB/Admin
}

// SessionCap resolves the session cap, applying the default when unset.
// Zero means unlimited.
func (c *Creative) SessionCap() int {
	if c.MaxPopupsPerSession == nil {
		return DefaultMaxPopupsPerSession
	}
	return *c.MaxPopupsPerSession
}

// InWindow reports whether now falls inside the creative's active window.
func (c *Creative) InWindow(now time.Time) bool {
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}

func (c *Creative) Validate() error {
	switch {
	case c.Title == "":
		return errors.Join(ErrInvalidCreative, errors.New("title is required"))
	case c.DisplayFrequencyHours < 0:
		return errors.Join(ErrInvalidCreative, errors.New("display_frequency_hours must be >= 0"))
	case c.MaxPopupsPerSession != nil && *c.MaxPopupsPerSession < 0:
		return errors.Join(ErrInvalidCreative, errors.New("max_popups_per_session must be >= 0"))
	case c.StartAt != nil && c.EndAt != nil && !c.EndAt.After(*c.StartAt):
		return errors.Join(ErrInvalidCreative, errors.New("end_at must be after start_at"))
	}
	return nil
}

// Stats holds the telemetry counters of a creative.
type Stats struct {
	Views  int64 `json:"views"`
	Clicks int64 `json:"clicks"`
}

// Repository (Redis - Hot Path)
type Repository interface {
	GetActiveCreativeIDs(ctx context.Context) ([]int64, error)
	GetCreativesMetadata(ctx context.Context, ids []int64) (map[int64]*Creative, error)
	IncrementStat(ctx context.Context, creativeID int64, field string) error
	GetStats(ctx context.Context, creativeID int64) (*Stats, error)

	// Write methods for Syncing/Admin
	SaveCreative(ctx context.Context, c *Creative) error
	RemoveCreative(ctx context.Context, id int64) error
}

// Store (PostgreSQL - Persistence)
type Store interface {
	Create(ctx context.Context, c *Creative) error
	Update(ctx context.Context, c *Creative) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Creative, error)
	List(ctx context.Context) ([]*Creative, error)
}

// Catalog returns the creatives currently inside their display window,
// ordered by DisplayOrder.
type Catalog interface {
	ListActiveCreatives(ctx context.Context) ([]*Creative, error)
}

// Telemetry accepts view and click events keyed by creative id.
type Telemetry interface {
	RecordView(ctx context.Context, creativeID int64) error
	RecordClick(ctx context.Context, creativeID int64) error
}

const (
	StatViews  = "views"
	StatClicks = "clicks"
)
