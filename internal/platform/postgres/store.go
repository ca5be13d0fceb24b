package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"popup-service/internal/creative"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ creative.Store = (*Store)(nil)

// Migrate creates the creatives table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, title, COALESCE(image_url, ''), COALESCE(target_url, ''), display_order,
	       display_frequency_hours, max_popups_per_session, start_at, end_at, is_active
	FROM creatives`

func (s *Store) Create(ctx context.Context, c *creative.Creative) error {
	query := `
		INSERT INTO creatives (title, image_url, target_url, display_order, display_frequency_hours,
		                       max_popups_per_session, start_at, end_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		c.Title, c.ImageURL, c.TargetURL, c.DisplayOrder, c.DisplayFrequencyHours,
		c.MaxPopupsPerSession, c.StartAt, c.EndAt, c.IsActive,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create creative: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, c *creative.Creative) error {
	query := `
		UPDATE creatives
		SET title=$1, image_url=$2, target_url=$3, display_order=$4, display_frequency_hours=$5,
		    max_popups_per_session=$6, start_at=$7, end_at=$8, is_active=$9
		WHERE id=$10
	`
	res, err := s.db.ExecContext(ctx, query,
		c.Title, c.ImageURL, c.TargetURL, c.DisplayOrder, c.DisplayFrequencyHours,
		c.MaxPopupsPerSession, c.StartAt, c.EndAt, c.IsActive, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update creative: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update creative %d: %w", c.ID, creative.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	// Hard delete for simplicity
	res, err := s.db.ExecContext(ctx, `DELETE FROM creatives WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete creative: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("delete creative %d: %w", id, creative.ErrNotFound)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*creative.Creative, error) {
	c, err := scanCreative(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get creative %d: %w", id, creative.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) List(ctx context.Context) ([]*creative.Creative, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY display_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*creative.Creative
	for rows.Next() {
		c, err := scanCreative(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCreative(row scanner) (*creative.Creative, error) {
	var (
		c        creative.Creative
		maxPerSn sql.NullInt32
		startAt  sql.NullTime
		endAt    sql.NullTime
	)
	if err := row.Scan(
		&c.ID, &c.Title, &c.ImageURL, &c.TargetURL, &c.DisplayOrder,
		&c.DisplayFrequencyHours, &maxPerSn, &startAt, &endAt, &c.IsActive,
	); err != nil {
		return nil, err
	}
	if maxPerSn.Valid {
		v := int(maxPerSn.Int32)
		c.MaxPopupsPerSession = &v
	}
	if startAt.Valid {
		c.StartAt = &startAt.Time
	}
	if endAt.Valid {
		c.EndAt = &endAt.Time
	}
	return &c, nil
}
