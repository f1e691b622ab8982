package repository

import (
	"context"
	"database/sql"
	"fmt"

	"waveger/db"
	"waveger/model"
)

// ChartRepository defines data operations for cached chart snapshots.
type ChartRepository interface {
	GetByTitleAndWeek(ctx context.Context, title, week string) (*model.Chart, error)
	Create(ctx context.Context, chart *model.Chart) (int64, error)
}

// postgresChartRepository implements ChartRepository for Postgres.
type postgresChartRepository struct {
	DB *sql.DB
}

// NewPostgresChartRepository creates a new instance of postgresChartRepository.
func NewPostgresChartRepository() ChartRepository {
	return &postgresChartRepository{DB: db.DB}
}

// GetByTitleAndWeek retrieves a chart snapshot by its cache key.
// Returns (nil, nil) when no row exists.
func (r *postgresChartRepository) GetByTitleAndWeek(ctx context.Context, title, week string) (*model.Chart, error) {
	query := `SELECT id, title, week, data, created_at FROM charts WHERE title = $1 AND week = $2`
	row := r.DB.QueryRowContext(ctx, query, title, week)

	chart := &model.Chart{}
	err := row.Scan(&chart.ID, &chart.Title, &chart.Week, &chart.Data, &chart.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan chart %s/%s: %w", title, week, err)
	}
	return chart, nil
}

// Create persists a new chart snapshot. Concurrent misses for the same
// (title, week) race here; ON CONFLICT DO NOTHING keeps a single canonical
// row, and the returned id is 0 when another writer won.
func (r *postgresChartRepository) Create(ctx context.Context, chart *model.Chart) (int64, error) {
	query := `INSERT INTO charts (title, week, data, created_at)
	          VALUES ($1, $2, $3, NOW())
	          ON CONFLICT (title, week) DO NOTHING
	          RETURNING id`

	var id int64
	err := r.DB.QueryRowContext(ctx, query, chart.Title, chart.Week, []byte(chart.Data)).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to insert chart %s/%s: %w", chart.Title, chart.Week, err)
	}
	return id, nil
}
