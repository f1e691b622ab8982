package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"waveger/db"
	"waveger/model"
)

// ToggleResult describes the outcome of a favourite toggle.
type ToggleResult struct {
	Action      string `json:"action"` // "added" or "removed"
	FavouriteID int64  `json:"favourite_id"`
	SongID      int64  `json:"song_id"`
}

// FavouriteStatus describes whether a song is favourited by a user.
type FavouriteStatus struct {
	IsFavourited bool  `json:"is_favourited"`
	FavouriteID  int64 `json:"favourite_id,omitempty"`
	SongID       int64 `json:"song_id,omitempty"`
}

// ToggleInput carries the song and chart context for a favourite toggle.
type ToggleInput struct {
	SongName         string
	Artist           string
	ChartID          string
	ChartTitle       string
	ImageURL         string
	Position         int
	PeakPosition     int
	WeeksOnChart     int
	LastWeekPosition int
}

// FavouriteRepository defines data operations for user favourites.
type FavouriteRepository interface {
	GetUserFavourites(ctx context.Context, userID int64, chartID string) ([]*model.FavouriteSong, error)
	Toggle(ctx context.Context, userID int64, input ToggleInput) (*ToggleResult, error)
	Remove(ctx context.Context, userID, favouriteID int64) (bool, error)
	CheckStatus(ctx context.Context, userID int64, songName, artist, chartID string) (*FavouriteStatus, error)
}

// postgresFavouriteRepository implements FavouriteRepository for Postgres.
type postgresFavouriteRepository struct {
	DB *sql.DB
}

// NewPostgresFavouriteRepository creates a new instance of postgresFavouriteRepository.
func NewPostgresFavouriteRepository() FavouriteRepository {
	return &postgresFavouriteRepository{DB: db.DB}
}

// getOrCreateSong returns the ID of the song identified by (name, artist),
// inserting it first if needed.
func (r *postgresFavouriteRepository) getOrCreateSong(ctx context.Context, tx *sql.Tx, songName, artist, imageURL string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM songs WHERE song_name = $1 AND artist = $2`,
		songName, artist).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up song: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO songs (song_name, artist, image_url, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), NOW(), NOW())
		 ON CONFLICT (song_name, artist) DO UPDATE
		 SET image_url = COALESCE(EXCLUDED.image_url, songs.image_url)
		 RETURNING id`,
		songName, artist, imageURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert song: %w", err)
	}
	return id, nil
}

// upsertChartData records the song's standing on the given chart.
func (r *postgresFavouriteRepository) upsertChartData(ctx context.Context, tx *sql.Tx, songID int64, input ToggleInput) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO song_chart_data
		 (song_id, chart_id, chart_title, position, peak_position, weeks_on_chart, last_week_position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (song_id, chart_id) DO UPDATE SET
		 chart_title = EXCLUDED.chart_title,
		 position = EXCLUDED.position,
		 peak_position = EXCLUDED.peak_position,
		 weeks_on_chart = EXCLUDED.weeks_on_chart,
		 last_week_position = EXCLUDED.last_week_position,
		 updated_at = NOW()`,
		songID, input.ChartID, input.ChartTitle,
		input.Position, input.PeakPosition, input.WeeksOnChart, input.LastWeekPosition)
	if err != nil {
		return fmt.Errorf("failed to upsert chart data: %w", err)
	}
	return nil
}

// Toggle adds the song to the user's favourites, or removes it when already
// favourited on the same chart.
func (r *postgresFavouriteRepository) Toggle(ctx context.Context, userID int64, input ToggleInput) (*ToggleResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	songID, err := r.getOrCreateSong(ctx, tx, input.SongName, input.Artist, input.ImageURL)
	if err != nil {
		return nil, err
	}

	if err := r.upsertChartData(ctx, tx, songID, input); err != nil {
		return nil, err
	}

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM user_favourites WHERE user_id = $1 AND song_id = $2 AND chart_id = $3`,
		userID, songID, input.ChartID).Scan(&existingID)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_favourites WHERE id = $1`, existingID); err != nil {
			return nil, fmt.Errorf("failed to remove favourite: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit favourite removal: %w", err)
		}
		return &ToggleResult{Action: "removed", FavouriteID: existingID, SongID: songID}, nil

	case err == sql.ErrNoRows:
		var favouriteID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO user_favourites (user_id, song_id, chart_id, added_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			userID, songID, input.ChartID, time.Now()).Scan(&favouriteID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert favourite: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit favourite insert: %w", err)
		}
		return &ToggleResult{Action: "added", FavouriteID: favouriteID, SongID: songID}, nil

	default:
		return nil, fmt.Errorf("failed to check existing favourite: %w", err)
	}
}

// Remove deletes a favourite owned by the user. Returns false when the
// favourite doesn't exist or belongs to someone else.
func (r *postgresFavouriteRepository) Remove(ctx context.Context, userID, favouriteID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM user_favourites WHERE id = $1 AND user_id = $2`,
		favouriteID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete favourite %d: %w", favouriteID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// CheckStatus reports whether the user has favourited the song on the chart.
func (r *postgresFavouriteRepository) CheckStatus(ctx context.Context, userID int64, songName, artist, chartID string) (*FavouriteStatus, error) {
	var songID int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM songs WHERE song_name = $1 AND artist = $2`,
		songName, artist).Scan(&songID)
	if err == sql.ErrNoRows {
		return &FavouriteStatus{IsFavourited: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up song: %w", err)
	}

	var favouriteID int64
	err = r.DB.QueryRowContext(ctx,
		`SELECT id FROM user_favourites WHERE user_id = $1 AND song_id = $2 AND chart_id = $3`,
		userID, songID, chartID).Scan(&favouriteID)
	if err == sql.ErrNoRows {
		return &FavouriteStatus{IsFavourited: false, SongID: songID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check favourite status: %w", err)
	}

	return &FavouriteStatus{IsFavourited: true, FavouriteID: favouriteID, SongID: songID}, nil
}

// GetUserFavourites returns the user's favourites grouped by song, newest
// first. When chartID is non-empty only that chart's favourites are returned.
func (r *postgresFavouriteRepository) GetUserFavourites(ctx context.Context, userID int64, chartID string) ([]*model.FavouriteSong, error) {
	query := `
	SELECT
		f.id AS favourite_id,
		f.added_at,
		s.id AS song_id,
		s.song_name,
		s.artist,
		COALESCE(s.image_url, ''),
		COALESCE(cd.chart_id, ''),
		COALESCE(cd.chart_title, ''),
		COALESCE(cd.position, 0),
		COALESCE(cd.peak_position, 0),
		COALESCE(cd.weeks_on_chart, 0),
		COALESCE(cd.last_week_position, 0)
	FROM user_favourites f
	JOIN songs s ON f.song_id = s.id
	LEFT JOIN song_chart_data cd ON s.id = cd.song_id AND cd.chart_id = f.chart_id
	WHERE f.user_id = $1`

	args := []interface{}{userID}
	if chartID != "" {
		query += ` AND f.chart_id = $2`
		args = append(args, chartID)
	}
	query += ` ORDER BY f.added_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query favourites for user %d: %w", userID, err)
	}
	defer rows.Close()

	var order []int64
	songs := make(map[int64]*model.FavouriteSong)

	for rows.Next() {
		var (
			favouriteID int64
			addedAt     time.Time
			songID      int64
			fc          model.FavouriteChart
			song        model.FavouriteSong
		)
		err := rows.Scan(&favouriteID, &addedAt, &songID, &song.SongName, &song.Artist, &song.ImageURL,
			&fc.ChartID, &fc.ChartTitle, &fc.Position, &fc.PeakPosition, &fc.WeeksOnChart, &fc.LastWeekPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favourite row: %w", err)
		}

		entry, ok := songs[songID]
		if !ok {
			song.SongID = songID
			song.AddedAt = addedAt.Format(time.RFC3339)
			song.Charts = []model.FavouriteChart{}
			entry = &song
			songs[songID] = entry
			order = append(order, songID)
		}

		if fc.ChartID != "" {
			fc.FavouriteID = favouriteID
			fc.AddedAt = addedAt.Format(time.RFC3339)
			entry.Charts = append(entry.Charts, fc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during favourites iteration: %w", err)
	}

	result := make([]*model.FavouriteSong, 0, len(order))
	for _, id := range order {
		result = append(result, songs[id])
	}
	return result, nil
}
