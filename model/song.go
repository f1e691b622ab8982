package model

import "time"

// Song is a normalized song row shared across charts and favourites.
// A song is identified by (name, artist).
type Song struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SongName  string    `gorm:"type:text;not null;uniqueIndex:uq_songs_name_artist" json:"song_name"`
	Artist    string    `gorm:"type:text;not null;uniqueIndex:uq_songs_name_artist" json:"artist"`
	ImageURL  string    `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName pins the table name for GORM.
func (Song) TableName() string { return "songs" }

// SongChartData records a song's standing on one chart.
type SongChartData struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	SongID           int64     `gorm:"not null;uniqueIndex:uq_song_chart" json:"song_id"`
	ChartID          string    `gorm:"type:text;not null;uniqueIndex:uq_song_chart" json:"chart_id"`
	ChartTitle       string    `gorm:"type:text;not null" json:"chart_title"`
	Position         int       `json:"position,omitempty"`
	PeakPosition     int       `json:"peak_position,omitempty"`
	WeeksOnChart     int       `json:"weeks_on_chart,omitempty"`
	LastWeekPosition int       `json:"last_week_position,omitempty"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// TableName pins the table name for GORM.
func (SongChartData) TableName() string { return "song_chart_data" }
