package model

import "time"

// Favourite links a user to a song on a specific chart.
type Favourite struct {
	ID      int64     `gorm:"primaryKey" json:"id"`
	UserID  int64     `gorm:"not null;uniqueIndex:uq_user_song_chart" json:"user_id"`
	SongID  int64     `gorm:"not null;uniqueIndex:uq_user_song_chart" json:"song_id"`
	ChartID string    `gorm:"type:text;not null;uniqueIndex:uq_user_song_chart" json:"chart_id"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// TableName pins the table name for GORM.
func (Favourite) TableName() string { return "user_favourites" }

// FavouriteChart is one chart standing attached to a favourited song.
type FavouriteChart struct {
	FavouriteID      int64  `json:"favourite_id"`
	ChartID          string `json:"chart_id"`
	ChartTitle       string `json:"chart_title"`
	Position         int    `json:"position,omitempty"`
	PeakPosition     int    `json:"peak_position,omitempty"`
	WeeksOnChart     int    `json:"weeks_on_chart,omitempty"`
	LastWeekPosition int    `json:"last_week_position,omitempty"`
	AddedAt          string `json:"added_at,omitempty"`
}

// FavouriteSong groups a user's favourite entries by song.
type FavouriteSong struct {
	SongID   int64            `json:"song_id"`
	SongName string           `json:"song_name"`
	Artist   string           `json:"artist"`
	ImageURL string           `json:"image_url,omitempty"`
	Charts   []FavouriteChart `json:"charts"`
	AddedAt  string           `json:"added_at,omitempty"`
}
