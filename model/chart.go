package model

import (
	"encoding/json"
	"time"
)

// Chart is a cached snapshot of one chart for one week, keyed by (title, week).
// Rows are created on cache miss and never updated or deleted.
type Chart struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	Title     string          `gorm:"type:text;not null;uniqueIndex:uq_charts_title_week" json:"title"`
	Week      string          `gorm:"type:text;not null;uniqueIndex:uq_charts_title_week" json:"week"`
	Data      json.RawMessage `gorm:"type:jsonb" json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TableName pins the table name for GORM.
func (Chart) TableName() string { return "charts" }

// ChartEntry is one song row inside a chart payload. It is embedded in the
// Chart's JSON blob and never persisted on its own.
type ChartEntry struct {
	Position         int    `json:"position"`
	Name             string `json:"name"`
	Artist           string `json:"artist"`
	Image            string `json:"image,omitempty"`
	URL              string `json:"url,omitempty"`
	LastWeekPosition int    `json:"last_week_position,omitempty"`
	PeakPosition     int    `json:"peak_position,omitempty"`
	WeeksOnChart     int    `json:"weeks_on_chart,omitempty"`
}

// ChartPayload is the normalized chart content returned by the API and stored
// in the Chart's Data column.
type ChartPayload struct {
	Title string       `json:"title"`
	Week  string       `json:"week"`
	Songs []ChartEntry `json:"songs"`
}

// ChartSummary identifies one available chart in the top-charts listing.
type ChartSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
