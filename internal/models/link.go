package models

import (
	"time"
)

type Link struct {
	ID          int64     `json:"id"`
	Short       string    `json:"short"`
	URL         string    `json:"url"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone возвращает независимую копию ссылки
func (l *Link) Clone() *Link {
	c := *l
	if l.Title != nil {
		t := *l.Title
		c.Title = &t
	}
	if l.Description != nil {
		d := *l.Description
		c.Description = &d
	}
	return &c
}

type CreateLinkInput struct {
	URL         string
	Title       *string
	Description *string
	CustomShort *string
}

type UpdateLinkInput struct {
	URL         string
	Title       *string
	Description *string
	Short       *string
}

// UpdateLinkParams полная замена полей строки; Short == nil оставляет код без изменений
type UpdateLinkParams struct {
	ID          int64
	URL         string
	Title       *string
	Description *string
	Short       *string
}

type LinkStats struct {
	TotalLinks  int64   `json:"total_links"`
	TotalClicks int64   `json:"total_clicks"`
	AvgClicks   float64 `json:"avg_clicks"`
	MaxClicks   int64   `json:"max_clicks"`
}

type Summary struct {
	Stats       LinkStats `json:"stats"`
	RecentLinks []Link    `json:"recentLinks"`
	TopLinks    []Link    `json:"topLinks"`
}
