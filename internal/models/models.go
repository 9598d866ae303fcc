package models

import (
	"database/sql"
	"time"
)

// CrimeEvent is one historical incident row in the crimes table.
// Rows come from the bulk CSV loader or the ingestion API.
type CrimeEvent struct {
	ID         int64
	State      string
	District   string
	Year       int
	CrimeType  string
	Count      float64
	Day        string // weekday name, e.g. "Monday"
	HourOfDay  int
	Minute     int
	Latitude   float64
	Longitude  float64
	StreetName sql.NullString
	CreatedAt  time.Time
}

// NewsArticle is one geolocated article in the rolling news corpus.
// The news worker geocodes and deduplicates articles before insert.
type NewsArticle struct {
	ID           int64
	URL          string
	Title        string
	PublishedAt  time.Time
	LocationName string
	Latitude     float64
	Longitude    float64
	CreatedAt    time.Time
}

// Hotspot is the trimmed-down shape returned by radius queries for the map.
type Hotspot struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	CrimeType string  `json:"type"`
}
