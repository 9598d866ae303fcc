package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS crimes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    state TEXT,
    district TEXT,
    year INTEGER,
    crime_type TEXT,
    count REAL,
    day TEXT,
    hour_of_day INTEGER,
    minute INTEGER,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    street_name TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_crimes_latlon ON crimes(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_crimes_type ON crimes(crime_type);

CREATE TABLE IF NOT EXISTS news_corpus (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL UNIQUE,
    title TEXT,
    published_at DATETIME NOT NULL,
    location_name TEXT,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_news_published ON news_corpus(published_at);
CREATE INDEX IF NOT EXISTS idx_news_latlon ON news_corpus(latitude, longitude);
`,
	},
	{
		Version:     2,
		Description: "Index crimes by day and hour for training exports",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_crimes_day_hour ON crimes(day, hour_of_day);
`,
	},
}

// Migrate applies all pending migrations in order.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read migration version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		start := time.Now()
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.Version, m.Description); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		log.Printf("store: applied migration %d (%s) in %v", m.Version, m.Description, time.Since(start))
	}
	return nil
}
