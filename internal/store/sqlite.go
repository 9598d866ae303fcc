// Package store persists crime events and the rolling news corpus in SQLite
// and answers the radius queries the risk layers and the hotspot endpoint
// need. Radius search runs as a bounding-box prefilter in SQL followed by an
// exact haversine check in Go.
package store

import (
	"context"
	"database/sql"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
