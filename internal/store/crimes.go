package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marais/streetrisk/internal/geo"
	"github.com/marais/streetrisk/internal/models"
)

// HotspotLimit caps radius queries so a wide radius over a dense table
// cannot flood the map client.
const HotspotLimit = 500

func (s *Store) InsertCrimeEvent(ctx context.Context, ev models.CrimeEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crimes (state, district, year, crime_type, count, day, hour_of_day, minute, latitude, longitude, street_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.State, ev.District, ev.Year, ev.CrimeType, ev.Count, ev.Day, ev.HourOfDay, ev.Minute, ev.Latitude, ev.Longitude, ev.StreetName)
	if err != nil {
		return fmt.Errorf("insert crime event: %w", err)
	}
	return nil
}

// BulkInsertCrimeEvents inserts a batch of events in one transaction.
// Used by the CSV loader; a failed row aborts the whole batch.
func (s *Store) BulkInsertCrimeEvents(ctx context.Context, events []models.CrimeEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crimes (state, district, year, crime_type, count, day, hour_of_day, minute, latitude, longitude, street_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.State, ev.District, ev.Year, ev.CrimeType, ev.Count, ev.Day, ev.HourOfDay, ev.Minute, ev.Latitude, ev.Longitude, ev.StreetName); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}

// HotspotsWithin returns crime events within radiusMeters of the center,
// capped at HotspotLimit. Results carry only what the map needs.
func (s *Store) HotspotsWithin(ctx context.Context, lat, lon, radiusMeters float64) ([]models.Hotspot, error) {
	minLat, minLon, maxLat, maxLon := geo.BoundingBox(lat, lon, radiusMeters)

	rows, err := s.db.QueryContext(ctx, `
		SELECT latitude, longitude, crime_type
		FROM crimes
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
	`, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("query hotspots: %w", err)
	}
	defer rows.Close()

	radiusKM := radiusMeters / 1000
	var hotspots []models.Hotspot
	for rows.Next() {
		var h models.Hotspot
		var crimeType sql.NullString
		if err := rows.Scan(&h.Latitude, &h.Longitude, &crimeType); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		if geo.Haversine(lat, lon, h.Latitude, h.Longitude) > radiusKM {
			continue
		}
		h.CrimeType = crimeType.String
		hotspots = append(hotspots, h)
		if len(hotspots) >= HotspotLimit {
			break
		}
	}
	return hotspots, rows.Err()
}

// CountCrimeEvents returns the total row count, used by the health endpoint.
func (s *Store) CountCrimeEvents(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crimes`).Scan(&n)
	return n, err
}
