package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marais/streetrisk/internal/geo"
	"github.com/marais/streetrisk/internal/models"
)

// InsertArticle adds an article to the news corpus. Articles are unique by
// URL; re-inserting a known URL is a no-op and returns inserted=false.
func (s *Store) InsertArticle(ctx context.Context, a models.NewsArticle) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO news_corpus (url, title, published_at, location_name, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, a.URL, a.Title, a.PublishedAt.UTC(), a.LocationName, a.Latitude, a.Longitude)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ArticlesNear returns articles within radiusMeters of the center published
// after the cutoff, newest first, capped at limit.
func (s *Store) ArticlesNear(ctx context.Context, lat, lon, radiusMeters float64, since time.Time, limit int) ([]models.NewsArticle, error) {
	minLat, minLon, maxLat, maxLon := geo.BoundingBox(lat, lon, radiusMeters)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, published_at, location_name, latitude, longitude, created_at
		FROM news_corpus
		WHERE published_at >= ?
		  AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY published_at DESC
	`, since.UTC(), minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	radiusKM := radiusMeters / 1000
	var articles []models.NewsArticle
	for rows.Next() {
		var a models.NewsArticle
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.PublishedAt, &a.LocationName, &a.Latitude, &a.Longitude, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if geo.Haversine(lat, lon, a.Latitude, a.Longitude) > radiusKM {
			continue
		}
		articles = append(articles, a)
		if limit > 0 && len(articles) >= limit {
			break
		}
	}
	return articles, rows.Err()
}

// PruneArticles deletes articles older than the cutoff, maintaining the
// rolling corpus. Returns the number of rows removed.
func (s *Store) PruneArticles(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM news_corpus WHERE published_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune articles: %w", err)
	}
	return res.RowsAffected()
}

// LatestArticleTime returns the newest publish time in the corpus, or the
// zero time when the corpus is empty. The health endpoint uses it to report
// corpus freshness.
func (s *Store) LatestArticleTime(ctx context.Context) (time.Time, error) {
	var newest sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(published_at) FROM news_corpus`).Scan(&newest)
	if err != nil {
		return time.Time{}, err
	}
	if !newest.Valid {
		return time.Time{}, nil
	}
	return newest.Time, nil
}
