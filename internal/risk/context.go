package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/marais/streetrisk/internal/models"
)

// Contextual grounding defaults: news within 1.5km published in the last
// 48 hours, capped at the five most recent.
const (
	DefaultNewsRadiusMeters = 1500
	DefaultNewsWindow       = 48 * time.Hour
	DefaultNewsLimit        = 5

	newsHighThreshold   = 3
	newsMediumThreshold = 1
)

// ArticleStore is the slice of the event store the contextual layer needs.
type ArticleStore interface {
	ArticlesNear(ctx context.Context, lat, lon, radiusMeters float64, since time.Time, limit int) ([]models.NewsArticle, error)
}

// Context scores the rolling news corpus around a coordinate. Unlike the
// environmental probe, a store failure here propagates: the same store
// backs hotspot queries, so an outage is system-wide.
type Context struct {
	store        ArticleStore
	radiusMeters float64
	window       time.Duration
	limit        int
}

func NewContext(store ArticleStore) *Context {
	return &Context{
		store:        store,
		radiusMeters: DefaultNewsRadiusMeters,
		window:       DefaultNewsWindow,
		limit:        DefaultNewsLimit,
	}
}

func (c *Context) Score(ctx context.Context, lat, lon float64, now time.Time) (ContextResult, error) {
	articles, err := c.store.ArticlesNear(ctx, lat, lon, c.radiusMeters, now.Add(-c.window), c.limit)
	if err != nil {
		return ContextResult{}, fmt.Errorf("contextual store query: %w", err)
	}

	result := ContextResult{
		Class:        bucketArticleCount(len(articles)),
		ArticleCount: len(articles),
	}
	for _, a := range articles {
		result.Articles = append(result.Articles, ArticleRef{
			Title:       a.Title,
			URL:         a.URL,
			Location:    a.LocationName,
			PublishedAt: a.PublishedAt,
		})
	}
	return result, nil
}

func bucketArticleCount(count int) Class {
	switch {
	case count >= newsHighThreshold:
		return ClassHigh
	case count >= newsMediumThreshold:
		return ClassMedium
	default:
		return ClassLow
	}
}
