package newsfeed

import (
	"context"
	"log"
	"time"

	"github.com/marais/streetrisk/internal/metrics"
	"github.com/marais/streetrisk/internal/models"
)

const (
	// DefaultPollInterval matches the upstream feed's practical freshness.
	DefaultPollInterval = 30 * time.Minute

	// DefaultRetention is the rolling corpus window; older articles are no
	// longer relevant context and get pruned each cycle.
	DefaultRetention = 30 * 24 * time.Hour
)

// ArticleSink is the slice of the store the worker writes to.
type ArticleSink interface {
	InsertArticle(ctx context.Context, a models.NewsArticle) (bool, error)
	PruneArticles(ctx context.Context, olderThan time.Time) (int64, error)
}

// FeedSource abstracts the news API for tests.
type FeedSource interface {
	FetchArticles() ([]GNewsArticle, error)
}

// LocationResolver abstracts the geocoder for tests.
type LocationResolver interface {
	Geocode(name string) (lat, lon float64, ok bool, err error)
}

// Worker runs the ingestion loop: prune, fetch, filter, geolocate, save.
type Worker struct {
	store     ArticleSink
	feed      FeedSource
	geocoder  LocationResolver
	gazetteer *Gazetteer
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewWorker(store ArticleSink, feed FeedSource, geocoder LocationResolver, gazetteer *Gazetteer) *Worker {
	return &Worker{
		store:     store,
		feed:      feed,
		geocoder:  geocoder,
		gazetteer: gazetteer,
		interval:  DefaultPollInterval,
		retention: DefaultRetention,
		now:       time.Now,
	}
}

// Run polls until the context is cancelled. The first cycle runs
// immediately so a fresh deployment has context without waiting.
func (w *Worker) Run(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil {
		log.Printf("newsfeed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				log.Printf("newsfeed: %v", err)
			}
		}
	}
}

// RunOnce executes a single ingestion cycle.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.now()

	pruned, err := w.store.PruneArticles(ctx, now.Add(-w.retention))
	if err != nil {
		log.Printf("newsfeed: prune: %v", err)
	} else if pruned > 0 {
		metrics.ArticlesPruned.Add(float64(pruned))
		log.Printf("newsfeed: pruned %d stale articles", pruned)
	}

	articles, err := w.feed.FetchArticles()
	if err != nil {
		return err
	}

	var saved, duplicates, skipped, failed int
	for _, a := range articles {
		outcome := w.processArticle(ctx, a, now)
		metrics.ArticlesIngested.WithLabelValues(outcome).Inc()
		switch outcome {
		case "saved":
			saved++
		case "duplicate":
			duplicates++
		case "error", "geocode_failed":
			failed++
		default:
			skipped++
		}
	}

	log.Printf("newsfeed: cycle done: %d fetched, %d saved, %d duplicates, %d skipped, %d failed",
		len(articles), saved, duplicates, skipped, failed)
	return nil
}

// processArticle runs one article through the pipeline and returns the
// outcome label used for metrics.
func (w *Worker) processArticle(ctx context.Context, a GNewsArticle, now time.Time) string {
	if a.URL == "" || a.PublishedAt == "" {
		return "malformed"
	}

	text := a.Title + " " + a.Description
	if !IsCrimeRelated(text) {
		return "not_crime"
	}

	locationName, ok := w.gazetteer.Extract(text)
	if !ok {
		return "no_location"
	}

	lat, lon, found, err := w.geocoder.Geocode(locationName)
	if err != nil {
		log.Printf("newsfeed: geocode %q: %v", locationName, err)
		return "geocode_failed"
	}
	if !found {
		return "geocode_failed"
	}

	title := a.Title
	if len(title) > 500 {
		title = title[:500]
	}

	inserted, err := w.store.InsertArticle(ctx, models.NewsArticle{
		URL:          a.URL,
		Title:        title,
		PublishedAt:  parsePublishedAt(a.PublishedAt, now),
		LocationName: locationName,
		Latitude:     lat,
		Longitude:    lon,
	})
	if err != nil {
		log.Printf("newsfeed: save %s: %v", a.URL, err)
		return "error"
	}
	if !inserted {
		return "duplicate"
	}
	return "saved"
}
