package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_assessments_total",
			Help: "Total risk assessments served",
		},
		[]string{"level", "mode"},
	)

	AssessmentLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streetrisk_assessment_latency_seconds",
			Help:    "End-to-end assessment latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LayerFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_layer_fallbacks_total",
			Help: "Layer evaluations that fell back to a neutral default",
		},
		[]string{"layer", "reason"},
	)

	OverpassCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_overpass_calls_total",
			Help: "Total Overpass POI queries",
		},
		[]string{"status"},
	)

	OverpassLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streetrisk_overpass_latency_seconds",
			Help:    "Overpass POI query latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 15},
		},
	)

	UnseenCategoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_unseen_categories_total",
			Help: "Historical features outside the encoder vocabulary",
		},
		[]string{"encoder"},
	)

	NewsFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_news_fetches_total",
			Help: "Total news feed fetch attempts",
		},
		[]string{"status"},
	)

	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_articles_ingested_total",
			Help: "News articles processed by the worker",
		},
		[]string{"outcome"}, // saved, duplicate, no_location, geocode_failed, error
	)

	ArticlesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetrisk_articles_pruned_total",
			Help: "Articles removed from the rolling corpus",
		},
	)

	GeocodeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetrisk_geocode_calls_total",
			Help: "Total Nominatim geocoding calls",
		},
		[]string{"status"},
	)

	CrimeEventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetrisk_crime_events_ingested_total",
			Help: "Crime events accepted on the write path",
		},
	)
)
