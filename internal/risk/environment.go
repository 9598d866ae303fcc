package risk

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/serjvanilla/go-overpass"

	"github.com/marais/streetrisk/internal/httputil"
	"github.com/marais/streetrisk/internal/metrics"
)

// Environmental risk buckets by total POI count within the radius.
const (
	poiHighThreshold   = 10
	poiMediumThreshold = 3
)

// DefaultPOIRadiusMeters is how far around the coordinate the density
// probe looks.
const DefaultPOIRadiusMeters = 500

// DefaultOverpassTimeout bounds the slowest layer. Overpass public
// instances can be slow; anything past this falls back.
const DefaultOverpassTimeout = 12 * time.Second

// POI categories, in first-match-wins priority order.
const (
	CategoryBarPub      = "bar_pub"
	CategoryNightclub   = "nightclub"
	CategoryATM         = "atm"
	CategoryBank        = "bank"
	CategoryAlcoholShop = "alcohol_shop"
)

// Environment probes a live OpenStreetMap Overpass index for
// risk-correlated amenities around a coordinate. This is the only layer
// that reaches an external network service on the hot path, so every
// failure becomes the neutral fallback instead of a request error.
type Environment struct {
	client       *overpass.Client
	radiusMeters float64
}

// NewEnvironment builds the live provider against an Overpass endpoint,
// e.g. "https://overpass-api.de/api/interpreter".
func NewEnvironment(endpoint string, radiusMeters float64, timeout time.Duration) *Environment {
	if radiusMeters <= 0 {
		radiusMeters = DefaultPOIRadiusMeters
	}
	if timeout <= 0 {
		timeout = DefaultOverpassTimeout
	}
	client := overpass.NewWithSettings(endpoint, 2, httputil.NewClientWithTimeout(timeout))
	return &Environment{client: &client, radiusMeters: radiusMeters}
}

// Score counts risk-correlated POIs around the coordinate and buckets the
// total. Never returns an error; see EnvironmentProvider.
func (e *Environment) Score(ctx context.Context, lat, lon float64) EnvironmentResult {
	query := buildPOIQuery(lat, lon, e.radiusMeters)

	start := time.Now()
	result, err := e.client.Query(query)
	metrics.OverpassLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OverpassCallsTotal.WithLabelValues("error").Inc()
		metrics.LayerFallbacksTotal.WithLabelValues("environment", "overpass_error").Inc()
		log.Printf("environment: overpass query failed, using neutral fallback: %v", err)
		return neutralEnvironment()
	}
	metrics.OverpassCallsTotal.WithLabelValues("ok").Inc()

	breakdown := make(map[string]int)
	for _, node := range result.Nodes {
		if cat, ok := classifyPOI(node.Tags); ok {
			breakdown[cat]++
		}
	}
	for _, way := range result.Ways {
		if cat, ok := classifyPOI(way.Tags); ok {
			breakdown[cat]++
		}
	}

	total := 0
	for _, n := range breakdown {
		total += n
	}

	return EnvironmentResult{
		Class:     bucketPOICount(total),
		POICount:  total,
		Breakdown: breakdown,
	}
}

// neutralEnvironment is the documented degradation value: medium risk with
// no evidence, surfaced via Degraded.
func neutralEnvironment() EnvironmentResult {
	return EnvironmentResult{
		Class:     NeutralClass,
		POICount:  0,
		Breakdown: map[string]int{},
		Degraded:  true,
	}
}

func buildPOIQuery(lat, lon, radiusMeters float64) string {
	around := fmt.Sprintf("around:%.0f,%.6f,%.6f", radiusMeters, lat, lon)
	return fmt.Sprintf(`
		[out:json];
		(
			node["amenity"~"^(bar|pub|nightclub|atm|bank)$"](%[1]s);
			way["amenity"~"^(bar|pub|nightclub|atm|bank)$"](%[1]s);
			node["shop"="alcohol"](%[1]s);
			way["shop"="alcohol"](%[1]s);
		);
		out body;
		>;
		out skel qt;
	`, around)
}

// classifyPOI assigns an OSM element to exactly one category,
// first-match-wins by priority: bar/pub, nightclub, atm, bank, alcohol shop.
func classifyPOI(tags map[string]string) (string, bool) {
	amenity := tags["amenity"]
	switch amenity {
	case "bar", "pub":
		return CategoryBarPub, true
	case "nightclub":
		return CategoryNightclub, true
	case "atm":
		return CategoryATM, true
	case "bank":
		return CategoryBank, true
	}
	if tags["shop"] == "alcohol" {
		return CategoryAlcoholShop, true
	}
	return "", false
}

func bucketPOICount(total int) Class {
	switch {
	case total >= poiHighThreshold:
		return ClassHigh
	case total >= poiMediumThreshold:
		return ClassMedium
	default:
		return ClassLow
	}
}
