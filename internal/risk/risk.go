// Package risk implements the multi-layer risk scorer: three independent
// signal providers (historical model, live POI density, recent crime news)
// and the aggregator that blends them into a calibrated 0-2 risk code with
// a per-layer breakdown. Failure isolation is the central property: one
// layer degrading never blocks or fails the others.
package risk

import (
	"context"
	"time"

	"github.com/marais/streetrisk/internal/geo"
)

// Class is a risk code: 0 low, 1 medium, 2 high.
type Class int

const (
	ClassLow    Class = 0
	ClassMedium Class = 1
	ClassHigh   Class = 2
)

// NeutralClass substitutes for a layer that was skipped or degraded.
const NeutralClass = ClassMedium

// Label maps a class to the traffic-light label the UI renders.
func (c Class) Label() string {
	switch c {
	case ClassLow:
		return "green"
	case ClassMedium:
		return "yellow"
	default:
		return "red"
	}
}

// Weights are the fixed per-layer blend weights. They must be non-negative
// and sum to 1.0. Environmental dominates because it best compensates for a
// stale historical training window.
type Weights struct {
	Historical  float64
	Environment float64
	Context     float64
}

// DefaultWeights is the deployed blend.
var DefaultWeights = Weights{Historical: 0.2, Environment: 0.5, Context: 0.3}

// HistoricalResult is the statistical layer's output.
type HistoricalResult struct {
	Class      Class   `json:"class"`
	Confidence float64 `json:"confidence,omitempty"` // winning probability, probability variant only
	Cell       string  `json:"cell"`
	UnseenCell bool    `json:"unseen_cell,omitempty"`
	UnseenDay  bool    `json:"unseen_day,omitempty"`
}

// EnvironmentResult is the POI density layer's output. Degraded means the
// upstream query failed and the neutral fallback was substituted.
type EnvironmentResult struct {
	Class     Class          `json:"class"`
	POICount  int            `json:"poi_count"`
	Breakdown map[string]int `json:"breakdown,omitempty"`
	Degraded  bool           `json:"degraded,omitempty"`
}

// ArticleRef is the display shape of one contextual news article.
type ArticleRef struct {
	Title       string    `json:"title"`
	URL         string    `json:"link"`
	Location    string    `json:"location"`
	PublishedAt time.Time `json:"published_at"`
}

// ContextResult is the news corpus layer's output.
type ContextResult struct {
	Class        Class        `json:"class"`
	ArticleCount int          `json:"article_count"`
	Articles     []ArticleRef `json:"articles,omitempty"`
}

// HistoricalProvider scores a coordinate against the trained model.
// The only error it may return is model.ErrUnavailable; unseen categories
// are handled internally with a documented fallback.
type HistoricalProvider interface {
	Score(ctx context.Context, lat, lon float64, now time.Time) (HistoricalResult, error)
}

// EnvironmentProvider scores POI density around a coordinate. It never
// returns an error: upstream failures become the neutral fallback with
// Degraded set.
type EnvironmentProvider interface {
	Score(ctx context.Context, lat, lon float64) EnvironmentResult
}

// ContextProvider scores the recent-news corpus around a coordinate.
// A store error propagates: a store outage is system-wide, not layer-local.
type ContextProvider interface {
	Score(ctx context.Context, lat, lon float64, now time.Time) (ContextResult, error)
}

// LayerScore is one weighted layer line in the assessment breakdown.
type LayerScore struct {
	Score        Class   `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Live         bool    `json:"live"` // false when a fallback or fast-mode default was used
}

// Assessment is the full response for one scored coordinate. It is built
// fresh per request and never persisted.
type Assessment struct {
	RiskCode    Class                 `json:"risk_code"`
	RiskLevel   string                `json:"risk_level"`
	RawScore    float64               `json:"raw_score"`
	Cell        string                `json:"h3_index"`
	Boundary    []geo.LatLon          `json:"h3_boundary"`
	Historical  HistoricalResult      `json:"historical"`
	Environment EnvironmentResult     `json:"environment"`
	Context     ContextResult         `json:"context"`
	Layers      map[string]LayerScore `json:"layers"`
	Explanation string                `json:"explanation"`
	FastMode    bool                  `json:"fast_mode"`
	GeneratedAt time.Time             `json:"current_time"`
}
