package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/marais/streetrisk/internal/geo"
	"github.com/marais/streetrisk/internal/metrics"
)

// Aggregator orchestrates the three layers and blends their scores.
// It depends only on the provider interfaces, so tests and degraded
// deployments can swap any layer for a stub.
type Aggregator struct {
	historical  HistoricalProvider
	environment EnvironmentProvider
	contextual  ContextProvider
	weights     Weights
	resolution  int
	now         func() time.Time
}

func NewAggregator(h HistoricalProvider, e EnvironmentProvider, c ContextProvider, w Weights, resolution int) (*Aggregator, error) {
	if err := validateWeights(w); err != nil {
		return nil, err
	}
	return &Aggregator{
		historical:  h,
		environment: e,
		contextual:  c,
		weights:     w,
		resolution:  resolution,
		now:         time.Now,
	}, nil
}

func validateWeights(w Weights) error {
	if w.Historical < 0 || w.Environment < 0 || w.Context < 0 {
		return fmt.Errorf("layer weights must be non-negative: %+v", w)
	}
	sum := w.Historical + w.Environment + w.Context
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("layer weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// Assess scores one coordinate. In fast mode the environmental and
// contextual layers are skipped and replaced with neutral defaults; this is
// the latency-sensitive path used when scoring many points along a route.
func (a *Aggregator) Assess(ctx context.Context, lat, lon float64, fast bool) (*Assessment, error) {
	start := a.now()

	// Reject bad input before any layer runs.
	if err := geo.Validate(lat, lon); err != nil {
		return nil, err
	}

	cell, err := geo.CellOf(lat, lon, a.resolution)
	if err != nil {
		return nil, err
	}
	boundary, err := geo.BoundaryOf(cell)
	if err != nil {
		return nil, fmt.Errorf("cell boundary: %w", err)
	}

	// The historical layer is local and fast; it always runs, and a missing
	// model artifact is the one unrecoverable condition in the pipeline.
	historical, err := a.historical.Score(ctx, lat, lon, start)
	if err != nil {
		return nil, err
	}

	var (
		environment EnvironmentResult
		contextual  ContextResult
		ctxErr      error
	)

	if fast {
		environment = EnvironmentResult{Class: NeutralClass, Breakdown: map[string]int{}}
		contextual = ContextResult{Class: NeutralClass}
	} else {
		// The two remote layers have no ordering dependency; run them
		// concurrently, bounded by the slower one. Each degrades per its
		// own policy without touching the other.
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			environment = a.environment.Score(ctx, lat, lon)
		}()
		go func() {
			defer wg.Done()
			contextual, ctxErr = a.contextual.Score(ctx, lat, lon, start)
		}()
		wg.Wait()
		if ctxErr != nil {
			return nil, ctxErr
		}
	}

	raw := a.weights.Historical*float64(historical.Class) +
		a.weights.Environment*float64(environment.Class) +
		a.weights.Context*float64(contextual.Class)
	final := clampClass(roundHalfUp(raw))

	assessment := &Assessment{
		RiskCode:    final,
		RiskLevel:   final.Label(),
		RawScore:    raw,
		Cell:        cell,
		Boundary:    boundary,
		Historical:  historical,
		Environment: environment,
		Context:     contextual,
		Layers: map[string]LayerScore{
			"historical": {
				Score:        historical.Class,
				Weight:       a.weights.Historical,
				Contribution: a.weights.Historical * float64(historical.Class),
				Live:         true,
			},
			"environment": {
				Score:        environment.Class,
				Weight:       a.weights.Environment,
				Contribution: a.weights.Environment * float64(environment.Class),
				Live:         !fast && !environment.Degraded,
			},
			"context": {
				Score:        contextual.Class,
				Weight:       a.weights.Context,
				Contribution: a.weights.Context * float64(contextual.Class),
				Live:         !fast,
			},
		},
		Explanation: buildExplanation(historical, environment, contextual),
		FastMode:    fast,
		GeneratedAt: start,
	}

	mode := "full"
	if fast {
		mode = "fast"
	}
	metrics.AssessmentsTotal.WithLabelValues(final.Label(), mode).Inc()
	metrics.AssessmentLatency.Observe(time.Since(start).Seconds())

	return assessment, nil
}

// roundHalfUp rounds with ties away from zero toward the higher band:
// 0.5 becomes 1, 1.5 becomes 2. This fixes the boundary between risk bands
// and is pinned by an exhaustive test over all 27 score combinations.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clampClass(v int) Class {
	if v < 0 {
		return ClassLow
	}
	if v > 2 {
		return ClassHigh
	}
	return Class(v)
}

// buildExplanation concatenates the dominant evidence per layer. Layers
// without evidence contribute nothing; an empty set falls back to a generic
// statement.
func buildExplanation(h HistoricalResult, e EnvironmentResult, c ContextResult) string {
	var parts []string

	switch {
	case e.Degraded:
		// No evidence claim when the probe failed.
	case e.Class == ClassHigh:
		parts = append(parts, fmt.Sprintf("high density of late-night venues and cash points nearby (%d within %dm)", e.POICount, DefaultPOIRadiusMeters))
	case e.Class == ClassMedium:
		parts = append(parts, fmt.Sprintf("moderate density of risk-correlated venues nearby (%d within %dm)", e.POICount, DefaultPOIRadiusMeters))
	}

	if c.ArticleCount > 0 {
		noun := "reports"
		if c.ArticleCount == 1 {
			noun = "report"
		}
		parts = append(parts, fmt.Sprintf("%d recent crime %s in the area", c.ArticleCount, noun))
	}

	if h.Class == ClassHigh {
		parts = append(parts, "historically high-risk area for this day and hour")
	}

	if len(parts) == 0 {
		return "no elevated risk signals for this location and time"
	}
	return strings.Join(parts, " + ")
}
