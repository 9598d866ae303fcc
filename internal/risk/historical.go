package risk

import (
	"context"
	"log"
	"time"

	"github.com/marais/streetrisk/internal/geo"
	"github.com/marais/streetrisk/internal/metrics"
	"github.com/marais/streetrisk/internal/model"
)

// Probability thresholds for the probability-predict variant: high wins
// outright above 0.7, otherwise medium wins above 0.3.
const (
	probHighThreshold   = 0.7
	probMediumThreshold = 0.3
)

// Historical scores a coordinate against the pre-trained classifier.
// Deployments choose between the discrete predict and the thresholded
// probability predict via UseProbabilities.
type Historical struct {
	ref              *model.Ref
	useProbabilities bool
}

func NewHistorical(ref *model.Ref, useProbabilities bool) *Historical {
	return &Historical{ref: ref, useProbabilities: useProbabilities}
}

// Score computes the statistical risk class for a coordinate at the current
// wall-clock weekday and hour. An unseen cell or weekday falls back to
// encoder index 0; only a missing model artifact is an error.
func (h *Historical) Score(ctx context.Context, lat, lon float64, now time.Time) (HistoricalResult, error) {
	artifact, err := h.ref.Get()
	if err != nil {
		return HistoricalResult{}, err
	}

	// The cell must be computed at the training resolution, which the
	// artifact records; a config-level mismatch is caught at startup.
	cell, err := geo.CellOf(lat, lon, artifact.H3Resolution)
	if err != nil {
		return HistoricalResult{}, err
	}

	result := HistoricalResult{Cell: cell}

	cellIdx, ok := artifact.CellEncoder.Encode(cell)
	if !ok {
		result.UnseenCell = true
		cellIdx = 0
		metrics.UnseenCategoriesTotal.WithLabelValues("cell").Inc()
		log.Printf("historical: cell %s outside training vocabulary, using fallback index", cell)
	}

	day := now.Weekday().String()
	dayIdx, ok := artifact.DayEncoder.Encode(day)
	if !ok {
		result.UnseenDay = true
		dayIdx = 0
		metrics.UnseenCategoriesTotal.WithLabelValues("day").Inc()
		log.Printf("historical: day %s outside training vocabulary, using fallback index", day)
	}

	features := []float64{float64(cellIdx), float64(dayIdx), float64(now.Hour())}

	if h.useProbabilities {
		probs := artifact.PredictProba(features)
		result.Class, result.Confidence = classFromProbabilities(probs)
		return result, nil
	}

	result.Class = Class(artifact.PredictClass(features))
	return result, nil
}

func classFromProbabilities(probs []float64) (Class, float64) {
	switch {
	case probs[ClassHigh] > probHighThreshold:
		return ClassHigh, probs[ClassHigh]
	case probs[ClassMedium] > probMediumThreshold:
		return ClassMedium, probs[ClassMedium]
	default:
		return ClassLow, probs[ClassLow]
	}
}
