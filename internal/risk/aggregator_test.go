package risk

import (
	"context"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marais/streetrisk/internal/geo"
)

const (
	testLat = 12.9716
	testLon = 77.5946
)

type stubHistorical struct {
	result HistoricalResult
	err    error
	calls  atomic.Int64
}

func (s *stubHistorical) Score(ctx context.Context, lat, lon float64, now time.Time) (HistoricalResult, error) {
	s.calls.Add(1)
	return s.result, s.err
}

type stubEnvironment struct {
	result EnvironmentResult
	calls  atomic.Int64
}

func (s *stubEnvironment) Score(ctx context.Context, lat, lon float64) EnvironmentResult {
	s.calls.Add(1)
	return s.result
}

type stubContext struct {
	result ContextResult
	err    error
	calls  atomic.Int64
}

func (s *stubContext) Score(ctx context.Context, lat, lon float64, now time.Time) (ContextResult, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func newTestAggregator(t *testing.T, h *stubHistorical, e *stubEnvironment, c *stubContext) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(h, e, c, DefaultWeights, geo.DefaultResolution)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg
}

// TestWeightedSumAllCombinations pins the blend for every (h, e, c) in
// {0,1,2}^3 against the closed-form clamp(round-half-up(0.2h+0.5e+0.3c)).
func TestWeightedSumAllCombinations(t *testing.T) {
	for h := 0; h <= 2; h++ {
		for e := 0; e <= 2; e++ {
			for c := 0; c <= 2; c++ {
				raw := 0.2*float64(h) + 0.5*float64(e) + 0.3*float64(c)
				want := int(math.Floor(raw + 0.5))
				if want > 2 {
					want = 2
				}

				hist := &stubHistorical{result: HistoricalResult{Class: Class(h), Cell: "stub"}}
				env := &stubEnvironment{result: EnvironmentResult{Class: Class(e), POICount: 1}}
				cxt := &stubContext{result: ContextResult{Class: Class(c)}}
				agg := newTestAggregator(t, hist, env, cxt)

				got, err := agg.Assess(context.Background(), testLat, testLon, false)
				if err != nil {
					t.Fatalf("Assess(h=%d e=%d c=%d): %v", h, e, c, err)
				}
				if int(got.RiskCode) != want {
					t.Errorf("h=%d e=%d c=%d: raw=%.2f final=%d, want %d", h, e, c, raw, got.RiskCode, want)
				}
				if math.Abs(got.RawScore-raw) > 1e-9 {
					t.Errorf("h=%d e=%d c=%d: RawScore=%v, want %v", h, e, c, got.RawScore, raw)
				}
			}
		}
	}
}

// Spot-check the documented table entries, including the band-boundary ties.
func TestWeightedSumKnownCases(t *testing.T) {
	tests := []struct {
		name    string
		h, e, c Class
		want    Class
		label   string
	}{
		{"all low", 0, 0, 0, 0, "green"},
		{"env high only", 0, 2, 0, 1, "yellow"},
		{"all high", 2, 2, 2, 2, "red"},
		{"tie at 0.5 rounds up", 1, 0, 1, 1, "yellow"}, // 0.2 + 0.3 = 0.5
		{"tie at 1.5 rounds up", 2, 1, 2, 2, "red"},    // 0.4 + 0.5 + 0.6 = 1.5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &stubHistorical{result: HistoricalResult{Class: tt.h}}
			env := &stubEnvironment{result: EnvironmentResult{Class: tt.e}}
			cxt := &stubContext{result: ContextResult{Class: tt.c}}
			agg := newTestAggregator(t, hist, env, cxt)

			got, err := agg.Assess(context.Background(), testLat, testLon, false)
			if err != nil {
				t.Fatalf("Assess: %v", err)
			}
			if got.RiskCode != tt.want || got.RiskLevel != tt.label {
				t.Errorf("got %d/%s, want %d/%s", got.RiskCode, got.RiskLevel, tt.want, tt.label)
			}
		})
	}
}

func TestFastModeSkipsRemoteLayers(t *testing.T) {
	hist := &stubHistorical{result: HistoricalResult{Class: ClassLow}}
	env := &stubEnvironment{result: EnvironmentResult{Class: ClassHigh}}
	cxt := &stubContext{result: ContextResult{Class: ClassHigh}}
	agg := newTestAggregator(t, hist, env, cxt)

	got, err := agg.Assess(context.Background(), testLat, testLon, true)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if env.calls.Load() != 0 {
		t.Errorf("fast mode issued %d environment calls, want 0", env.calls.Load())
	}
	if cxt.calls.Load() != 0 {
		t.Errorf("fast mode issued %d context calls, want 0", cxt.calls.Load())
	}
	if hist.calls.Load() != 1 {
		t.Errorf("historical called %d times, want 1", hist.calls.Load())
	}

	// Both substituted layers are neutral class 1: raw = 0.2*0 + 0.5 + 0.3.
	if got.Environment.Class != NeutralClass || got.Context.Class != NeutralClass {
		t.Error("fast mode did not substitute neutral defaults")
	}
	if got.RiskCode != ClassMedium {
		t.Errorf("fast mode risk = %d, want 1", got.RiskCode)
	}
	if !got.FastMode {
		t.Error("FastMode not set on assessment")
	}
	if got.Layers["environment"].Live || got.Layers["context"].Live {
		t.Error("fast-mode layers must not report live data")
	}
}

func TestInvalidCoordinateRejectedBeforeProviders(t *testing.T) {
	tests := []struct{ lat, lon float64 }{
		{91, 0}, {-91, 0}, {0, 181}, {0, -181}, {120, 400},
	}
	for _, tt := range tests {
		hist := &stubHistorical{}
		env := &stubEnvironment{}
		cxt := &stubContext{}
		agg := newTestAggregator(t, hist, env, cxt)

		_, err := agg.Assess(context.Background(), tt.lat, tt.lon, false)
		if err == nil {
			t.Fatalf("Assess(%v, %v) accepted invalid coordinate", tt.lat, tt.lon)
		}
		if hist.calls.Load()+env.calls.Load()+cxt.calls.Load() != 0 {
			t.Errorf("providers were invoked for invalid coordinate (%v, %v)", tt.lat, tt.lon)
		}
	}
}

func TestDegradedEnvironmentStillScores(t *testing.T) {
	hist := &stubHistorical{result: HistoricalResult{Class: ClassLow}}
	env := &stubEnvironment{result: neutralEnvironment()}
	cxt := &stubContext{result: ContextResult{Class: ClassLow}}
	agg := newTestAggregator(t, hist, env, cxt)

	got, err := agg.Assess(context.Background(), testLat, testLon, false)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !got.Environment.Degraded {
		t.Error("degradation not surfaced in the assessment")
	}
	if got.Layers["environment"].Live {
		t.Error("degraded environment layer reports live data")
	}
	// raw = 0.5 rounds half-up into yellow.
	if got.RiskCode != ClassMedium {
		t.Errorf("risk = %d, want 1", got.RiskCode)
	}
}

func TestContextStoreErrorPropagates(t *testing.T) {
	hist := &stubHistorical{result: HistoricalResult{Class: ClassLow}}
	env := &stubEnvironment{result: EnvironmentResult{Class: ClassLow}}
	cxt := &stubContext{err: context.DeadlineExceeded}
	agg := newTestAggregator(t, hist, env, cxt)

	if _, err := agg.Assess(context.Background(), testLat, testLon, false); err == nil {
		t.Error("context store error did not fail the request")
	}
}

func TestAssessmentCarriesCellAndBoundary(t *testing.T) {
	hist := &stubHistorical{result: HistoricalResult{Class: ClassLow}}
	env := &stubEnvironment{result: EnvironmentResult{Class: ClassLow}}
	cxt := &stubContext{result: ContextResult{Class: ClassLow}}
	agg := newTestAggregator(t, hist, env, cxt)

	got, err := agg.Assess(context.Background(), testLat, testLon, false)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Cell == "" {
		t.Fatal("assessment missing cell id")
	}
	if len(got.Boundary) < 5 {
		t.Fatalf("boundary has %d vertices, want >= 5", len(got.Boundary))
	}
	if !geo.ContainsPoint(got.Boundary, testLat, testLon) {
		t.Error("boundary does not contain the assessed point")
	}
}

func TestNewAggregatorRejectsBadWeights(t *testing.T) {
	tests := []struct {
		name string
		w    Weights
	}{
		{"sum below one", Weights{Historical: 0.2, Environment: 0.5, Context: 0.2}},
		{"sum above one", Weights{Historical: 0.4, Environment: 0.5, Context: 0.3}},
		{"negative weight", Weights{Historical: -0.2, Environment: 0.9, Context: 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(&stubHistorical{}, &stubEnvironment{}, &stubContext{}, tt.w, geo.DefaultResolution)
			if err == nil {
				t.Error("bad weights accepted")
			}
		})
	}
}

func TestBuildExplanation(t *testing.T) {
	tests := []struct {
		name string
		h    HistoricalResult
		e    EnvironmentResult
		c    ContextResult
		want []string // substrings that must appear
	}{
		{
			name: "no signals",
			want: []string{"no elevated risk signals"},
		},
		{
			name: "all layers contribute",
			h:    HistoricalResult{Class: ClassHigh},
			e:    EnvironmentResult{Class: ClassHigh, POICount: 14},
			c:    ContextResult{ArticleCount: 2},
			want: []string{"high density", "14 within", "2 recent crime reports", "historically high-risk", " + "},
		},
		{
			name: "single report singular",
			c:    ContextResult{ArticleCount: 1},
			want: []string{"1 recent crime report in the area"},
		},
		{
			name: "degraded environment adds no claim",
			e:    neutralEnvironment(),
			want: []string{"no elevated risk signals"},
		},
		{
			name: "moderate density",
			e:    EnvironmentResult{Class: ClassMedium, POICount: 5},
			want: []string{"moderate density", "5 within"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildExplanation(tt.h, tt.e, tt.c)
			for _, sub := range tt.want {
				if !strings.Contains(got, sub) {
					t.Errorf("explanation %q missing %q", got, sub)
				}
			}
		})
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.0, 0}, {0.4, 0}, {0.5, 1}, {0.9, 1},
		{1.0, 1}, {1.4, 1}, {1.5, 2}, {2.0, 2},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.in); got != tt.want {
			t.Errorf("roundHalfUp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClassLabels(t *testing.T) {
	if ClassLow.Label() != "green" || ClassMedium.Label() != "yellow" || ClassHigh.Label() != "red" {
		t.Error("class labels mismatched")
	}
}
