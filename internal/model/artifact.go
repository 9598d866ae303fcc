// Package model loads and evaluates the pre-trained crime risk classifier.
// The artifact is a JSON export of the offline training pipeline: two label
// encoder vocabularies (H3 cell index, weekday name) and a tree ensemble
// over the 3-feature vector [cell_encoded, day_encoded, hour].
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// NumClasses is the size of the risk label set: 0 low, 1 medium, 2 high.
const NumClasses = 3

// ErrUnavailable is returned for every prediction when no artifact is
// loaded. The API maps it to 503; nothing can substitute for the missing
// historical baseline.
var ErrUnavailable = errors.New("crime model not loaded")

// artifactFile is the on-disk JSON layout.
type artifactFile struct {
	TrainedAt    string   `json:"trained_at"`
	H3Resolution int      `json:"h3_resolution"`
	CellClasses  []string `json:"cell_classes"`
	DayClasses   []string `json:"day_classes"`
	Forest       forest   `json:"forest"`
}

// Artifact is an immutable loaded model: encoders plus classifier.
// It is shared read-only across requests for the process lifetime.
type Artifact struct {
	TrainedAt    string
	H3Resolution int
	CellEncoder  *LabelEncoder
	DayEncoder   *LabelEncoder
	forest       forest
}

// Load reads and validates a model artifact from disk.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	return fromFile(&file)
}

func fromFile(file *artifactFile) (*Artifact, error) {
	if len(file.CellClasses) == 0 || len(file.DayClasses) == 0 {
		return nil, errors.New("model artifact missing encoder vocabularies")
	}
	if len(file.Forest.Trees) == 0 {
		return nil, errors.New("model artifact has no trees")
	}
	for ti, t := range file.Forest.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature >= 0 {
				if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
					return nil, fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
				}
				if n.Feature > 2 {
					return nil, fmt.Errorf("tree %d node %d references feature %d, want 0-2", ti, ni, n.Feature)
				}
			} else if len(n.Counts) == 0 {
				return nil, fmt.Errorf("tree %d leaf %d has no class counts", ti, ni)
			}
		}
	}

	return &Artifact{
		TrainedAt:    file.TrainedAt,
		H3Resolution: file.H3Resolution,
		CellEncoder:  NewLabelEncoder(file.CellClasses),
		DayEncoder:   NewLabelEncoder(file.DayClasses),
		forest:       file.Forest,
	}, nil
}

// PredictClass returns the discrete risk class for a feature vector.
func (a *Artifact) PredictClass(features []float64) int {
	return a.forest.predictClass(features)
}

// PredictProba returns the 3-way class distribution for a feature vector.
func (a *Artifact) PredictProba(features []float64) []float64 {
	return a.forest.predictProba(features)
}

// Ref holds the current artifact behind an atomic pointer so a retrained
// model can be swapped in without a partially-updated view being visible to
// concurrent requests.
type Ref struct {
	ptr atomic.Pointer[Artifact]
}

// NewRef wraps an artifact; a nil artifact means the model never loaded.
func NewRef(a *Artifact) *Ref {
	r := &Ref{}
	if a != nil {
		r.ptr.Store(a)
	}
	return r
}

// Get returns the current artifact or ErrUnavailable when none is loaded.
func (r *Ref) Get() (*Artifact, error) {
	a := r.ptr.Load()
	if a == nil {
		return nil, ErrUnavailable
	}
	return a, nil
}

// Swap atomically replaces the current artifact.
func (r *Ref) Swap(a *Artifact) {
	r.ptr.Store(a)
}

// Loaded reports whether an artifact is currently available.
func (r *Ref) Loaded() bool {
	return r.ptr.Load() != nil
}
