package model

// treeNode is one node of a serialized decision tree. Leaves have
// Feature == -1 and carry the class distribution observed at training time.
type treeNode struct {
	Feature   int       `json:"feature"`   // -1 for leaves
	Threshold float64   `json:"threshold"` // go left when feature <= threshold
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Counts    []float64 `json:"counts,omitempty"` // per-class sample counts at a leaf
}

type tree struct {
	Nodes []treeNode `json:"nodes"`
}

// classDistribution walks the tree for a feature vector and returns the
// normalized class distribution at the reached leaf.
func (t *tree) classDistribution(features []float64) []float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Feature < 0 {
			return normalize(node.Counts)
		}
		if features[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func normalize(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	dist := make([]float64, NumClasses)
	if total == 0 {
		return dist
	}
	for i := 0; i < len(counts) && i < NumClasses; i++ {
		dist[i] = counts[i] / total
	}
	return dist
}

// forest is the serialized tree ensemble exported by the training pipeline.
type forest struct {
	Trees []tree `json:"trees"`
}

// predictProba returns the mean per-class distribution across all trees.
func (f *forest) predictProba(features []float64) []float64 {
	probs := make([]float64, NumClasses)
	if len(f.Trees) == 0 {
		return probs
	}
	for i := range f.Trees {
		dist := f.Trees[i].classDistribution(features)
		for c := 0; c < NumClasses; c++ {
			probs[c] += dist[c]
		}
	}
	for c := 0; c < NumClasses; c++ {
		probs[c] /= float64(len(f.Trees))
	}
	return probs
}

// predictClass returns the class with the highest mean probability.
// Ties break toward the lower class, matching the training-side argmax.
func (f *forest) predictClass(features []float64) int {
	probs := f.predictProba(features)
	best := 0
	for c := 1; c < NumClasses; c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return best
}
