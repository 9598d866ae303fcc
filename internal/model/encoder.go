package model

// LabelEncoder maps a closed vocabulary of category strings to the integer
// indices the classifier was trained with. The vocabulary is fixed at
// training time; values outside it are an expected, recoverable condition.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(classes []string) *LabelEncoder {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &LabelEncoder{classes: classes, index: idx}
}

// Encode returns the trained index for a value. ok is false for values
// outside the training vocabulary; callers decide the fallback.
func (e *LabelEncoder) Encode(value string) (int, bool) {
	i, ok := e.index[value]
	return i, ok
}

// Len returns the vocabulary size.
func (e *LabelEncoder) Len() int {
	return len(e.classes)
}
