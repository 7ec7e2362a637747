package matching

// Fixed tier confidences
const (
	ExactHashConfidence   = 1.0
	ExactStringConfidence = 0.95
)

// Partial match thresholds
const (
	DefaultThreshold = 0.7
	MinThreshold     = 0.5
	MaxThreshold     = 1.0
)

// ConfidenceForSimilarity maps a similarity score to a match confidence:
//
//	>= 0.90        -> 0.90
//	[0.80, 0.90)   -> 0.70 + (s - 0.80) * 2
//	[0.70, 0.80)   -> 0.50 + (s - 0.70) * 2
//	<  0.70        -> no match
func ConfidenceForSimilarity(similarity float64) (float64, bool) {
	switch {
	case similarity >= 0.90:
		return 0.9, true
	case similarity >= 0.80:
		return 0.7 + (similarity-0.8)*2, true
	case similarity >= 0.70:
		return 0.5 + (similarity-0.7)*2, true
	}
	return 0, false
}
