package models

// MatchType is the tier that produced a match
type MatchType string

const (
	MatchTypeExactHash     MatchType = "exact_hash"
	MatchTypeExactString   MatchType = "exact_string"
	MatchTypePartialString MatchType = "partial_string"
)

// MatchResult is one candidate duplicate found by the matching engine
type MatchResult struct {
	SubjectOrOrphanID string         `json:"subject_or_orphan_id"`
	OwnerType         OwnerType      `json:"owner_type"`
	MatchedRecordID   string         `json:"matched_record_id"`
	FieldKind         IdentifierKind `json:"field_kind"`
	FieldValue        string         `json:"field_value"`
	Confidence        float64        `json:"confidence"`
	MatchType         MatchType      `json:"match_type"`
	Similarity        float64        `json:"similarity,omitempty"`
}

// MatchSet is the combined output of every matching tier for one value
type MatchSet struct {
	Kind       IdentifierKind       `json:"kind"`
	Query      string               `json:"query"`
	Normalized string               `json:"normalized"`
	Matches    []MatchResult        `json:"matches"`
	TierErrors map[MatchType]string `json:"tier_errors,omitempty"`
}

// ConfidenceTier buckets match confidence for presentation
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "HIGH"
	TierMedium ConfidenceTier = "MEDIUM"
	TierLow    ConfidenceTier = "LOW"
)

// Tier boundaries
const (
	TierHighMin   = 0.9
	TierMediumMin = 0.7
	TierLowMin    = 0.5
)

// TierFor classifies a confidence value. Values below the LOW floor have no tier.
func TierFor(confidence float64) (ConfidenceTier, bool) {
	switch {
	case confidence >= TierHighMin:
		return TierHigh, true
	case confidence >= TierMediumMin:
		return TierMedium, true
	case confidence >= TierLowMin:
		return TierLow, true
	}
	return "", false
}

// SuggestionGroup is one confidence tier of suggestions
type SuggestionGroup struct {
	ConfidenceTier ConfidenceTier `json:"confidence_tier"`
	Matches        []MatchResult  `json:"matches"`
}

// AutoLinkCandidate is a subject proposed for an orphan by profile field heuristics
type AutoLinkCandidate struct {
	SubjectID    string  `json:"subject_id"`
	Score        float64 `json:"score"`
	FieldPath    string  `json:"field_path"`
	MatchedValue string  `json:"matched_value"`
	Method       string  `json:"method"`
	Similarity   float64 `json:"similarity,omitempty"`
}

// SuggestionResponse is the grouped suggestion list for a subject or orphan
type SuggestionResponse struct {
	SourceID         string              `json:"source_id"`
	SourceType       OwnerType           `json:"source_type"`
	Groups           []SuggestionGroup   `json:"groups"`
	TotalSuggestions int                 `json:"total_suggestions"`
	DismissedCount   int                 `json:"dismissed_count"`
	FieldMatches     []AutoLinkCandidate `json:"field_matches,omitempty"`
}
