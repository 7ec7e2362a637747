package models

// AmbiguityLevel is how many valid interpretations a value has without more context
type AmbiguityLevel string

const (
	AmbiguityNone     AmbiguityLevel = "none"
	AmbiguityLow      AmbiguityLevel = "low"
	AmbiguityMedium   AmbiguityLevel = "medium"
	AmbiguityHigh     AmbiguityLevel = "high"
	AmbiguityCritical AmbiguityLevel = "critical"
)

// RequiresReview reports whether values at this level must be confirmed by an analyst
func (a AmbiguityLevel) RequiresReview() bool {
	return a == AmbiguityHigh || a == AmbiguityCritical
}

// NormalizationConfidence is how sure the normalizer is of its canonical form
type NormalizationConfidence string

const (
	ConfidenceCertain NormalizationConfidence = "certain"
	ConfidenceHigh    NormalizationConfidence = "high"
	ConfidenceMedium  NormalizationConfidence = "medium"
	ConfidenceLow     NormalizationConfidence = "low"
	ConfidenceUnknown NormalizationConfidence = "unknown"
)

// Hint names
const (
	HintCountry       = "country_hint"
	HintDefaultRegion = "default_region"
	HintDateOrder     = "date_order"
	HintCurrency      = "currency_hint"
)

// Date order hint values
const (
	DateOrderMDY = "MDY"
	DateOrderDMY = "DMY"
	DateOrderYMD = "YMD"
)

// Hints is caller-supplied disambiguating context
type Hints struct {
	CountryHint   string `json:"country_hint,omitempty"`
	DefaultRegion string `json:"default_region,omitempty"`
	DateOrder     string `json:"date_order,omitempty"`
	CurrencyHint  string `json:"currency_hint,omitempty"`
}

// Provided lists the hint names that carry a value
func (h Hints) Provided() []string {
	var out []string
	if h.CountryHint != "" {
		out = append(out, HintCountry)
	}
	if h.DefaultRegion != "" {
		out = append(out, HintDefaultRegion)
	}
	if h.DateOrder != "" {
		out = append(out, HintDateOrder)
	}
	if h.CurrencyHint != "" {
		out = append(out, HintCurrency)
	}
	return out
}

// NormalizationResult is the outcome of normalizing one raw value
type NormalizationResult struct {
	Original         string                  `json:"original"`
	Kind             IdentifierKind          `json:"kind"`
	Normalized       string                  `json:"normalized"`
	SearchForm       string                  `json:"search_form"`
	IsValid          bool                    `json:"is_valid"`
	IsAmbiguous      bool                    `json:"is_ambiguous"`
	AmbiguityLevel   AmbiguityLevel          `json:"ambiguity_level"`
	Confidence       NormalizationConfidence `json:"confidence"`
	Components       map[string]any          `json:"components,omitempty"`
	AlternativeForms []string                `json:"alternative_forms,omitempty"`
	HintsUsed        []string                `json:"hints_used,omitempty"`
	HintsAvailable   []string                `json:"hints_available,omitempty"`
	NeedsReview      bool                    `json:"needs_review"`
	Errors           []string                `json:"errors,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// SetAmbiguity records the ambiguity level and keeps the derived flags consistent
func (r *NormalizationResult) SetAmbiguity(level AmbiguityLevel) {
	r.AmbiguityLevel = level
	r.IsAmbiguous = level != AmbiguityNone
	r.NeedsReview = level.RequiresReview()
}
