package normalizers

import (
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

type kindFunc func(raw string, kind models.IdentifierKind, res *models.NormalizationResult, hints models.Hints)

// Normalizer turns raw identifier values into canonical and search forms.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	crypto   CryptoDetector
	registry *Registry
	byKind   map[models.IdentifierKind]kindFunc
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithCryptoDetector replaces the default pattern based crypto detector
func WithCryptoDetector(d CryptoDetector) Option {
	return func(n *Normalizer) {
		n.crypto = d
	}
}

// WithRegistry replaces the named normalizer registry
func WithRegistry(r *Registry) Option {
	return func(n *Normalizer) {
		n.registry = r
	}
}

// New creates a Normalizer
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		crypto:   NewPatternCryptoDetector(),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(n)
	}

	noHints := func(fn func(string, models.IdentifierKind, *models.NormalizationResult)) kindFunc {
		return func(raw string, kind models.IdentifierKind, res *models.NormalizationResult, _ models.Hints) {
			fn(raw, kind, res)
		}
	}
	n.byKind = map[models.IdentifierKind]kindFunc{
		models.KindEmail:         noHints(normalizeEmail),
		models.KindPhone:         normalizePhone,
		models.KindCryptoAddress: noHints(n.normalizeCrypto),
		models.KindName:          noHints(normalizeName),
		models.KindOrganization:  noHints(normalizeName),
		models.KindAlias:         noHints(normalizeName),
		models.KindUsername:      noHints(normalizeHandle),
		models.KindSocialHandle:  noHints(normalizeHandle),
		models.KindDomain:        noHints(normalizeDomain),
		models.KindURL:           noHints(normalizeURL),
		models.KindIP:            noHints(normalizeIP),
		models.KindMAC:           noHints(normalizeMAC),
		models.KindAddress:       noHints(normalizeAddress),
		models.KindDate:          normalizeDate,
		models.KindCurrency:      normalizeCurrency,
		models.KindFile:          noHints(normalizeFile),
		models.KindFileHash:      noHints(normalizeFile),
		models.KindImage:         noHints(normalizeFile),
		models.KindDocument:      noHints(normalizeFile),
	}
	return n
}

// Registry returns the named normalizer registry
func (n *Normalizer) Registry() *Registry {
	return n.registry
}

// Normalize produces the canonical form of raw for the given kind. Kind aliases
// are resolved first; unknown kinds get whitespace and case cleanup only.
// Normalizing an already normalized value with the same hints returns it unchanged.
func (n *Normalizer) Normalize(raw string, kind models.IdentifierKind, hints models.Hints) *models.NormalizationResult {
	kind = models.ParseIdentifierKind(string(kind))
	res := &models.NormalizationResult{
		Original:       raw,
		Kind:           kind,
		AmbiguityLevel: models.AmbiguityNone,
		Confidence:     models.ConfidenceUnknown,
		Components:     map[string]any{},
	}

	if strings.TrimSpace(raw) == "" {
		res.Errors = append(res.Errors, "value is empty")
		return res
	}

	fn, ok := n.byKind[kind]
	if !ok {
		fn = normalizeOther
	}
	fn(raw, kind, res, hints)

	if len(res.Components) == 0 {
		res.Components = nil
	}
	return res
}

func normalizeOther(raw string, _ models.IdentifierKind, res *models.NormalizationResult, _ models.Hints) {
	res.Normalized = CollapseWhitespace(NFC(raw))
	res.SearchForm = strings.ToLower(FoldDiacritics(res.Normalized))
	res.IsValid = res.Normalized != ""
	res.Confidence = models.ConfidenceMedium
}
