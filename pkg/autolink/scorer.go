// Package autolink proposes subjects for an orphan identifier by looking for
// the identifier inside subject profile fields.
package autolink

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Scores
const (
	ScoreExact     = 10.0
	ScoreFuzzyHigh = 9.0
	ScoreFuzzyMid  = 7.0
	ScoreFuzzyLow  = 5.0
	ScoreSubstring = 2.0
)

// Match methods
const (
	MethodExact     = "exact"
	MethodFuzzy     = "fuzzy"
	MethodPhonetic  = "phonetic"
	MethodSubstring = "substring"
)

// phonetic agreement counts as this similarity
const phoneticSimilarity = 0.85

// FieldRule is a profile field searched for one identifier type. Normalizers
// name registry functions applied to both sides before substring comparison.
type FieldRule struct {
	Path        string
	Normalizers []string
}

// DefaultFieldRules maps identifier types to the profile fields that may hold them
func DefaultFieldRules() map[models.IdentifierKind][]FieldRule {
	lower := []string{"trim", "lowercase"}
	digits := []string{"digits_only"}
	return map[models.IdentifierKind][]FieldRule{
		models.KindEmail:         {{"core.email", lower}, {"contact.email", lower}, {"contact.emails", lower}},
		models.KindPhone:         {{"core.phone", digits}, {"contact.phone", digits}, {"contact.phones", digits}},
		models.KindName:          {{"core.name", []string{"nname"}}, {"core.full_name", []string{"nname"}}, {"core.aliases", []string{"nname"}}},
		models.KindAlias:         {{"core.aliases", []string{"nname"}}, {"online.usernames", lower}},
		models.KindOrganization:  {{"employment.employer", lower}, {"employment.organizations", lower}},
		models.KindUsername:      {{"core.username", lower}, {"online.usernames", lower}},
		models.KindSocialHandle:  {{"online.social_handles", lower}, {"online.usernames", lower}},
		models.KindCryptoAddress: {{"financial.crypto_addresses", lower}, {"financial.wallets", lower}},
		models.KindDomain:        {{"online.domains", lower}, {"online.websites", lower}},
		models.KindURL:           {{"online.websites", lower}, {"online.urls", lower}},
		models.KindIP:            {{"network.ip_addresses", []string{"trim"}}},
		models.KindMAC:           {{"network.mac_addresses", []string{"alphanumeric", "lowercase"}}},
		models.KindAddress:       {{"location.address", []string{"naddress"}}, {"location.addresses", []string{"naddress"}}},
	}
}

// kinds with a fuzzy strategy; the rest fall back to substring containment
var fuzzyKinds = map[models.IdentifierKind]bool{
	models.KindEmail:        true,
	models.KindName:         true,
	models.KindAlias:        true,
	models.KindOrganization: true,
	models.KindUsername:     true,
	models.KindSocialHandle: true,
	models.KindAddress:      true,
}

// SubjectLister lists subjects with their profiles
type SubjectLister interface {
	ListSubjects(ctx context.Context, limit int) ([]models.Subject, error)
}

// Config contains configuration for the auto-link scorer
type Config struct {
	MinScore     float64      // Candidates below this are dropped (default: 7.0)
	DefaultLimit int          // Results returned when the caller passes 0 (default: 10)
	ScanLimit    int          // Subjects scanned per request (default: 5000)
	Hints        models.Hints // Hints used to normalize identifiers and profile values
}

// DefaultConfig returns default scorer configuration
func DefaultConfig() Config {
	return Config{
		MinScore:     ScoreFuzzyMid,
		DefaultLimit: 10,
		ScanLimit:    5000,
	}
}

// Scorer ranks subjects whose profiles contain an identifier
type Scorer struct {
	logger     ectologger.Logger
	subjects   SubjectLister
	normalizer *normalizers.Normalizer
	similarity *matching.Scorer
	rules      map[models.IdentifierKind][]FieldRule
	config     Config
}

// NewScorer creates an auto-link scorer. Nil rules means DefaultFieldRules.
func NewScorer(logger ectologger.Logger, subjects SubjectLister, normalizer *normalizers.Normalizer, rules map[models.IdentifierKind][]FieldRule, config Config) *Scorer {
	defaults := DefaultConfig()
	if config.MinScore <= 0 {
		config.MinScore = defaults.MinScore
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}
	if config.ScanLimit <= 0 {
		config.ScanLimit = defaults.ScanLimit
	}
	if rules == nil {
		rules = DefaultFieldRules()
	}
	return &Scorer{
		logger:     logger,
		subjects:   subjects,
		normalizer: normalizer,
		similarity: matching.NewScorer(),
		rules:      rules,
		config:     config,
	}
}

type fieldValue struct {
	raw        string
	normalized string
	search     string
}

// SuggestSubjects scores every subject's profile fields for the identifier
// and returns the best match per subject, highest score first
func (s *Scorer) SuggestSubjects(ctx context.Context, identifierType, identifierValue string, limit int) ([]models.AutoLinkCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "autolink.Scorer.SuggestSubjects")
	defer span.End()

	const op = "autolink.SuggestSubjects"
	if strings.TrimSpace(identifierType) == "" || strings.TrimSpace(identifierValue) == "" {
		return nil, linkerr.Validation(op, "identifier type and value are required")
	}
	if limit < 0 {
		return nil, linkerr.Validation(op, "limit must not be negative")
	}
	if limit == 0 {
		limit = s.config.DefaultLimit
	}

	kind := models.ParseIdentifierKind(identifierType)
	rules := s.rules[kind]
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"identifier_type": kind,
		"fields":          len(rules),
	})
	if len(rules) == 0 {
		log.Debug("No profile fields configured for identifier type")
		return []models.AutoLinkCandidate{}, nil
	}

	query := s.normalize(kind, identifierValue)
	subjects, err := s.subjects.ListSubjects(ctx, s.config.ScanLimit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.Wrap(err, "failed to list subjects")
	}

	var out []models.AutoLinkCandidate
	for i := range subjects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, ok := s.scoreSubject(kind, rules, query, &subjects[i])
		if ok && best.Score >= s.config.MinScore {
			out = append(out, best)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	log.WithField("candidates", len(out)).Debug("Scored subjects for auto-link")
	return out, nil
}

func (s *Scorer) normalize(kind models.IdentifierKind, raw string) fieldValue {
	res := s.normalizer.Normalize(raw, kind, s.config.Hints)
	return fieldValue{raw: raw, normalized: res.Normalized, search: res.SearchForm}
}

// scoreSubject returns the subject's best scoring field value
func (s *Scorer) scoreSubject(kind models.IdentifierKind, rules []FieldRule, query fieldValue, subject *models.Subject) (models.AutoLinkCandidate, bool) {
	var (
		best  models.AutoLinkCandidate
		found bool
	)
	for _, rule := range rules {
		value, ok := subject.Profile.Get(rule.Path)
		if !ok {
			continue
		}
		for _, raw := range value.Strings() {
			candidate, ok := s.scoreValue(kind, rule, query, s.normalize(kind, raw))
			if !ok || (found && candidate.Score <= best.Score) {
				continue
			}
			candidate.SubjectID = subject.ID
			best, found = candidate, true
		}
	}
	return best, found
}

func (s *Scorer) scoreValue(kind models.IdentifierKind, rule FieldRule, query, value fieldValue) (models.AutoLinkCandidate, bool) {
	c := models.AutoLinkCandidate{FieldPath: rule.Path, MatchedValue: value.raw}

	if value.normalized != "" && value.normalized == query.normalized {
		c.Score, c.Method, c.Similarity = ScoreExact, MethodExact, 1.0
		return c, true
	}

	if fuzzyKinds[kind] {
		similarity := s.similarity.Similarity(kind, query.search, value.search)
		c.Method = MethodFuzzy
		if kind.IsNameLike() && similarity < phoneticSimilarity && matching.PhoneticEqual(query.search, value.search) {
			similarity, c.Method = phoneticSimilarity, MethodPhonetic
		}
		c.Similarity = similarity
		switch {
		case similarity >= 0.95:
			c.Score = ScoreFuzzyHigh
		case similarity >= 0.85:
			c.Score = ScoreFuzzyMid
		case similarity >= 0.75:
			c.Score = ScoreFuzzyLow
		default:
			return c, false
		}
		return c, true
	}

	registry := s.normalizer.Registry()
	q := registry.ApplyChain(query.raw, rule.Normalizers...)
	v := registry.ApplyChain(value.raw, rule.Normalizers...)
	if q != "" && v != "" && (strings.Contains(v, q) || strings.Contains(q, v)) {
		c.Score, c.Method = ScoreSubstring, MethodSubstring
		return c, true
	}
	return c, false
}
