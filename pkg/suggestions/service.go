// Package suggestions lists possible duplicates of a subject or orphan,
// grouped by confidence tier. It never writes.
package suggestions

import (
	"context"
	"sort"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/store"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Reader is the read side of the store the service needs
type Reader interface {
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	GetOrphan(ctx context.Context, id string) (*models.Orphan, error)
	ListRecordsByOwner(ctx context.Context, owner models.Owner) ([]models.IdentifierRecord, error)
	DismissedRecordIDs(ctx context.Context, subjectID string) (map[string]struct{}, error)
}

// Matcher runs the matching tiers for an already normalized query
type Matcher interface {
	Run(ctx context.Context, q matching.Query, threshold float64) *models.MatchSet
}

// FieldMatcher proposes subjects from profile fields
type FieldMatcher interface {
	SuggestSubjects(ctx context.Context, identifierType, identifierValue string, limit int) ([]models.AutoLinkCandidate, error)
}

// Config contains configuration for the suggestion service
type Config struct {
	Concurrency     int          // Parallel record lookups per request (default: 8)
	Threshold       float64      // Partial match threshold, 0 for the engine default
	FieldMatchLimit int          // Auto-link candidates attached to orphan suggestions (default: 10)
	Hints           models.Hints // Hints used to normalize an orphan's identifier
}

// DefaultConfig returns default service configuration
func DefaultConfig() Config {
	return Config{
		Concurrency:     8,
		FieldMatchLimit: 10,
	}
}

// Service builds suggestion lists
type Service struct {
	logger     ectologger.Logger
	reader     Reader
	matcher    Matcher
	fields     FieldMatcher
	normalizer *normalizers.Normalizer
	config     Config
}

// NewService creates a suggestion service. fields may be nil to skip profile field matches.
func NewService(logger ectologger.Logger, reader Reader, matcher Matcher, fields FieldMatcher, normalizer *normalizers.Normalizer, config Config) *Service {
	defaults := DefaultConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.FieldMatchLimit <= 0 {
		config.FieldMatchLimit = defaults.FieldMatchLimit
	}
	return &Service{
		logger:     logger,
		reader:     reader,
		matcher:    matcher,
		fields:     fields,
		normalizer: normalizer,
		config:     config,
	}
}

// GetSubjectSuggestions returns records owned by other subjects or orphans that
// match any of the subject's records. The subject's own records and records it
// dismissed are never suggested.
func (s *Service) GetSubjectSuggestions(ctx context.Context, subjectID string) (*models.SuggestionResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.GetSubjectSuggestions")
	defer span.End()

	const op = "suggestions.GetSubjectSuggestions"
	log := s.logger.WithContext(ctx).WithField("subject_id", subjectID)

	subject, err := s.reader.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, notFoundOr(op, "subject", subjectID, err)
	}
	if subject.IsMerged() {
		return nil, linkerr.NotFound(op, "subject", subjectID)
	}

	records, err := s.reader.ListRecordsByOwner(ctx, models.SubjectOwner(subjectID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list subject records")
	}
	dismissed, err := s.reader.DismissedRecordIDs(ctx, subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load dismissals")
	}

	queries := make([]matching.Query, 0, len(records))
	for i := range records {
		queries = append(queries, matching.QueryForRecord(&records[i]))
	}
	matches, err := s.lookup(ctx, queries)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	matches = ectolinq.Filter(matches, func(m models.MatchResult) bool {
		return !(m.OwnerType == models.OwnerSubject && m.SubjectOrOrphanID == subjectID)
	})

	dismissedSeen := map[string]struct{}{}
	matches = ectolinq.Filter(matches, func(m models.MatchResult) bool {
		if _, ok := dismissed[m.MatchedRecordID]; ok {
			dismissedSeen[m.MatchedRecordID] = struct{}{}
			return false
		}
		return true
	})
	metrics.SuggestionsDismissed.Add(float64(len(dismissedSeen)))

	resp := group(subjectID, models.OwnerSubject, matches)
	resp.DismissedCount = len(dismissedSeen)

	log.WithFields(map[string]any{
		"records":     len(records),
		"suggestions": resp.TotalSuggestions,
		"dismissed":   resp.DismissedCount,
	}).Debug("Built subject suggestions")
	return resp, nil
}

// GetOrphanSuggestions returns subjects whose records match the orphan's
// identifier, plus subjects whose profile fields contain it
func (s *Service) GetOrphanSuggestions(ctx context.Context, orphanID string) (*models.SuggestionResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.GetOrphanSuggestions")
	defer span.End()

	const op = "suggestions.GetOrphanSuggestions"
	log := s.logger.WithContext(ctx).WithField("orphan_id", orphanID)

	orphan, err := s.reader.GetOrphan(ctx, orphanID)
	if err != nil {
		return nil, notFoundOr(op, "orphan", orphanID, err)
	}

	records, err := s.reader.ListRecordsByOwner(ctx, models.OrphanOwner(orphanID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orphan records")
	}

	var queries []matching.Query
	for i := range records {
		queries = append(queries, matching.QueryForRecord(&records[i]))
	}
	if len(queries) == 0 {
		norm := s.normalizer.Normalize(orphan.IdentifierValue, orphan.IdentifierType, s.config.Hints)
		queries = append(queries, matching.Query{Kind: norm.Kind, Normalized: norm.Normalized, Search: norm.SearchForm})
	}

	matches, err := s.lookup(ctx, queries)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	matches = ectolinq.Filter(matches, func(m models.MatchResult) bool {
		return m.OwnerType == models.OwnerSubject
	})

	resp := group(orphanID, models.OwnerOrphan, matches)

	if s.fields != nil {
		candidates, err := s.fields.SuggestSubjects(ctx, string(orphan.IdentifierType), orphan.IdentifierValue, s.config.FieldMatchLimit)
		if err != nil {
			log.WithError(err).Warn("Failed to score profile fields for orphan")
		} else {
			resp.FieldMatches = candidates
		}
	}

	log.WithFields(map[string]any{
		"suggestions":   resp.TotalSuggestions,
		"field_matches": len(resp.FieldMatches),
	}).Debug("Built orphan suggestions")
	return resp, nil
}

// lookup runs every query in parallel and joins the matches before returning
func (s *Service) lookup(ctx context.Context, queries []matching.Query) ([]models.MatchResult, error) {
	results := make([][]models.MatchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set := s.matcher.Run(gctx, q, s.config.Threshold)
			if len(set.TierErrors) > 0 {
				s.logger.WithContext(gctx).WithFields(map[string]any{
					"kind":        q.Kind,
					"tier_errors": set.TierErrors,
				}).Warn("Suggestion lookup returned partial results")
			}
			results[i] = set.Matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []models.MatchResult
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// group sorts by confidence, keeps the first match per record and buckets by tier
func group(sourceID string, sourceType models.OwnerType, matches []models.MatchResult) *models.SuggestionResponse {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	seen := map[string]struct{}{}
	byTier := map[models.ConfidenceTier][]models.MatchResult{}
	total := 0
	for _, m := range matches {
		if _, dup := seen[m.MatchedRecordID]; dup {
			continue
		}
		seen[m.MatchedRecordID] = struct{}{}
		tier, ok := models.TierFor(m.Confidence)
		if !ok {
			continue
		}
		byTier[tier] = append(byTier[tier], m)
		total++
	}

	resp := &models.SuggestionResponse{
		SourceID:         sourceID,
		SourceType:       sourceType,
		Groups:           []models.SuggestionGroup{},
		TotalSuggestions: total,
	}
	for _, tier := range []models.ConfidenceTier{models.TierHigh, models.TierMedium, models.TierLow} {
		if len(byTier[tier]) == 0 {
			continue
		}
		resp.Groups = append(resp.Groups, models.SuggestionGroup{ConfidenceTier: tier, Matches: byTier[tier]})
		metrics.SuggestionsServed.WithLabelValues(string(sourceType), string(tier)).Add(float64(len(byTier[tier])))
	}
	return resp
}

func notFoundOr(op, resource, id string, err error) error {
	if store.IsNotFound(err) {
		return linkerr.NotFound(op, resource, id)
	}
	return errors.Wrapf(err, "failed to load %s", resource)
}
