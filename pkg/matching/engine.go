// Package matching finds identifier records that may describe the same
// subject as a given value, in three tiers: content hash, exact normalized
// string and fuzzy string similarity.
package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// RecordFinder is the read side of the record store the engine searches
type RecordFinder interface {
	FindRecordsByNormalized(ctx context.Context, kind models.IdentifierKind, normalized string) ([]models.IdentifierRecord, error)
	FindRecordsByContentHash(ctx context.Context, hash string) ([]models.IdentifierRecord, error)
	ListCandidateRecords(ctx context.Context, kind models.IdentifierKind, limit int) ([]models.IdentifierRecord, error)
}

// Config contains configuration for the match engine
type Config struct {
	FuzzyCandidateLimit int           // Maximum records scored by the partial tier (default: 500)
	TierTimeout         time.Duration // Deadline for each tier (default: 2s)
	Hints               models.Hints  // Hints applied when FindAllMatches normalizes a raw value
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		FuzzyCandidateLimit: 500,
		TierTimeout:         2 * time.Second,
	}
}

// Engine runs the matching tiers against a RecordFinder. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	logger     ectologger.Logger
	records    RecordFinder
	normalizer *normalizers.Normalizer
	scorer     *Scorer
	config     Config
}

// NewEngine creates a new match engine
func NewEngine(logger ectologger.Logger, records RecordFinder, normalizer *normalizers.Normalizer, config Config) *Engine {
	defaults := DefaultConfig()
	if config.FuzzyCandidateLimit <= 0 {
		config.FuzzyCandidateLimit = defaults.FuzzyCandidateLimit
	}
	if config.TierTimeout <= 0 {
		config.TierTimeout = defaults.TierTimeout
	}
	return &Engine{
		logger:     logger,
		records:    records,
		normalizer: normalizer,
		scorer:     NewScorer(),
		config:     config,
	}
}

// Scorer returns the engine's similarity scorer
func (e *Engine) Scorer() *Scorer {
	return e.scorer
}

// ComputeContentHash returns the lower-case hex SHA-256 of content
func ComputeContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ContentHashFor returns the hash stored for a file-like value: a value that
// already looks like a hash is used as-is in lower case, anything else is
// hashed as content
func ContentHashFor(raw string) string {
	value := strings.TrimSpace(raw)
	if _, ok := normalizers.HashAlgorithm(value); ok {
		return strings.ToLower(value)
	}
	return ComputeContentHash([]byte(raw))
}

// FindExactHashMatches returns records whose content hash equals hash. Hashes
// must be 32, 40 or 64 hex characters.
func (e *Engine) FindExactHashMatches(ctx context.Context, hash string) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindExactHashMatches")
	defer span.End()

	hash = strings.ToLower(strings.TrimSpace(hash))
	if _, ok := normalizers.HashAlgorithm(hash); !ok {
		return nil, linkerr.Validation("matching.FindExactHashMatches", "hash must be 32, 40 or 64 hex characters")
	}

	records, err := e.records.FindRecordsByContentHash(ctx, hash)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.Wrap(err, "failed to find records by content hash")
	}

	out := make([]models.MatchResult, 0, len(records))
	for i := range records {
		out = append(out, toMatch(&records[i], models.MatchTypeExactHash, ExactHashConfidence, 0))
	}
	return out, nil
}

// FindExactStringMatches returns records of kind whose normalized value equals normalized
func (e *Engine) FindExactStringMatches(ctx context.Context, kind models.IdentifierKind, normalized string) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindExactStringMatches")
	defer span.End()

	if normalized == "" {
		return nil, linkerr.Validation("matching.FindExactStringMatches", "normalized value is required")
	}

	records, err := e.records.FindRecordsByNormalized(ctx, kind, normalized)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.Wrap(err, "failed to find records by normalized value")
	}

	out := make([]models.MatchResult, 0, len(records))
	for i := range records {
		out = append(out, toMatch(&records[i], models.MatchTypeExactString, ExactStringConfidence, 0))
	}
	return out, nil
}

// FindPartialMatches scores candidate records of kind against search and
// returns those at or above threshold whose similarity maps to a confidence.
// Records the exact tiers also found are scored here too; callers that want
// one match per record dedupe across tiers. A threshold of 0 means
// DefaultThreshold.
func (e *Engine) FindPartialMatches(ctx context.Context, kind models.IdentifierKind, search string, threshold float64) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindPartialMatches")
	defer span.End()

	threshold, err := resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}
	if search == "" {
		return nil, linkerr.Validation("matching.FindPartialMatches", "search value is required")
	}

	candidates, err := e.records.ListCandidateRecords(ctx, kind, e.config.FuzzyCandidateLimit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.Wrap(err, "failed to list candidate records")
	}

	var out []models.MatchResult
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &candidates[i]
		similarity := e.scorer.Similarity(kind, search, rec.SearchValue)
		if similarity < threshold {
			continue
		}
		confidence, ok := ConfidenceForSimilarity(similarity)
		if !ok {
			continue
		}
		out = append(out, toMatch(rec, models.MatchTypePartialString, confidence, similarity))
	}
	sortByConfidence(out)
	return out, nil
}

// FindAllMatches normalizes raw with the engine's configured hints and runs every tier
func (e *Engine) FindAllMatches(ctx context.Context, raw string, kind models.IdentifierKind, threshold float64) (*models.MatchSet, error) {
	return e.FindAllMatchesWithHints(ctx, raw, kind, e.config.Hints, threshold)
}

// FindAllMatchesWithHints normalizes raw with hints and runs every tier.
// File-like kinds use a hash-shaped value directly and hash anything else.
func (e *Engine) FindAllMatchesWithHints(ctx context.Context, raw string, kind models.IdentifierKind, hints models.Hints, threshold float64) (*models.MatchSet, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindAllMatches")
	defer span.End()

	if _, err := resolveThreshold(threshold); err != nil {
		return nil, err
	}

	norm := e.normalizer.Normalize(raw, kind, hints)
	q := Query{
		Kind:       norm.Kind,
		Normalized: norm.Normalized,
		Search:     norm.SearchForm,
	}
	if norm.Kind.IsFileLike() {
		q.Hash = ContentHashFor(raw)
	}

	set := e.Run(ctx, q, threshold)
	set.Query = raw
	return set, nil
}

// Query is an already normalized value to match
type Query struct {
	Kind       models.IdentifierKind
	Normalized string
	Search     string
	Hash       string
}

// QueryForRecord builds a query from a stored record's forms
func QueryForRecord(rec *models.IdentifierRecord) Query {
	q := Query{Kind: rec.Kind, Normalized: rec.NormalizedValue, Search: rec.SearchValue}
	if rec.ContentHash != nil {
		q.Hash = *rec.ContentHash
	}
	return q
}

type tierResult struct {
	tier    models.MatchType
	matches []models.MatchResult
	err     error
}

// Run executes the tiers that apply to q concurrently, each under its own
// timeout. A failed tier is reported in TierErrors and the others still count.
func (e *Engine) Run(ctx context.Context, q Query, threshold float64) *models.MatchSet {
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"kind": q.Kind,
	})

	type tier struct {
		name models.MatchType
		run  func(ctx context.Context) ([]models.MatchResult, error)
	}
	var tiers []tier
	if q.Hash != "" {
		tiers = append(tiers, tier{models.MatchTypeExactHash, func(ctx context.Context) ([]models.MatchResult, error) {
			return e.FindExactHashMatches(ctx, q.Hash)
		}})
	}
	if q.Normalized != "" {
		tiers = append(tiers, tier{models.MatchTypeExactString, func(ctx context.Context) ([]models.MatchResult, error) {
			return e.FindExactStringMatches(ctx, q.Kind, q.Normalized)
		}})
	}
	if q.Search != "" {
		tiers = append(tiers, tier{models.MatchTypePartialString, func(ctx context.Context) ([]models.MatchResult, error) {
			return e.FindPartialMatches(ctx, q.Kind, q.Search, threshold)
		}})
	}

	results := make([]tierResult, len(tiers))
	var wg sync.WaitGroup
	for i, t := range tiers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started := time.Now()
			matches, err := runWithTimeout(ctx, e.config.TierTimeout, t.run)
			metrics.ObserveTier(string(t.name), started, len(matches), err)
			results[i] = tierResult{tier: t.name, matches: matches, err: err}
		}()
	}
	wg.Wait()

	set := &models.MatchSet{Kind: q.Kind, Normalized: q.Normalized, Matches: []models.MatchResult{}}
	for _, r := range results {
		if r.err != nil {
			log.WithError(r.err).WithField("tier", r.tier).Warn("Matching tier failed")
			if set.TierErrors == nil {
				set.TierErrors = map[models.MatchType]string{}
			}
			set.TierErrors[r.tier] = r.err.Error()
			continue
		}
		set.Matches = append(set.Matches, r.matches...)
	}
	sortByConfidence(set.Matches)

	log.WithField("matches", len(set.Matches)).Debug("Matching complete")
	return set
}

// runWithTimeout abandons fn when its deadline passes; fn keeps running in
// the background until the store call returns
func runWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) ([]models.MatchResult, error)) ([]models.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan tierResult, 1)
	go func() {
		matches, err := fn(ctx)
		done <- tierResult{matches: matches, err: err}
	}()

	select {
	case r := <-done:
		return r.matches, r.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "matching tier abandoned")
	}
}

func resolveThreshold(threshold float64) (float64, error) {
	if threshold == 0 {
		return DefaultThreshold, nil
	}
	if threshold < MinThreshold || threshold > MaxThreshold {
		return 0, linkerr.Validation("matching.FindPartialMatches", "threshold must be between %.1f and %.1f", MinThreshold, MaxThreshold)
	}
	return threshold, nil
}

func sortByConfidence(matches []models.MatchResult) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
}

func toMatch(rec *models.IdentifierRecord, matchType models.MatchType, confidence, similarity float64) models.MatchResult {
	owner := rec.Owner()
	return models.MatchResult{
		SubjectOrOrphanID: owner.ID,
		OwnerType:         owner.Type,
		MatchedRecordID:   rec.ID,
		FieldKind:         rec.Kind,
		FieldValue:        rec.NormalizedValue,
		Confidence:        confidence,
		MatchType:         matchType,
		Similarity:        similarity,
	}
}
