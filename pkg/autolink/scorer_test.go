package autolink

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/store/memory"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func addSubject(t *testing.T, s *memory.Store, id string, fields map[string]models.ProfileValue) {
	t.Helper()
	profile := models.Profile{}
	for path, v := range fields {
		require.NoError(t, profile.Set(path, v))
	}
	require.NoError(t, s.CreateSubject(context.Background(), &models.Subject{ID: id, Name: id, Profile: profile}))
}

func newTestScorer(s *memory.Store, cfg Config) *Scorer {
	return NewScorer(testLogger(), s, normalizers.New(), nil, cfg)
}

func TestScorer_SuggestSubjects(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	addSubject(t, s, "exact", map[string]models.ProfileValue{
		"contact.emails": models.List("other@example.com", "John.Smith@Example.com"),
	})
	addSubject(t, s, "fuzzy", map[string]models.ProfileValue{
		"core.email": models.Scalar("john.smith@example.co"),
	})
	addSubject(t, s, "unrelated", map[string]models.ProfileValue{
		"core.email": models.Scalar("someone@else.org"),
	})
	scorer := newTestScorer(s, DefaultConfig())

	candidates, err := scorer.SuggestSubjects(ctx, "email", "john.smith@example.com", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "exact", candidates[0].SubjectID)
	assert.Equal(t, ScoreExact, candidates[0].Score)
	assert.Equal(t, MethodExact, candidates[0].Method)
	assert.Equal(t, "contact.emails", candidates[0].FieldPath)

	assert.Equal(t, "fuzzy", candidates[1].SubjectID)
	assert.Equal(t, ScoreFuzzyHigh, candidates[1].Score)
	assert.Equal(t, MethodFuzzy, candidates[1].Method)
}

func TestScorer_Limit(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for _, id := range []string{"a", "b", "c"} {
		addSubject(t, s, id, map[string]models.ProfileValue{"core.email": models.Scalar("x@y.com")})
	}
	scorer := newTestScorer(s, DefaultConfig())

	candidates, err := scorer.SuggestSubjects(ctx, "email", "x@y.com", 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a", candidates[0].SubjectID)
	assert.Equal(t, "b", candidates[1].SubjectID)
}

func TestScorer_PhoneUsesRegionHint(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	addSubject(t, s, "s1", map[string]models.ProfileValue{"contact.phone": models.Scalar("(555) 123-4567")})
	scorer := newTestScorer(s, Config{Hints: models.Hints{DefaultRegion: "US"}})

	candidates, err := scorer.SuggestSubjects(ctx, "phone", "+1 555 123 4567", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, ScoreExact, candidates[0].Score)
}

func TestScorer_SubstringBelowThreshold(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	addSubject(t, s, "s1", map[string]models.ProfileValue{"online.domains": models.List("mail.example.com")})

	scorer := newTestScorer(s, DefaultConfig())
	candidates, err := scorer.SuggestSubjects(ctx, "domain", "example.com", 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	lenient := newTestScorer(s, Config{MinScore: 1})
	candidates, err = lenient.SuggestSubjects(ctx, "domain", "example.com", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, ScoreSubstring, candidates[0].Score)
	assert.Equal(t, MethodSubstring, candidates[0].Method)
}

func TestScorer_SkipsMergedSubjects(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	addSubject(t, s, "old", map[string]models.ProfileValue{"core.email": models.Scalar("x@y.com")})
	require.NoError(t, s.MarkSubjectMerged(ctx, "old", "new", time.Now()))

	candidates, err := newTestScorer(s, DefaultConfig()).SuggestSubjects(ctx, "email", "x@y.com", 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestScorer_Validation(t *testing.T) {
	scorer := newTestScorer(memory.New(), DefaultConfig())

	_, err := scorer.SuggestSubjects(context.Background(), "", "x", 0)
	assert.True(t, linkerr.IsValidation(err))

	_, err = scorer.SuggestSubjects(context.Background(), "email", "x@y.com", -1)
	assert.True(t, linkerr.IsValidation(err))

	candidates, err := scorer.SuggestSubjects(context.Background(), "date", "2021-01-01", 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
