package linking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/store/memory"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (o *recordingObserver) Name() string { return "recording" }

func (o *recordingObserver) Observe(_ context.Context, event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return o.err
}

// failingAuditStore commits nothing because the final audit append fails
type failingAuditStore struct {
	*memory.Store
}

func (s failingAuditStore) AppendAudit(context.Context, *models.AuditAction) error {
	return errors.New("disk full")
}

type fixture struct {
	store    *memory.Store
	observer *recordingObserver
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := memory.New()
	observer := &recordingObserver{}
	return &fixture{
		store:    s,
		observer: observer,
		service:  NewService(logger, s, normalizers.New(), NewKeyedLocker(), DefaultConfig(), observer),
	}
}

func (f *fixture) subject(t *testing.T, id string, profile models.Profile) {
	t.Helper()
	require.NoError(t, f.store.CreateSubject(context.Background(), &models.Subject{ID: id, Name: id, Profile: profile}))
}

func (f *fixture) orphan(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.CreateOrphan(context.Background(), &models.Orphan{
		ID:              id,
		IdentifierType:  models.KindEmail,
		IdentifierValue: "Lost@Example.com",
		NormalizedValue: "lost@example.com",
		Confidence:      0.6,
	}))
}

func (f *fixture) orphanValue(t *testing.T, id string, kind models.IdentifierKind, value string) {
	t.Helper()
	require.NoError(t, f.store.CreateOrphan(context.Background(), &models.Orphan{
		ID:              id,
		IdentifierType:  kind,
		IdentifierValue: value,
		NormalizedValue: value,
		Confidence:      0.6,
	}))
}

func (f *fixture) record(t *testing.T, id string, owner models.Owner, value string) {
	t.Helper()
	rec := &models.IdentifierRecord{
		ID:              id,
		Kind:            models.KindEmail,
		RawValue:        value,
		NormalizedValue: value,
		SearchValue:     value,
	}
	rec.SetOwner(owner)
	require.NoError(t, f.store.CreateRecord(context.Background(), rec))
}

func (f *fixture) owned(t *testing.T, owner models.Owner) int {
	t.Helper()
	records, err := f.store.ListRecordsByOwner(context.Background(), owner)
	require.NoError(t, err)
	return len(records)
}

func (f *fixture) auditCount(t *testing.T) int {
	t.Helper()
	actions, err := f.store.ListAuditActions(context.Background(), 0)
	require.NoError(t, err)
	return len(actions)
}

func TestMergeSubjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.subject(t, "a", models.Profile{"core": {"email": models.List("a@x.com")}})
	f.subject(t, "b", models.Profile{"core": {"email": models.List("b@x.com"), "dob": models.Scalar("1980-01-01")}})
	f.subject(t, "c", nil)
	f.record(t, "ra1", models.SubjectOwner("a"), "a@x.com")
	f.record(t, "rb1", models.SubjectOwner("b"), "b@x.com")
	f.record(t, "rb2", models.SubjectOwner("b"), "b2@x.com")
	require.NoError(t, f.store.CreateRelationship(ctx, &models.Relationship{Type: "knows", FromID: "b", ToID: "c"}))

	beforeA := f.owned(t, models.SubjectOwner("a"))
	beforeB := f.owned(t, models.SubjectOwner("b"))

	result, err := f.service.MergeSubjects(ctx, models.MergeSubjectsRequest{
		SubjectAID: "a",
		SubjectBID: "b",
		KeepID:     "a",
		Reason:     "same person",
		CreatedBy:  "analyst",
	})
	require.NoError(t, err)

	assert.Equal(t, "a", result.KeptSubjectID)
	assert.Equal(t, "b", result.MergedSubjectID)
	assert.Equal(t, 2, result.RecordsMoved)
	assert.Equal(t, 1, result.RelationshipsMoved)
	assert.Equal(t, 1, result.ProfileFieldsAdded)
	assert.NotEmpty(t, result.AuditActionID)

	assert.Equal(t, beforeA+beforeB, f.owned(t, models.SubjectOwner("a")))
	assert.Equal(t, 0, f.owned(t, models.SubjectOwner("b")))

	merged, err := f.store.GetSubject(ctx, "b")
	require.NoError(t, err, "merged subject must be retained")
	assert.True(t, merged.IsMerged())
	assert.Equal(t, "a", *merged.MergedInto)

	kept, err := f.store.GetSubject(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []any{"a@x.com", "b@x.com"}, kept.Profile["core"]["email"].List)
	assert.Equal(t, "1980-01-01", kept.Profile["core"]["dob"].Scalar)

	_, err = f.store.GetRelationship(ctx, "knows", "a", "c")
	assert.NoError(t, err)
	_, err = f.store.GetRelationship(ctx, models.RelationshipMergedInto, "b", "a")
	assert.NoError(t, err)

	actions, err := f.store.ListAuditActions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.AuditMergeSubjects, actions[0].ActionType)
	assert.Equal(t, "same person", actions[0].Reason)
	assert.Equal(t, "analyst", actions[0].CreatedBy)

	require.Len(t, f.observer.events, 1)
	assert.ElementsMatch(t, []string{"rb1", "rb2"}, f.observer.events[0].MovedRecordIDs)
	assert.Equal(t, models.SubjectOwner("a"), f.observer.events[0].NewOwner)
}

func TestMergeSubjects_KeepSecond(t *testing.T) {
	f := newFixture(t)
	f.subject(t, "a", nil)
	f.subject(t, "b", nil)
	f.record(t, "ra1", models.SubjectOwner("a"), "a@x.com")

	result, err := f.service.MergeSubjects(context.Background(), models.MergeSubjectsRequest{
		SubjectAID: "a", SubjectBID: "b", KeepID: "b", Reason: "dup",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", result.KeptSubjectID)
	assert.Equal(t, "a", result.MergedSubjectID)
	assert.Equal(t, 1, f.owned(t, models.SubjectOwner("b")))
}

func TestMergeSubjects_Rejections(t *testing.T) {
	f := newFixture(t)
	f.subject(t, "a", nil)
	f.subject(t, "b", nil)
	f.subject(t, "gone", nil)
	require.NoError(t, f.store.MarkSubjectMerged(context.Background(), "gone", "a", f.service.now()))

	tests := []struct {
		name  string
		req   models.MergeSubjectsRequest
		check func(error) bool
	}{
		{"empty reason", models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "b", KeepID: "a"}, linkerr.IsValidation},
		{"blank reason", models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "b", KeepID: "a", Reason: "  \t"}, linkerr.IsValidation},
		{"keep not in pair", models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "b", KeepID: "c", Reason: "x"}, linkerr.IsValidation},
		{"self merge", models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "a", KeepID: "a", Reason: "x"}, linkerr.IsValidation},
		{"missing subject", models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "zzz", KeepID: "a", Reason: "x"}, linkerr.IsNotFound},
		{"already merged", models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "gone", KeepID: "a", Reason: "x"}, linkerr.IsConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.MergeSubjects(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	assert.Equal(t, 0, f.auditCount(t))
	assert.Empty(t, f.observer.events)
}

func TestMergeSubjects_RollsBackOnFailure(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	mem := memory.New()
	svc := NewService(logger, failingAuditStore{mem}, nil, nil, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, mem.CreateSubject(ctx, &models.Subject{ID: "a"}))
	require.NoError(t, mem.CreateSubject(ctx, &models.Subject{ID: "b", Profile: models.Profile{"core": {"dob": models.Scalar("x")}}}))
	rec := &models.IdentifierRecord{ID: "rb", Kind: models.KindEmail, NormalizedValue: "b@x.com"}
	rec.SetOwner(models.SubjectOwner("b"))
	require.NoError(t, mem.CreateRecord(ctx, rec))

	_, err := svc.MergeSubjects(ctx, models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "b", KeepID: "a", Reason: "dup"})
	require.Error(t, err)
	assert.True(t, linkerr.IsMutationFailure(err))

	b, err := mem.GetSubject(ctx, "b")
	require.NoError(t, err)
	assert.False(t, b.IsMerged())
	moved, err := mem.GetRecord(ctx, "rb")
	require.NoError(t, err)
	assert.Equal(t, models.SubjectOwner("b"), moved.Owner())
	a, err := mem.GetSubject(ctx, "a")
	require.NoError(t, err)
	_, ok := a.Profile.Get("core.dob")
	assert.False(t, ok)
}

func TestMergeSubjects_ConcurrentOverlap(t *testing.T) {
	f := newFixture(t)
	f.subject(t, "a", nil)
	f.subject(t, "b", nil)
	f.subject(t, "c", nil)
	f.record(t, "rb", models.SubjectOwner("b"), "b@x.com")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, keep := range []string{"a", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.MergeSubjects(context.Background(), models.MergeSubjectsRequest{
				SubjectAID: keep, SubjectBID: "b", KeepID: keep, Reason: "race",
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, linkerr.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.owned(t, models.SubjectOwner("a"))+f.owned(t, models.SubjectOwner("c")))
	assert.Equal(t, 1, f.auditCount(t))
}

func TestLinkRecords(t *testing.T) {
	f := newFixture(t)
	f.subject(t, "a", nil)
	f.record(t, "r1", models.SubjectOwner("a"), "a@x.com")
	f.record(t, "r2", models.Owner{}, "a@x.com")
	ctx := context.Background()

	result, err := f.service.LinkRecords(ctx, models.LinkRecordsRequest{RecordAID: "r1", RecordBID: "r2", Reason: "same mailbox"})
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipLinked, result.Relationship.Type)
	assert.Equal(t, 0.8, result.Relationship.Confidence)
	assert.NotEmpty(t, result.AuditActionID)

	again, err := f.service.LinkRecords(ctx, models.LinkRecordsRequest{RecordAID: "r2", RecordBID: "r1", Reason: "same mailbox"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyLinked)
	assert.Equal(t, result.Relationship.ID, again.Relationship.ID)
	assert.NotEmpty(t, result.AuditActionID)
	assert.Empty(t, again.AuditActionID)
	assert.Equal(t, 1, f.auditCount(t))
	assert.Len(t, f.observer.events, 1)

	// ownership is untouched by a link
	r2, err := f.store.GetRecord(ctx, "r2")
	require.NoError(t, err)
	assert.True(t, r2.Owner().IsZero())
}

func TestLinkRecords_Rejections(t *testing.T) {
	f := newFixture(t)
	f.record(t, "r1", models.Owner{}, "a@x.com")
	f.record(t, "r2", models.Owner{}, "b@x.com")
	tooHigh := 1.5

	tests := []struct {
		name  string
		req   models.LinkRecordsRequest
		check func(error) bool
	}{
		{"empty reason", models.LinkRecordsRequest{RecordAID: "r1", RecordBID: "r2"}, linkerr.IsValidation},
		{"self link", models.LinkRecordsRequest{RecordAID: "r1", RecordBID: "r1", Reason: "x"}, linkerr.IsValidation},
		{"bad confidence", models.LinkRecordsRequest{RecordAID: "r1", RecordBID: "r2", Reason: "x", Confidence: &tooHigh}, linkerr.IsValidation},
		{"missing record", models.LinkRecordsRequest{RecordAID: "r1", RecordBID: "nope", Reason: "x"}, linkerr.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.LinkRecords(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
	assert.Equal(t, 0, f.auditCount(t))
}

func TestLinkOrphan(t *testing.T) {
	t.Run("moves owned records and resolves", func(t *testing.T) {
		f := newFixture(t)
		f.subject(t, "s", nil)
		f.orphan(t, "o")
		f.record(t, "ro", models.OrphanOwner("o"), "lost@example.com")

		result, err := f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{OrphanID: "o", SubjectID: "s", Reason: "confirmed"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.RecordsMoved)
		assert.False(t, result.RecordCreated)
		assert.False(t, result.OrphanDeleted)

		orphan, err := f.store.GetOrphan(context.Background(), "o")
		require.NoError(t, err)
		assert.True(t, orphan.Resolved)
		assert.Equal(t, "s", *orphan.LinkedSubjectID)
		assert.Equal(t, 1, f.owned(t, models.SubjectOwner("s")))
		assert.Equal(t, 0, f.owned(t, models.OrphanOwner("o")))

		_, err = f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{OrphanID: "o", SubjectID: "s", Reason: "again"})
		assert.True(t, linkerr.IsConflict(err))
		assert.Equal(t, 1, f.auditCount(t))
	})

	t.Run("records identifier and deletes on request", func(t *testing.T) {
		f := newFixture(t)
		f.subject(t, "s", nil)
		f.orphan(t, "o")

		result, err := f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{
			OrphanID: "o", SubjectID: "s", Reason: "confirmed", DeleteOrphan: true,
		})
		require.NoError(t, err)
		assert.True(t, result.RecordCreated)
		assert.True(t, result.OrphanDeleted)

		_, err = f.store.GetOrphan(context.Background(), "o")
		assert.Error(t, err)

		records, err := f.store.ListRecordsByOwner(context.Background(), models.SubjectOwner("s"))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "lost@example.com", records[0].NormalizedValue)
		assert.Equal(t, "Lost@Example.com", records[0].RawValue)
	})

	created := []struct {
		name       string
		kind       models.IdentifierKind
		value      string
		normalized string
		search     string
		hash       string
	}{
		{
			name: "phone uses normalizer search form", kind: models.KindPhone, value: "+1 (555) 123-4567",
			normalized: "+15551234567", search: "15551234567",
		},
		{
			name: "file content is hashed", kind: models.KindFile, value: "contract body",
			hash: matching.ComputeContentHash([]byte("contract body")),
		},
		{
			name: "file hash value kept as hash", kind: models.KindFileHash,
			value:      "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855",
			normalized: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			search:     "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			hash:       "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}
	for _, tt := range created {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.subject(t, "s", nil)
			f.orphanValue(t, "o", tt.kind, tt.value)

			result, err := f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{OrphanID: "o", SubjectID: "s", Reason: "confirmed"})
			require.NoError(t, err)
			require.True(t, result.RecordCreated)

			records, err := f.store.ListRecordsByOwner(context.Background(), models.SubjectOwner("s"))
			require.NoError(t, err)
			require.Len(t, records, 1)
			rec := records[0]
			assert.Equal(t, tt.value, rec.RawValue)

			want := normalizers.New().Normalize(tt.value, tt.kind, models.Hints{})
			assert.Equal(t, want.Normalized, rec.NormalizedValue)
			assert.Equal(t, want.SearchForm, rec.SearchValue)
			if tt.normalized != "" {
				assert.Equal(t, tt.normalized, rec.NormalizedValue)
				assert.Equal(t, tt.search, rec.SearchValue)
			}
			if tt.hash == "" {
				assert.Nil(t, rec.ContentHash)
				return
			}
			require.NotNil(t, rec.ContentHash)
			assert.Equal(t, tt.hash, *rec.ContentHash)
		})
	}

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		f.subject(t, "s", nil)
		f.orphan(t, "o")

		_, err := f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{OrphanID: "o", SubjectID: "s"})
		assert.True(t, linkerr.IsValidation(err))
		_, err = f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{OrphanID: "missing", SubjectID: "s", Reason: "x"})
		assert.True(t, linkerr.IsNotFound(err))
		_, err = f.service.LinkOrphan(context.Background(), models.LinkOrphanRequest{OrphanID: "o", SubjectID: "missing", Reason: "x"})
		assert.True(t, linkerr.IsNotFound(err))
		assert.Equal(t, 0, f.auditCount(t))
	})
}

func TestDismissSuggestion(t *testing.T) {
	f := newFixture(t)
	f.subject(t, "s", nil)
	f.subject(t, "other", nil)
	f.record(t, "r", models.SubjectOwner("other"), "x@x.com")
	f.record(t, "mine", models.SubjectOwner("s"), "y@x.com")
	ctx := context.Background()
	req := models.DismissSuggestionRequest{SubjectID: "s", RecordID: "r", Reason: "different person"}

	first, err := f.service.DismissSuggestion(ctx, req)
	require.NoError(t, err)
	assert.True(t, first.Dismissed)
	assert.False(t, first.AlreadyDismissed)
	assert.NotEmpty(t, first.AuditActionID)

	second, err := f.service.DismissSuggestion(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Dismissed)
	assert.True(t, second.AlreadyDismissed)
	assert.Empty(t, second.AuditActionID)
	assert.Equal(t, 1, f.auditCount(t))

	dismissed, err := f.store.DismissedRecordIDs(ctx, "s")
	require.NoError(t, err)
	assert.Contains(t, dismissed, "r")

	_, err = f.service.DismissSuggestion(ctx, models.DismissSuggestionRequest{SubjectID: "s", RecordID: "r"})
	assert.True(t, linkerr.IsValidation(err))
	_, err = f.service.DismissSuggestion(ctx, models.DismissSuggestionRequest{SubjectID: "s", RecordID: "mine", Reason: "x"})
	assert.True(t, linkerr.IsValidation(err))
	_, err = f.service.DismissSuggestion(ctx, models.DismissSuggestionRequest{SubjectID: "s", RecordID: "nope", Reason: "x"})
	assert.True(t, linkerr.IsNotFound(err))

	undone, err := f.service.UndismissSuggestion(ctx, models.DismissSuggestionRequest{SubjectID: "s", RecordID: "r", Reason: "changed my mind"})
	require.NoError(t, err)
	assert.False(t, undone.Dismissed)
	assert.Equal(t, 2, f.auditCount(t))

	dismissed, err = f.store.DismissedRecordIDs(ctx, "s")
	require.NoError(t, err)
	assert.NotContains(t, dismissed, "r")

	_, err = f.service.UndismissSuggestion(ctx, models.DismissSuggestionRequest{SubjectID: "s", RecordID: "r", Reason: "again"})
	assert.True(t, linkerr.IsNotFound(err))
	assert.Equal(t, 2, f.auditCount(t))
}

func TestObserverFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.observer.err = errors.New("broker down")
	f.record(t, "r1", models.Owner{}, "a@x.com")
	f.record(t, "r2", models.Owner{}, "b@x.com")

	result, err := f.service.LinkRecords(context.Background(), models.LinkRecordsRequest{RecordAID: "r1", RecordBID: "r2", Reason: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AuditActionID)
	assert.Equal(t, 1, f.auditCount(t))
	assert.Len(t, f.observer.events, 1)
}

func TestMutations_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.subject(t, "a", nil)
	f.subject(t, "b", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.MergeSubjects(ctx, models.MergeSubjectsRequest{SubjectAID: "a", SubjectBID: "b", KeepID: "a", Reason: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.auditCount(t))
}
