package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

func seedSubject(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateSubject(context.Background(), &models.Subject{ID: id, Name: id}))
}

func seedRecord(t *testing.T, s *Store, id string, owner models.Owner, kind models.IdentifierKind, normalized string) {
	t.Helper()
	rec := &models.IdentifierRecord{ID: id, Kind: kind, RawValue: normalized, NormalizedValue: normalized, SearchValue: normalized}
	rec.SetOwner(owner)
	require.NoError(t, s.CreateRecord(context.Background(), rec))
}

func TestStore_Records(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedSubject(t, s, "s1")
	seedRecord(t, s, "r1", models.SubjectOwner("s1"), models.KindEmail, "a@b.com")
	seedRecord(t, s, "r2", models.OrphanOwner("o1"), models.KindEmail, "a@b.com")
	seedRecord(t, s, "r3", models.Owner{}, models.KindEmail, "a@b.com")

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.GetRecord(ctx, "missing")
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("FindByNormalizedSkipsUnowned", func(t *testing.T) {
		recs, err := s.FindRecordsByNormalized(ctx, models.KindEmail, "a@b.com")
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("ByOwner", func(t *testing.T) {
		recs, err := s.ListRecordsByOwner(ctx, models.SubjectOwner("s1"))
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "r1", recs[0].ID)
	})

	t.Run("CandidateLimit", func(t *testing.T) {
		recs, err := s.ListCandidateRecords(ctx, models.KindEmail, 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		rec, err := s.GetRecord(ctx, "r1")
		require.NoError(t, err)
		rec.NormalizedValue = "changed"

		again, err := s.GetRecord(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", again.NormalizedValue)
	})
}

func TestStore_ReassignOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedRecord(t, s, "r1", models.SubjectOwner("a"), models.KindEmail, "x@y.com")
	seedRecord(t, s, "r2", models.SubjectOwner("a"), models.KindPhone, "+15551234567")
	seedRecord(t, s, "r3", models.SubjectOwner("b"), models.KindPhone, "+15550000000")

	moved, err := s.ReassignOwner(ctx, models.SubjectOwner("a"), models.SubjectOwner("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	recs, err := s.ListRecordsByOwner(ctx, models.SubjectOwner("b"))
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		s := New()
		err := s.WithinTx(ctx, func(ctx context.Context) error {
			return s.CreateSubject(ctx, &models.Subject{ID: "s1"})
		})
		require.NoError(t, err)

		_, err = s.GetSubject(ctx, "s1")
		assert.NoError(t, err)
	})

	t.Run("DiscardsOnError", func(t *testing.T) {
		s := New()
		seedSubject(t, s, "s1")
		boom := errors.New("boom")

		err := s.WithinTx(ctx, func(ctx context.Context) error {
			require.NoError(t, s.MarkSubjectMerged(ctx, "s1", "s2", time.Now()))
			require.NoError(t, s.AppendAudit(ctx, &models.AuditAction{ActionType: models.AuditMergeSubjects, Reason: "r"}))

			subj, err := s.GetSubject(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, subj.IsMerged())
			return boom
		})
		assert.ErrorIs(t, err, boom)

		subj, err := s.GetSubject(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, subj.IsMerged())
		actions, err := s.ListAuditActions(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, actions)
	})

	t.Run("NestedJoins", func(t *testing.T) {
		s := New()
		err := s.WithinTx(ctx, func(ctx context.Context) error {
			return s.WithinTx(ctx, func(ctx context.Context) error {
				return s.CreateSubject(ctx, &models.Subject{ID: "nested"})
			})
		})
		require.NoError(t, err)
		_, err = s.GetSubject(ctx, "nested")
		assert.NoError(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := New()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		called := false
		err := s.WithinTx(cctx, func(context.Context) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestStore_Relationships(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateRelationship(ctx, &models.Relationship{Type: models.RelationshipDismissed, FromID: "a", ToID: "r1"}))
	require.NoError(t, s.CreateRelationship(ctx, &models.Relationship{Type: models.RelationshipDismissed, FromID: "a", ToID: "r2"}))
	require.NoError(t, s.CreateRelationship(ctx, &models.Relationship{Type: models.RelationshipDismissed, FromID: "b", ToID: "r2"}))
	require.NoError(t, s.CreateRelationship(ctx, &models.Relationship{Type: "knows", FromID: "a", ToID: "b"}))

	err := s.CreateRelationship(ctx, &models.Relationship{Type: models.RelationshipDismissed, FromID: "a", ToID: "r1"})
	assert.Error(t, err)

	dismissed, err := s.DismissedRecordIDs(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, dismissed, 2)

	moved, err := s.RepointRelationships(ctx, "a", "b")
	require.NoError(t, err)
	// a->r1 moves; a->r2 duplicates b->r2; a->b would be a self edge
	assert.Equal(t, 1, moved)

	rels, err := s.ListRelationships(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	rels, err = s.ListRelationships(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, rels)

	rel, err := s.GetRelationship(ctx, models.RelationshipDismissed, "b", "r1")
	require.NoError(t, err)
	require.NoError(t, s.DeleteRelationship(ctx, rel.ID))
	_, err = s.GetRelationship(ctx, models.RelationshipDismissed, "b", "r1")
	assert.True(t, store.IsNotFound(err))
}

func TestStore_Orphans(t *testing.T) {
	ctx := context.Background()
	s := New()
	o := &models.Orphan{IdentifierType: models.KindPhone, IdentifierValue: "+15551234567"}
	require.NoError(t, s.CreateOrphan(ctx, o))
	require.NotEmpty(t, o.ID)

	require.NoError(t, s.ResolveOrphan(ctx, o.ID, "s1", time.Now()))
	got, err := s.GetOrphan(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.Equal(t, "s1", *got.LinkedSubjectID)

	require.NoError(t, s.DeleteOrphan(ctx, o.ID))
	_, err = s.GetOrphan(ctx, o.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestStore_ListSubjectsSkipsMerged(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedSubject(t, s, "a")
	seedSubject(t, s, "b")
	require.NoError(t, s.MarkSubjectMerged(ctx, "a", "b", time.Now()))

	subjects, err := s.ListSubjects(ctx, 0)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "b", subjects[0].ID)
}
