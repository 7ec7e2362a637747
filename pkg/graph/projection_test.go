package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/linking"
	"github.com/Ramsey-B/thistle/pkg/models"
)

type fakeWriter struct {
	batches [][]Statement
	err     error
}

func (w *fakeWriter) WriteStatements(_ context.Context, statements []Statement) error {
	w.batches = append(w.batches, statements)
	return w.err
}

func TestRelationshipLabel(t *testing.T) {
	tests := map[models.RelationshipType]string{
		models.RelationshipLinked:     "LINKED",
		models.RelationshipMergedInto: "MERGED_INTO",
		"works-for":                   "WORKSFOR",
		"}) DETACH DELETE":            "DETACHDELETE",
		"":                            "RELATED_TO",
	}
	for in, want := range tests {
		assert.Equal(t, want, relationshipLabel(in), "input %q", in)
	}
}

func TestStatements_Merge(t *testing.T) {
	event := linking.Event{
		Action: models.AuditAction{
			ID:         "act",
			ActionType: models.AuditMergeSubjects,
			Details:    map[string]any{"kept_subject_id": "keep", "merged_subject_id": "gone"},
		},
		Created: []models.Relationship{{
			ID: "rel", Type: models.RelationshipMergedInto, FromID: "gone", ToID: "keep", CreatedAt: time.Now(),
		}},
		MovedRecordIDs: []string{"r1", "r2"},
		NewOwner:       models.SubjectOwner("keep"),
	}

	statements := Statements(event)
	require.Len(t, statements, 3)

	assert.Contains(t, statements[0].Cypher, "OWNED_BY")
	assert.Equal(t, []string{"r1", "r2"}, statements[0].Params["record_ids"])
	assert.Equal(t, "gone", statements[1].Params["id"])
	assert.Contains(t, statements[2].Cypher, "MERGED_INTO")
	assert.Contains(t, statements[2].Cypher, "(a:Subject")
}

func TestStatements_Undismiss(t *testing.T) {
	event := linking.Event{
		Action:  models.AuditAction{ActionType: models.AuditUndismissSuggestion},
		Removed: []models.Relationship{{ID: "rel", Type: models.RelationshipDismissed}},
	}
	statements := Statements(event)
	require.Len(t, statements, 1)
	assert.True(t, strings.Contains(statements[0].Cypher, "DISMISSED"))
	assert.Equal(t, "rel", statements[0].Params["rel_id"])
}

func TestProjection_Observe(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	w := &fakeWriter{}
	p := NewProjection(w, logger)

	require.NoError(t, p.Observe(context.Background(), linking.Event{Action: models.AuditAction{ActionType: models.AuditLinkRecords}}))
	assert.Empty(t, w.batches, "nothing to write")

	w.err = errors.New("bolt unavailable")
	err := p.Observe(context.Background(), linking.Event{
		Action:  models.AuditAction{ActionType: models.AuditLinkRecords},
		Created: []models.Relationship{{ID: "x", Type: models.RelationshipLinked, FromID: "a", ToID: "b"}},
	})
	assert.ErrorContains(t, err, "bolt unavailable")
	assert.Len(t, w.batches, 1)
}
