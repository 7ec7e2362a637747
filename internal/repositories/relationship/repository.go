package relationship

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const table = "relationships"

var columns = []string{"id", "relationship_type", "from_id", "to_id", "reason", "confidence", "created_by", "created_at"}

// Repository handles relationship persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a relationship. A duplicate (type, from, to) is rejected by the unique index.
func (r *Repository) Create(ctx context.Context, rel *models.Relationship) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Create")
	defer span.End()

	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(rel.ID, rel.Type, rel.FromID, rel.ToID, rel.Reason, rel.Confidence, rel.CreatedBy, rel.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"relationship_type": rel.Type,
			"from_id":           rel.FromID,
			"to_id":             rel.ToID,
		}).Error("Failed to create relationship")
		return errors.Wrap(err, "failed to create relationship")
	}

	return nil
}

// Get returns the edge of relType from fromID to toID
func (r *Repository) Get(ctx context.Context, relType models.RelationshipType, fromID, toID string) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("relationship_type", relType),
		sb.Equal("from_id", fromID),
		sb.Equal("to_id", toID),
	)

	query, args := sb.Build()
	var rel models.Relationship
	if err := r.db.Executor(ctx).GetContext(ctx, &rel, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "%s relationship %s -> %s", relType, fromID, toID)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get relationship")
		return nil, errors.Wrap(err, "failed to get relationship")
	}

	return &rel, nil
}

// Delete removes a relationship by ID
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("relationship_id", id).Error("Failed to delete relationship")
		return errors.Wrap(err, "failed to delete relationship")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(store.ErrNotFound, "relationship %s", id)
	}
	return nil
}

// ListByNode returns every edge touching nodeID
func (r *Repository) ListByNode(ctx context.Context, nodeID string) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListByNode")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Or(
		sb.Equal("from_id", nodeID),
		sb.Equal("to_id", nodeID),
	))
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var rels []models.Relationship
	if err := r.db.Executor(ctx).SelectContext(ctx, &rels, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("node_id", nodeID).Error("Failed to list relationships")
		return nil, errors.Wrap(err, "failed to list relationships")
	}
	return rels, nil
}

// DismissedRecordIDs returns the records subjectID has dismissed
func (r *Repository) DismissedRecordIDs(ctx context.Context, subjectID string) (map[string]struct{}, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.DismissedRecordIDs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("to_id")
	sb.From(table)
	sb.Where(
		sb.Equal("relationship_type", models.RelationshipDismissed),
		sb.Equal("from_id", subjectID),
	)

	query, args := sb.Build()
	var ids []string
	if err := r.db.Executor(ctx).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("subject_id", subjectID).Error("Failed to list dismissed records")
		return nil, errors.Wrap(err, "failed to list dismissed records")
	}

	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

const (
	// edges that would become self-loops
	deleteSelfEdgesSQL = `
		DELETE FROM relationships
		WHERE (from_id = $1 AND to_id IN ($1, $2)) OR (from_id = $2 AND to_id = $1)`

	// edges whose re-pointed copy already exists
	deleteDuplicateEdgesSQL = `
		DELETE FROM relationships r
		WHERE (r.from_id = $1 AND EXISTS (
			SELECT 1 FROM relationships e
			WHERE e.relationship_type = r.relationship_type AND e.from_id = $2 AND e.to_id = r.to_id))
		OR (r.to_id = $1 AND EXISTS (
			SELECT 1 FROM relationships e
			WHERE e.relationship_type = r.relationship_type AND e.from_id = r.from_id AND e.to_id = $2))`

	repointSQL = `
		UPDATE relationships
		SET from_id = CASE WHEN from_id = $1 THEN $2 ELSE from_id END,
		    to_id   = CASE WHEN to_id = $1 THEN $2 ELSE to_id END
		WHERE from_id = $1 OR to_id = $1`
)

// Repoint moves the edges of from onto to. Edges that would become self-loops
// or duplicates are deleted. Must run inside a transaction.
func (r *Repository) Repoint(ctx context.Context, from, to string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Repoint")
	defer span.End()

	exec := r.db.Executor(ctx)
	for _, q := range []string{deleteSelfEdgesSQL, deleteDuplicateEdgesSQL} {
		if _, err := exec.ExecContext(ctx, q, from, to); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to prune relationships before repoint")
			return 0, errors.Wrap(err, "failed to prune relationships")
		}
	}

	res, err := exec.ExecContext(ctx, repointSQL, from, to)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint relationships")
		return 0, errors.Wrap(err, "failed to repoint relationships")
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count repointed relationships")
	}
	return int(moved), nil
}
