package orphan

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

const table = "orphans"

var columns = []string{
	"id", "identifier_type", "identifier_value", "normalized_value", "tags", "confidence",
	"discovery_metadata", "resolved", "linked_subject_id", "resolved_at", "created_at",
}

type row struct {
	models.Orphan
	TagsJSON database.JSONB[[]string] `db:"tags"`
}

// Repository handles orphan persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new orphan repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an orphan by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Orphan, error) {
	ctx, span := tracing.StartSpan(ctx, "orphan.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))
	if _, ok := database.TxFromContext(ctx); ok {
		sb.ForUpdate()
	}

	query, args := sb.Build()
	var rec row
	if err := r.db.Executor(ctx).GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "orphan %s", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("orphan_id", id).Error("Failed to get orphan")
		return nil, errors.Wrap(err, "failed to get orphan")
	}

	o := rec.Orphan
	o.Tags = rec.TagsJSON.Data
	return &o, nil
}

// Create inserts an orphan
func (r *Repository) Create(ctx context.Context, orphan *models.Orphan) error {
	ctx, span := tracing.StartSpan(ctx, "orphan.Repository.Create")
	defer span.End()

	if orphan.ID == "" {
		orphan.ID = uuid.New().String()
	}
	if orphan.CreatedAt.IsZero() {
		orphan.CreatedAt = time.Now().UTC()
	}
	tags := orphan.Tags
	if tags == nil {
		tags = []string{}
	}
	var metadata any
	if len(orphan.DiscoveryMetadata) > 0 {
		metadata = string(orphan.DiscoveryMetadata)
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(orphan.ID, orphan.IdentifierType, orphan.IdentifierValue, orphan.NormalizedValue, database.NewJSONB(tags),
		orphan.Confidence, metadata, orphan.Resolved, orphan.LinkedSubjectID, orphan.ResolvedAt, orphan.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("orphan_id", orphan.ID).Error("Failed to create orphan")
		return errors.Wrap(err, "failed to create orphan")
	}

	return nil
}

// Resolve marks the orphan as linked to subjectID
func (r *Repository) Resolve(ctx context.Context, id, subjectID string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "orphan.Repository.Resolve")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("resolved", true),
		ub.Assign("linked_subject_id", subjectID),
		ub.Assign("resolved_at", at),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	return r.execOne(ctx, query, args, id, "resolve orphan")
}

// Delete removes an orphan
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "orphan.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	return r.execOne(ctx, query, args, id, "delete orphan")
}

func (r *Repository) execOne(ctx context.Context, query string, args []any, id, what string) error {
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("orphan_id", id).Errorf("Failed to %s", what)
		return errors.Wrapf(err, "failed to %s", what)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(store.ErrNotFound, "orphan %s", id)
	}
	return nil
}
