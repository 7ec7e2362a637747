package identifier

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

const table = "identifier_records"

var columns = []string{
	"id", "kind", "raw_value", "normalized_value", "search_value", "content_hash",
	"owner_type", "owner_id", "needs_review", "metadata", "created_at",
}

// Repository handles identifier record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new identifier record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a record by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.IdentifierRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var record models.IdentifierRecord
	if err := r.db.Executor(ctx).GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "identifier record %s", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("record_id", id).Error("Failed to get identifier record")
		return nil, errors.Wrap(err, "failed to get identifier record")
	}

	return &record, nil
}

// Create inserts a record
func (r *Repository) Create(ctx context.Context, record *models.IdentifierRecord) error {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.Create")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(record.ID, record.Kind, record.RawValue, record.NormalizedValue, record.SearchValue, record.ContentHash,
		record.OwnerType, record.OwnerID, record.NeedsReview, nullableJSON(record.Metadata), record.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("record_id", record.ID).Error("Failed to create identifier record")
		return errors.Wrap(err, "failed to create identifier record")
	}

	return nil
}

// FindByNormalized returns owned records of a kind with an exact normalized value
func (r *Repository) FindByNormalized(ctx context.Context, kind models.IdentifierKind, normalized string) ([]models.IdentifierRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.FindByNormalized")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("kind", kind),
		sb.Equal("normalized_value", normalized),
		sb.NotEqual("owner_type", models.OwnerNone),
	)
	sb.OrderBy("created_at", "id")

	return r.selectRecords(ctx, sb, "find identifier records by normalized value")
}

// FindByContentHash returns owned records with a content hash
func (r *Repository) FindByContentHash(ctx context.Context, hash string) ([]models.IdentifierRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.FindByContentHash")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("content_hash", hash),
		sb.NotEqual("owner_type", models.OwnerNone),
	)
	sb.OrderBy("created_at", "id")

	return r.selectRecords(ctx, sb, "find identifier records by content hash")
}

// ListCandidates returns up to limit owned records of a kind for fuzzy matching
func (r *Repository) ListCandidates(ctx context.Context, kind models.IdentifierKind, limit int) ([]models.IdentifierRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.ListCandidates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("kind", kind),
		sb.NotEqual("owner_type", models.OwnerNone),
	)
	sb.OrderBy("created_at", "id")
	if limit > 0 {
		sb.Limit(limit)
	}

	return r.selectRecords(ctx, sb, "list candidate identifier records")
}

// ListByOwner returns every record owned by owner
func (r *Repository) ListByOwner(ctx context.Context, owner models.Owner) ([]models.IdentifierRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.ListByOwner")
	defer span.End()

	if owner.IsZero() {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("owner_type", owner.Type),
		sb.Equal("owner_id", owner.ID),
	)
	sb.OrderBy("created_at", "id")

	return r.selectRecords(ctx, sb, "list identifier records by owner")
}

// ReassignOwner moves every record owned by from to to in a single statement
func (r *Repository) ReassignOwner(ctx context.Context, from, to models.Owner) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.ReassignOwner")
	defer span.End()

	if from.IsZero() || to.IsZero() {
		return 0, errors.New("reassign owner requires both owners")
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("owner_type", to.Type),
		ub.Assign("owner_id", to.ID),
	)
	ub.Where(
		ub.Equal("owner_type", from.Type),
		ub.Equal("owner_id", from.ID),
	)

	query, args := ub.Build()
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"from": from.String(),
			"to":   to.String(),
		}).Error("Failed to reassign identifier records")
		return 0, errors.Wrap(err, "failed to reassign identifier records")
	}

	moved, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count reassigned identifier records")
	}
	return int(moved), nil
}

func (r *Repository) selectRecords(ctx context.Context, sb *sqlbuilder.SelectBuilder, what string) ([]models.IdentifierRecord, error) {
	query, args := sb.Build()
	var records []models.IdentifierRecord
	if err := r.db.Executor(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to %s", what)
		return nil, errors.Wrapf(err, "failed to %s", what)
	}
	return records, nil
}

// nullableJSON sends an empty document as NULL
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
