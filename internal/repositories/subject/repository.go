package subject

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

const table = "subjects"

var columns = []string{"id", "name", "profile", "merged_into", "merged_at", "created_at", "updated_at"}

type row struct {
	models.Subject
	ProfileJSON database.JSONB[models.Profile] `db:"profile"`
}

func (r row) toModel() models.Subject {
	s := r.Subject
	s.Profile = r.ProfileJSON.Data
	if s.Profile == nil {
		s.Profile = models.Profile{}
	}
	return s
}

// Repository handles subject persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new subject repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a subject by ID, including merged subjects
func (r *Repository) Get(ctx context.Context, id string) (*models.Subject, error) {
	ctx, span := tracing.StartSpan(ctx, "subject.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))
	// lock the row when called inside a transaction so merges serialise on it
	if _, ok := database.TxFromContext(ctx); ok {
		sb.ForUpdate()
	}

	query, args := sb.Build()
	var rec row
	if err := r.db.Executor(ctx).GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "subject %s", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("subject_id", id).Error("Failed to get subject")
		return nil, errors.Wrap(err, "failed to get subject")
	}

	s := rec.toModel()
	return &s, nil
}

// Create inserts a subject
func (r *Repository) Create(ctx context.Context, subject *models.Subject) error {
	ctx, span := tracing.StartSpan(ctx, "subject.Repository.Create")
	defer span.End()

	if subject.ID == "" {
		subject.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now
	if subject.Profile == nil {
		subject.Profile = models.Profile{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(subject.ID, subject.Name, database.NewJSONB(subject.Profile), subject.MergedInto, subject.MergedAt, subject.CreatedAt, subject.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("subject_id", subject.ID).Error("Failed to create subject")
		return errors.Wrap(err, "failed to create subject")
	}

	return nil
}

// UpdateProfile replaces a subject's profile
func (r *Repository) UpdateProfile(ctx context.Context, id string, profile models.Profile) error {
	ctx, span := tracing.StartSpan(ctx, "subject.Repository.UpdateProfile")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("profile", database.NewJSONB(profile)),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	return r.execOne(ctx, ub, id, "update subject profile")
}

// MarkMerged records that id was absorbed by into
func (r *Repository) MarkMerged(ctx context.Context, id, into string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "subject.Repository.MarkMerged")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("merged_into", into),
		ub.Assign("merged_at", at),
		ub.Assign("updated_at", at),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.IsNull("merged_into"),
	)

	return r.execOne(ctx, ub, id, "mark subject merged")
}

// List returns up to limit subjects that have not been merged away
func (r *Repository) List(ctx context.Context, limit int) ([]models.Subject, error) {
	ctx, span := tracing.StartSpan(ctx, "subject.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.IsNull("merged_into"))
	sb.OrderBy("created_at", "id")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var rows []row
	if err := r.db.Executor(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list subjects")
		return nil, errors.Wrap(err, "failed to list subjects")
	}

	subjects := make([]models.Subject, 0, len(rows))
	for _, rec := range rows {
		subjects = append(subjects, rec.toModel())
	}
	return subjects, nil
}

func (r *Repository) execOne(ctx context.Context, ub *sqlbuilder.UpdateBuilder, id, what string) error {
	query, args := ub.Build()
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("subject_id", id).Errorf("Failed to %s", what)
		return errors.Wrapf(err, "failed to %s", what)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(store.ErrNotFound, "subject %s", id)
	}
	return nil
}
