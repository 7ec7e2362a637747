package audit

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const table = "audit_actions"

var columns = []string{"id", "action_type", "created_at", "created_by", "reason", "details", "confidence"}

type row struct {
	models.AuditAction
	DetailsJSON database.JSONB[map[string]any] `db:"details"`
}

// Repository is the append-only audit log; it has no update or delete
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append writes an audit action
func (r *Repository) Append(ctx context.Context, action *models.AuditAction) error {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.Append")
	defer span.End()

	if strings.TrimSpace(action.Reason) == "" {
		return errors.New("audit action requires a reason")
	}
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	details := action.Details
	if details == nil {
		details = map[string]any{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(action.ID, action.ActionType, action.CreatedAt, action.CreatedBy, action.Reason, database.NewJSONB(details), action.Confidence)

	query, args := sb.Build()
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"action_id":   action.ID,
			"action_type": action.ActionType,
		}).Error("Failed to append audit action")
		return errors.Wrap(err, "failed to append audit action")
	}

	return nil
}

// List returns up to limit actions, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]models.AuditAction, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var rows []row
	if err := r.db.Executor(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list audit actions")
		return nil, errors.Wrap(err, "failed to list audit actions")
	}

	actions := make([]models.AuditAction, 0, len(rows))
	for _, rec := range rows {
		a := rec.AuditAction
		a.Details = rec.DetailsJSON.Data
		actions = append(actions, a)
	}
	return actions, nil
}
