package memory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// AppendAudit implements store.AuditStore
func (s *Store) AppendAudit(ctx context.Context, action *models.AuditAction) error {
	if action.Reason == "" {
		return errors.New("audit action requires a reason")
	}
	return s.write(ctx, func(d *data) error {
		action.ID = newID(action.ID)
		if action.CreatedAt.IsZero() {
			action.CreatedAt = s.now().UTC()
		}
		d.audit = append(d.audit, *action)
		return nil
	})
}

// ListAuditActions implements store.AuditStore, newest first
func (s *Store) ListAuditActions(ctx context.Context, limit int) ([]models.AuditAction, error) {
	var out []models.AuditAction
	s.read(ctx, func(d *data) {
		for i := len(d.audit) - 1; i >= 0; i-- {
			out = append(out, d.audit[i])
			if limit > 0 && len(out) >= limit {
				return
			}
		}
	})
	return out, nil
}
