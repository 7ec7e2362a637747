package memory

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

// GetOrphan implements store.OrphanStore
func (s *Store) GetOrphan(ctx context.Context, id string) (*models.Orphan, error) {
	var (
		out models.Orphan
		ok  bool
	)
	s.read(ctx, func(d *data) {
		var o models.Orphan
		if o, ok = d.orphans[id]; ok {
			out = copyOrphan(o)
		}
	})
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "orphan %s", id)
	}
	return &out, nil
}

// CreateOrphan implements store.OrphanStore
func (s *Store) CreateOrphan(ctx context.Context, orphan *models.Orphan) error {
	return s.write(ctx, func(d *data) error {
		orphan.ID = newID(orphan.ID)
		if _, exists := d.orphans[orphan.ID]; exists {
			return errors.Errorf("orphan %s already exists", orphan.ID)
		}
		if orphan.CreatedAt.IsZero() {
			orphan.CreatedAt = s.now().UTC()
		}
		d.orphans[orphan.ID] = copyOrphan(*orphan)
		return nil
	})
}

// ResolveOrphan implements store.OrphanStore
func (s *Store) ResolveOrphan(ctx context.Context, id, subjectID string, at time.Time) error {
	return s.write(ctx, func(d *data) error {
		o, ok := d.orphans[id]
		if !ok {
			return errors.Wrapf(store.ErrNotFound, "orphan %s", id)
		}
		o.Resolved = true
		o.LinkedSubjectID = &subjectID
		o.ResolvedAt = &at
		d.orphans[id] = o
		return nil
	})
}

// DeleteOrphan implements store.OrphanStore
func (s *Store) DeleteOrphan(ctx context.Context, id string) error {
	return s.write(ctx, func(d *data) error {
		if _, ok := d.orphans[id]; !ok {
			return errors.Wrapf(store.ErrNotFound, "orphan %s", id)
		}
		delete(d.orphans, id)
		return nil
	})
}
