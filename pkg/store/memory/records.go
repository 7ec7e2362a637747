package memory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

// GetRecord implements store.RecordStore
func (s *Store) GetRecord(ctx context.Context, id string) (*models.IdentifierRecord, error) {
	var (
		out models.IdentifierRecord
		ok  bool
	)
	s.read(ctx, func(d *data) {
		var r models.IdentifierRecord
		if r, ok = d.records[id]; ok {
			out = copyRecord(r)
		}
	})
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "record %s", id)
	}
	return &out, nil
}

// CreateRecord implements store.RecordStore
func (s *Store) CreateRecord(ctx context.Context, record *models.IdentifierRecord) error {
	return s.write(ctx, func(d *data) error {
		record.ID = newID(record.ID)
		if _, exists := d.records[record.ID]; exists {
			return errors.Errorf("record %s already exists", record.ID)
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = s.now().UTC()
		}
		d.records[record.ID] = copyRecord(*record)
		d.recordOrder = append(d.recordOrder, record.ID)
		return nil
	})
}

func (s *Store) filterRecords(ctx context.Context, limit int, keep func(r *models.IdentifierRecord) bool) []models.IdentifierRecord {
	var out []models.IdentifierRecord
	s.read(ctx, func(d *data) {
		for _, id := range d.recordOrder {
			r := d.records[id]
			if !keep(&r) {
				continue
			}
			out = append(out, copyRecord(r))
			if limit > 0 && len(out) >= limit {
				return
			}
		}
	})
	return out
}

// FindRecordsByNormalized implements store.RecordStore
func (s *Store) FindRecordsByNormalized(ctx context.Context, kind models.IdentifierKind, normalized string) ([]models.IdentifierRecord, error) {
	return s.filterRecords(ctx, 0, func(r *models.IdentifierRecord) bool {
		return r.Kind == kind && r.NormalizedValue == normalized && !r.Owner().IsZero()
	}), nil
}

// FindRecordsByContentHash implements store.RecordStore
func (s *Store) FindRecordsByContentHash(ctx context.Context, hash string) ([]models.IdentifierRecord, error) {
	return s.filterRecords(ctx, 0, func(r *models.IdentifierRecord) bool {
		return r.ContentHash != nil && *r.ContentHash == hash && !r.Owner().IsZero()
	}), nil
}

// ListCandidateRecords implements store.RecordStore
func (s *Store) ListCandidateRecords(ctx context.Context, kind models.IdentifierKind, limit int) ([]models.IdentifierRecord, error) {
	return s.filterRecords(ctx, limit, func(r *models.IdentifierRecord) bool {
		return r.Kind == kind && !r.Owner().IsZero()
	}), nil
}

// ListRecordsByOwner implements store.RecordStore
func (s *Store) ListRecordsByOwner(ctx context.Context, owner models.Owner) ([]models.IdentifierRecord, error) {
	return s.filterRecords(ctx, 0, func(r *models.IdentifierRecord) bool {
		return r.Owner() == owner
	}), nil
}

// ReassignOwner implements store.RecordStore
func (s *Store) ReassignOwner(ctx context.Context, from, to models.Owner) (int, error) {
	if from.IsZero() || to.IsZero() {
		return 0, errors.New("reassign owner requires both owners")
	}
	moved := 0
	err := s.write(ctx, func(d *data) error {
		for _, id := range d.recordOrder {
			r := d.records[id]
			if r.Owner() != from {
				continue
			}
			r.SetOwner(to)
			d.records[id] = r
			moved++
		}
		return nil
	})
	return moved, err
}
