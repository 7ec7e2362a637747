package memory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

func findRelationship(d *data, relType models.RelationshipType, fromID, toID string) (models.Relationship, bool) {
	for _, id := range d.relOrder {
		r := d.relationships[id]
		if r.Type == relType && r.FromID == fromID && r.ToID == toID {
			return r, true
		}
	}
	return models.Relationship{}, false
}

func removeRelationship(d *data, id string) {
	delete(d.relationships, id)
	for i, rid := range d.relOrder {
		if rid == id {
			d.relOrder = append(d.relOrder[:i], d.relOrder[i+1:]...)
			return
		}
	}
}

// CreateRelationship implements store.RelationshipStore
func (s *Store) CreateRelationship(ctx context.Context, rel *models.Relationship) error {
	return s.write(ctx, func(d *data) error {
		if _, exists := findRelationship(d, rel.Type, rel.FromID, rel.ToID); exists {
			return errors.Errorf("%s relationship %s -> %s already exists", rel.Type, rel.FromID, rel.ToID)
		}
		rel.ID = newID(rel.ID)
		if rel.CreatedAt.IsZero() {
			rel.CreatedAt = s.now().UTC()
		}
		d.relationships[rel.ID] = *rel
		d.relOrder = append(d.relOrder, rel.ID)
		return nil
	})
}

// GetRelationship implements store.RelationshipStore
func (s *Store) GetRelationship(ctx context.Context, relType models.RelationshipType, fromID, toID string) (*models.Relationship, error) {
	var (
		out models.Relationship
		ok  bool
	)
	s.read(ctx, func(d *data) {
		out, ok = findRelationship(d, relType, fromID, toID)
	})
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "%s relationship %s -> %s", relType, fromID, toID)
	}
	return &out, nil
}

// DeleteRelationship implements store.RelationshipStore
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	return s.write(ctx, func(d *data) error {
		if _, ok := d.relationships[id]; !ok {
			return errors.Wrapf(store.ErrNotFound, "relationship %s", id)
		}
		removeRelationship(d, id)
		return nil
	})
}

// ListRelationships implements store.RelationshipStore
func (s *Store) ListRelationships(ctx context.Context, nodeID string) ([]models.Relationship, error) {
	var out []models.Relationship
	s.read(ctx, func(d *data) {
		for _, id := range d.relOrder {
			r := d.relationships[id]
			if r.FromID == nodeID || r.ToID == nodeID {
				out = append(out, r)
			}
		}
	})
	return out, nil
}

// RepointRelationships implements store.RelationshipStore
func (s *Store) RepointRelationships(ctx context.Context, from, to string) (int, error) {
	moved := 0
	err := s.write(ctx, func(d *data) error {
		for _, id := range append([]string(nil), d.relOrder...) {
			r := d.relationships[id]
			if r.FromID != from && r.ToID != from {
				continue
			}
			if r.FromID == from {
				r.FromID = to
			}
			if r.ToID == from {
				r.ToID = to
			}
			if r.FromID == r.ToID {
				removeRelationship(d, id)
				continue
			}
			if existing, dup := findRelationship(d, r.Type, r.FromID, r.ToID); dup && existing.ID != id {
				removeRelationship(d, id)
				continue
			}
			d.relationships[id] = r
			moved++
		}
		return nil
	})
	return moved, err
}

// DismissedRecordIDs implements store.RelationshipStore
func (s *Store) DismissedRecordIDs(ctx context.Context, subjectID string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	s.read(ctx, func(d *data) {
		for _, id := range d.relOrder {
			r := d.relationships[id]
			if r.Type == models.RelationshipDismissed && r.FromID == subjectID {
				out[r.ToID] = struct{}{}
			}
		}
	})
	return out, nil
}
