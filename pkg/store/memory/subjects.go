package memory

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

// GetSubject implements store.SubjectStore
func (s *Store) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	var (
		out models.Subject
		ok  bool
	)
	s.read(ctx, func(d *data) {
		var subj models.Subject
		if subj, ok = d.subjects[id]; ok {
			out = copySubject(subj)
		}
	})
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "subject %s", id)
	}
	return &out, nil
}

// CreateSubject implements store.SubjectStore
func (s *Store) CreateSubject(ctx context.Context, subject *models.Subject) error {
	return s.write(ctx, func(d *data) error {
		subject.ID = newID(subject.ID)
		if _, exists := d.subjects[subject.ID]; exists {
			return errors.Errorf("subject %s already exists", subject.ID)
		}
		now := s.now().UTC()
		if subject.CreatedAt.IsZero() {
			subject.CreatedAt = now
		}
		subject.UpdatedAt = now
		if subject.Profile == nil {
			subject.Profile = models.Profile{}
		}
		d.subjects[subject.ID] = copySubject(*subject)
		d.subjectOrder = append(d.subjectOrder, subject.ID)
		return nil
	})
}

// UpdateSubjectProfile implements store.SubjectStore
func (s *Store) UpdateSubjectProfile(ctx context.Context, id string, profile models.Profile) error {
	return s.write(ctx, func(d *data) error {
		subj, ok := d.subjects[id]
		if !ok {
			return errors.Wrapf(store.ErrNotFound, "subject %s", id)
		}
		subj.Profile = profile.Clone()
		subj.UpdatedAt = s.now().UTC()
		d.subjects[id] = subj
		return nil
	})
}

// MarkSubjectMerged implements store.SubjectStore
func (s *Store) MarkSubjectMerged(ctx context.Context, id, into string, at time.Time) error {
	return s.write(ctx, func(d *data) error {
		subj, ok := d.subjects[id]
		if !ok {
			return errors.Wrapf(store.ErrNotFound, "subject %s", id)
		}
		subj.MergedInto = &into
		subj.MergedAt = &at
		subj.UpdatedAt = at
		d.subjects[id] = subj
		return nil
	})
}

// ListSubjects implements store.SubjectStore
func (s *Store) ListSubjects(ctx context.Context, limit int) ([]models.Subject, error) {
	var out []models.Subject
	s.read(ctx, func(d *data) {
		for _, id := range d.subjectOrder {
			subj := d.subjects[id]
			if subj.IsMerged() {
				continue
			}
			out = append(out, copySubject(subj))
			if limit > 0 && len(out) >= limit {
				return
			}
		}
	})
	return out, nil
}
