// Package memory is an in-process Store. Transactions work on a private copy of
// the data that replaces the shared copy only when the unit succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

type data struct {
	records       map[string]models.IdentifierRecord
	recordOrder   []string
	subjects      map[string]models.Subject
	subjectOrder  []string
	orphans       map[string]models.Orphan
	relationships map[string]models.Relationship
	relOrder      []string
	audit         []models.AuditAction
}

func newData() *data {
	return &data{
		records:       map[string]models.IdentifierRecord{},
		subjects:      map[string]models.Subject{},
		orphans:       map[string]models.Orphan{},
		relationships: map[string]models.Relationship{},
	}
}

func (d *data) clone() *data {
	c := &data{
		records:       make(map[string]models.IdentifierRecord, len(d.records)),
		recordOrder:   append([]string(nil), d.recordOrder...),
		subjects:      make(map[string]models.Subject, len(d.subjects)),
		subjectOrder:  append([]string(nil), d.subjectOrder...),
		orphans:       make(map[string]models.Orphan, len(d.orphans)),
		relationships: make(map[string]models.Relationship, len(d.relationships)),
		relOrder:      append([]string(nil), d.relOrder...),
		audit:         append([]models.AuditAction(nil), d.audit...),
	}
	for k, v := range d.records {
		c.records[k] = copyRecord(v)
	}
	for k, v := range d.subjects {
		c.subjects[k] = copySubject(v)
	}
	for k, v := range d.orphans {
		c.orphans[k] = copyOrphan(v)
	}
	for k, v := range d.relationships {
		c.relationships[k] = v
	}
	return c
}

// tx is an open unit of work holding its own copy of the data
type tx struct {
	mu   sync.RWMutex
	data *data
}

type txKey struct{}

// Store is an in-memory store.Store
type Store struct {
	// writeMu serializes writers: open transactions and standalone writes
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *data
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{data: newData(), now: time.Now}
}

// WithinTx implements store.Store
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	t := &tx{data: s.data.clone()}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = t.data
	s.mu.Unlock()
	return nil
}

// read runs fn against the transaction's data or the shared data
func (s *Store) read(ctx context.Context, fn func(d *data)) {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.mu.RLock()
		defer t.mu.RUnlock()
		fn(t.data)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// write runs fn against the transaction's data, or directly against the
// shared data when no transaction is open. fn must check before it mutates.
func (s *Store) write(ctx context.Context, fn func(d *data) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.mu.Lock()
		defer t.mu.Unlock()
		return fn(t.data)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func copyRecord(r models.IdentifierRecord) models.IdentifierRecord {
	if r.ContentHash != nil {
		h := *r.ContentHash
		r.ContentHash = &h
	}
	if r.OwnerID != nil {
		id := *r.OwnerID
		r.OwnerID = &id
	}
	r.Metadata = append([]byte(nil), r.Metadata...)
	return r
}

func copySubject(s models.Subject) models.Subject {
	s.Profile = s.Profile.Clone()
	if s.MergedInto != nil {
		into := *s.MergedInto
		s.MergedInto = &into
	}
	if s.MergedAt != nil {
		at := *s.MergedAt
		s.MergedAt = &at
	}
	return s
}

func copyOrphan(o models.Orphan) models.Orphan {
	o.Tags = append([]string(nil), o.Tags...)
	o.DiscoveryMetadata = append([]byte(nil), o.DiscoveryMetadata...)
	if o.LinkedSubjectID != nil {
		id := *o.LinkedSubjectID
		o.LinkedSubjectID = &id
	}
	if o.ResolvedAt != nil {
		at := *o.ResolvedAt
		o.ResolvedAt = &at
	}
	return o
}
