// Package postgres implements store.Store on top of the sqlx repositories.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/internal/repositories/audit"
	"github.com/Ramsey-B/thistle/internal/repositories/identifier"
	"github.com/Ramsey-B/thistle/internal/repositories/orphan"
	"github.com/Ramsey-B/thistle/internal/repositories/relationship"
	"github.com/Ramsey-B/thistle/internal/repositories/subject"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/store"
)

// Store is the Postgres store.Store
type Store struct {
	db            database.DB
	records       *identifier.Repository
	subjects      *subject.Repository
	orphans       *orphan.Repository
	relationships *relationship.Repository
	audit         *audit.Repository
}

var _ store.Store = (*Store)(nil)

// New creates a Store over an open database
func New(db database.DB, logger ectologger.Logger) *Store {
	return &Store{
		db:            db,
		records:       identifier.NewRepository(db, logger),
		subjects:      subject.NewRepository(db, logger),
		orphans:       orphan.NewRepository(db, logger),
		relationships: relationship.NewRepository(db, logger),
		audit:         audit.NewRepository(db, logger),
	}
}

// WithinTx runs fn in a read-committed transaction bound to ctx
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

func (s *Store) GetRecord(ctx context.Context, id string) (*models.IdentifierRecord, error) {
	return s.records.Get(ctx, id)
}

func (s *Store) CreateRecord(ctx context.Context, record *models.IdentifierRecord) error {
	return s.records.Create(ctx, record)
}

func (s *Store) FindRecordsByNormalized(ctx context.Context, kind models.IdentifierKind, normalized string) ([]models.IdentifierRecord, error) {
	return s.records.FindByNormalized(ctx, kind, normalized)
}

func (s *Store) FindRecordsByContentHash(ctx context.Context, hash string) ([]models.IdentifierRecord, error) {
	return s.records.FindByContentHash(ctx, hash)
}

func (s *Store) ListCandidateRecords(ctx context.Context, kind models.IdentifierKind, limit int) ([]models.IdentifierRecord, error) {
	return s.records.ListCandidates(ctx, kind, limit)
}

func (s *Store) ListRecordsByOwner(ctx context.Context, owner models.Owner) ([]models.IdentifierRecord, error) {
	return s.records.ListByOwner(ctx, owner)
}

func (s *Store) ReassignOwner(ctx context.Context, from, to models.Owner) (int, error) {
	return s.records.ReassignOwner(ctx, from, to)
}

func (s *Store) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	return s.subjects.Get(ctx, id)
}

func (s *Store) CreateSubject(ctx context.Context, subj *models.Subject) error {
	return s.subjects.Create(ctx, subj)
}

func (s *Store) UpdateSubjectProfile(ctx context.Context, id string, profile models.Profile) error {
	return s.subjects.UpdateProfile(ctx, id, profile)
}

func (s *Store) MarkSubjectMerged(ctx context.Context, id, into string, at time.Time) error {
	return s.subjects.MarkMerged(ctx, id, into, at)
}

func (s *Store) ListSubjects(ctx context.Context, limit int) ([]models.Subject, error) {
	return s.subjects.List(ctx, limit)
}

func (s *Store) GetOrphan(ctx context.Context, id string) (*models.Orphan, error) {
	return s.orphans.Get(ctx, id)
}

func (s *Store) CreateOrphan(ctx context.Context, o *models.Orphan) error {
	return s.orphans.Create(ctx, o)
}

func (s *Store) ResolveOrphan(ctx context.Context, id, subjectID string, at time.Time) error {
	return s.orphans.Resolve(ctx, id, subjectID, at)
}

func (s *Store) DeleteOrphan(ctx context.Context, id string) error {
	return s.orphans.Delete(ctx, id)
}

func (s *Store) CreateRelationship(ctx context.Context, rel *models.Relationship) error {
	return s.relationships.Create(ctx, rel)
}

func (s *Store) GetRelationship(ctx context.Context, relType models.RelationshipType, fromID, toID string) (*models.Relationship, error) {
	return s.relationships.Get(ctx, relType, fromID, toID)
}

func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	return s.relationships.Delete(ctx, id)
}

func (s *Store) ListRelationships(ctx context.Context, nodeID string) ([]models.Relationship, error) {
	return s.relationships.ListByNode(ctx, nodeID)
}

// RepointRelationships joins the caller's transaction, or opens one, since it runs several statements
func (s *Store) RepointRelationships(ctx context.Context, from, to string) (int, error) {
	var moved int
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		moved, err = s.relationships.Repoint(ctx, from, to)
		return err
	})
	return moved, err
}

func (s *Store) DismissedRecordIDs(ctx context.Context, subjectID string) (map[string]struct{}, error) {
	return s.relationships.DismissedRecordIDs(ctx, subjectID)
}

func (s *Store) AppendAudit(ctx context.Context, action *models.AuditAction) error {
	return s.audit.Append(ctx, action)
}

func (s *Store) ListAuditActions(ctx context.Context, limit int) ([]models.AuditAction, error) {
	return s.audit.List(ctx, limit)
}
