// Package store defines the persistence contract the linking core depends on.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// ErrNotFound is returned (possibly wrapped) when a row does not exist
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RecordStore reads and writes identifier records
type RecordStore interface {
	GetRecord(ctx context.Context, id string) (*models.IdentifierRecord, error)
	CreateRecord(ctx context.Context, record *models.IdentifierRecord) error
	FindRecordsByNormalized(ctx context.Context, kind models.IdentifierKind, normalized string) ([]models.IdentifierRecord, error)
	FindRecordsByContentHash(ctx context.Context, hash string) ([]models.IdentifierRecord, error)
	// ListCandidateRecords returns up to limit owned records of a kind for fuzzy scoring
	ListCandidateRecords(ctx context.Context, kind models.IdentifierKind, limit int) ([]models.IdentifierRecord, error)
	ListRecordsByOwner(ctx context.Context, owner models.Owner) ([]models.IdentifierRecord, error)
	// ReassignOwner moves every record owned by from to to and returns how many moved
	ReassignOwner(ctx context.Context, from, to models.Owner) (int, error)
}

// SubjectStore reads and writes subjects
type SubjectStore interface {
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	UpdateSubjectProfile(ctx context.Context, id string, profile models.Profile) error
	MarkSubjectMerged(ctx context.Context, id, into string, at time.Time) error
	// ListSubjects returns up to limit subjects that have not been merged away
	ListSubjects(ctx context.Context, limit int) ([]models.Subject, error)
}

// OrphanStore reads and writes orphans
type OrphanStore interface {
	GetOrphan(ctx context.Context, id string) (*models.Orphan, error)
	CreateOrphan(ctx context.Context, orphan *models.Orphan) error
	ResolveOrphan(ctx context.Context, id, subjectID string, at time.Time) error
	DeleteOrphan(ctx context.Context, id string) error
}

// RelationshipStore reads and writes graph edges
type RelationshipStore interface {
	CreateRelationship(ctx context.Context, rel *models.Relationship) error
	GetRelationship(ctx context.Context, relType models.RelationshipType, fromID, toID string) (*models.Relationship, error)
	DeleteRelationship(ctx context.Context, id string) error
	// ListRelationships returns every edge touching nodeID
	ListRelationships(ctx context.Context, nodeID string) ([]models.Relationship, error)
	// RepointRelationships moves the edges of from onto to. Edges between from
	// and to, and edges to already has, are removed instead of duplicated.
	RepointRelationships(ctx context.Context, from, to string) (int, error)
	DismissedRecordIDs(ctx context.Context, subjectID string) (map[string]struct{}, error)
}

// AuditStore is the append-only audit log
type AuditStore interface {
	AppendAudit(ctx context.Context, action *models.AuditAction) error
	ListAuditActions(ctx context.Context, limit int) ([]models.AuditAction, error)
}

// Store is the full persistence collaborator
type Store interface {
	RecordStore
	SubjectStore
	OrphanStore
	RelationshipStore
	AuditStore

	// WithinTx runs fn as one atomic unit. A call made while a unit is already
	// open on ctx joins it. When fn returns an error nothing it wrote persists.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
