package models

import (
	"encoding/json"
	"time"
)

// Orphan is an identifier that has not been attached to a subject yet
type Orphan struct {
	ID                string          `json:"id" db:"id"`
	IdentifierType    IdentifierKind  `json:"identifier_type" db:"identifier_type"`
	IdentifierValue   string          `json:"identifier_value" db:"identifier_value"`
	NormalizedValue   string          `json:"normalized_value" db:"normalized_value"`
	Tags              []string        `json:"tags,omitempty" db:"-"`
	Confidence        float64         `json:"confidence" db:"confidence"`
	DiscoveryMetadata json.RawMessage `json:"discovery_metadata,omitempty" db:"discovery_metadata"`
	Resolved          bool            `json:"resolved" db:"resolved"`
	LinkedSubjectID   *string         `json:"linked_subject_id,omitempty" db:"linked_subject_id"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
