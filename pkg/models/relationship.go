package models

import "time"

// RelationshipType is the label of an edge in the investigation graph
type RelationshipType string

const (
	// RelationshipLinked joins two identifier records believed to describe the same subject
	RelationshipLinked RelationshipType = "linked"
	// RelationshipDismissed suppresses a record from a subject's suggestions
	RelationshipDismissed RelationshipType = "dismissed"
	// RelationshipMergedInto points a discarded subject at the subject that absorbed it
	RelationshipMergedInto RelationshipType = "merged_into"
)

// Relationship is a directed edge between two subjects, records or orphans
type Relationship struct {
	ID         string           `json:"id" db:"id"`
	Type       RelationshipType `json:"type" db:"relationship_type"`
	FromID     string           `json:"from_id" db:"from_id"`
	ToID       string           `json:"to_id" db:"to_id"`
	Reason     string           `json:"reason,omitempty" db:"reason"`
	Confidence float64          `json:"confidence" db:"confidence"`
	CreatedBy  string           `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// Other returns the id on the opposite end from id
func (r *Relationship) Other(id string) string {
	if r.FromID == id {
		return r.ToID
	}
	return r.FromID
}
