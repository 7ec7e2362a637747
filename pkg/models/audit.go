package models

import "time"

// AuditActionType names a mutating decision
type AuditActionType string

const (
	AuditLinkRecords         AuditActionType = "link_records"
	AuditMergeSubjects       AuditActionType = "merge_subjects"
	AuditLinkOrphan          AuditActionType = "link_orphan"
	AuditDismissSuggestion   AuditActionType = "dismiss_suggestion"
	AuditUndismissSuggestion AuditActionType = "undismiss_suggestion"
)

// AuditAction is an append-only record of an approved mutation
type AuditAction struct {
	ID         string          `json:"action_id" db:"id"`
	ActionType AuditActionType `json:"action_type" db:"action_type"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	CreatedBy  string          `json:"created_by" db:"created_by"`
	Reason     string          `json:"reason" db:"reason"`
	Details    map[string]any  `json:"details" db:"-"`
	Confidence float64         `json:"confidence" db:"confidence"`
}
