package models

// LinkRecordsRequest asks for two identifier records to be linked
type LinkRecordsRequest struct {
	RecordAID  string   `json:"record_a_id" validate:"required"`
	RecordBID  string   `json:"record_b_id" validate:"required"`
	Reason     string   `json:"reason" validate:"required"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	CreatedBy  string   `json:"-"`
}

// LinkRecordsResult is the outcome of linking two records. When AlreadyLinked
// is set the call was a no-op: nothing was written and AuditActionID is empty.
type LinkRecordsResult struct {
	Relationship  *Relationship `json:"relationship"`
	AlreadyLinked bool          `json:"already_linked,omitempty"`
	AuditActionID string        `json:"audit_action_id,omitempty"`
}

// MergeSubjectsRequest asks for two subjects to be merged into one
type MergeSubjectsRequest struct {
	SubjectAID string `json:"subject_a_id" validate:"required"`
	SubjectBID string `json:"subject_b_id" validate:"required"`
	KeepID     string `json:"keep_id" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
	CreatedBy  string `json:"-"`
}

// MergeResult reports what a merge moved
type MergeResult struct {
	KeptSubjectID      string `json:"kept_subject_id"`
	MergedSubjectID    string `json:"merged_subject_id"`
	RecordsMoved       int    `json:"records_moved"`
	RelationshipsMoved int    `json:"relationships_moved"`
	ProfileFieldsAdded int    `json:"profile_fields_added"`
	AuditActionID      string `json:"audit_action_id"`
}

// LinkOrphanRequest asks for an orphan to be attached to a subject
type LinkOrphanRequest struct {
	OrphanID     string `json:"orphan_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	Reason       string `json:"reason" validate:"required"`
	DeleteOrphan bool   `json:"delete_orphan"`
	CreatedBy    string `json:"-"`
}

// LinkOrphanResult reports what attaching an orphan moved
type LinkOrphanResult struct {
	OrphanID      string `json:"orphan_id"`
	SubjectID     string `json:"subject_id"`
	RecordsMoved  int    `json:"records_moved"`
	RecordCreated bool   `json:"record_created,omitempty"`
	OrphanDeleted bool   `json:"orphan_deleted"`
	AuditActionID string `json:"audit_action_id"`
}

// DismissSuggestionRequest asks for a record to be suppressed from a subject's suggestions
type DismissSuggestionRequest struct {
	SubjectID string `json:"subject_id" validate:"required"`
	RecordID  string `json:"record_id" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	CreatedBy string `json:"-"`
}

// DismissSuggestionResult reports the state of the suppression after the call
type DismissSuggestionResult struct {
	SubjectID        string `json:"subject_id"`
	RecordID         string `json:"record_id"`
	Dismissed        bool   `json:"dismissed"`
	AlreadyDismissed bool   `json:"already_dismissed,omitempty"`
	AuditActionID    string `json:"audit_action_id,omitempty"`
}
