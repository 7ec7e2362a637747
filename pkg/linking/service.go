// Package linking applies the mutations an analyst approves: linking records,
// merging subjects, attaching orphans and dismissing suggestions. Every
// successful call writes exactly one audit action in the same atomic unit as
// the mutation itself.
package linking

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/linkerr"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/store"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Config contains configuration for the linking service
type Config struct {
	DefaultLinkConfidence float64       // Confidence of a record link when the caller gives none (default: 0.8)
	ObserverTimeout       time.Duration // Budget for each post-commit observer (default: 5s)
	Hints                 models.Hints  // Hints used when an orphan's identifier becomes a record
}

// DefaultConfig returns default service configuration
func DefaultConfig() Config {
	return Config{
		DefaultLinkConfidence: 0.8,
		ObserverTimeout:       5 * time.Second,
	}
}

// Service executes approved linking mutations
type Service struct {
	logger     ectologger.Logger
	store      store.Store
	normalizer *normalizers.Normalizer
	locker     Locker
	observers  []Observer
	config     Config
	now        func() time.Time
}

// NewService creates a linking service. A nil normalizer uses normalizers.New
// and a nil locker falls back to an in-process KeyedLocker.
func NewService(logger ectologger.Logger, st store.Store, normalizer *normalizers.Normalizer, locker Locker, config Config, observers ...Observer) *Service {
	defaults := DefaultConfig()
	if config.DefaultLinkConfidence <= 0 {
		config.DefaultLinkConfidence = defaults.DefaultLinkConfidence
	}
	if config.ObserverTimeout <= 0 {
		config.ObserverTimeout = defaults.ObserverTimeout
	}
	if normalizer == nil {
		normalizer = normalizers.New()
	}
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &Service{
		logger:     logger,
		store:      st,
		normalizer: normalizer,
		locker:     locker,
		observers:  observers,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// LinkRecords creates a symmetric linked relationship between two records.
// Linking an already linked pair, in either direction, is a no-op like a
// repeated dismissal: it returns the existing edge with AlreadyLinked set,
// writes no audit action and notifies no observers.
func (s *Service) LinkRecords(ctx context.Context, req models.LinkRecordsRequest) (result *models.LinkRecordsResult, err error) {
	const op = "linking.LinkRecords"
	ctx, span := tracing.StartSpan(ctx, "linking.Service.LinkRecords")
	defer span.End()
	started := time.Now()
	defer func() { metrics.ObserveMutation(string(models.AuditLinkRecords), started, err) }()

	reason, err := requireReason(op, req.Reason)
	if err != nil {
		return nil, err
	}
	if req.RecordAID == "" || req.RecordBID == "" {
		return nil, linkerr.Validation(op, "both record ids are required")
	}
	if req.RecordAID == req.RecordBID {
		return nil, linkerr.Validation(op, "cannot link a record to itself")
	}
	confidence := s.config.DefaultLinkConfidence
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return nil, linkerr.Validation(op, "confidence must be between 0 and 1, got %v", confidence)
	}

	for _, id := range []string{req.RecordAID, req.RecordBID} {
		if _, err := s.store.GetRecord(ctx, id); err != nil {
			return nil, notFoundOr(op, "identifier record", id, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rel    *models.Relationship
		action *models.AuditAction
	)
	err = s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context) error {
		existing, err := s.findLink(ctx, req.RecordAID, req.RecordBID)
		if err != nil {
			return err
		}
		if existing != nil {
			rel = existing
			return nil
		}

		rel = &models.Relationship{
			ID:         uuid.NewString(),
			Type:       models.RelationshipLinked,
			FromID:     req.RecordAID,
			ToID:       req.RecordBID,
			Reason:     reason,
			Confidence: confidence,
			CreatedBy:  req.CreatedBy,
			CreatedAt:  s.now(),
		}
		if err := s.store.CreateRelationship(ctx, rel); err != nil {
			return errors.Wrap(err, "failed to create link")
		}

		action = s.newAction(models.AuditLinkRecords, req.CreatedBy, reason, confidence, map[string]any{
			"record_a_id":     req.RecordAID,
			"record_b_id":     req.RecordBID,
			"relationship_id": rel.ID,
		})
		return s.appendAudit(ctx, action)
	})
	if err != nil {
		return nil, s.mutationError(ctx, op, err)
	}

	if action == nil {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"record_a_id": req.RecordAID,
			"record_b_id": req.RecordBID,
		}).Debug("Records already linked")
		return &models.LinkRecordsResult{Relationship: rel, AlreadyLinked: true}, nil
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"record_a_id": req.RecordAID,
		"record_b_id": req.RecordBID,
		"action_id":   action.ID,
	}).Info("Linked records")

	s.notify(ctx, Event{Action: *action, Created: []models.Relationship{*rel}})

	return &models.LinkRecordsResult{Relationship: rel, AuditActionID: action.ID}, nil
}

// findLink returns the linked edge between a and b in either direction, or nil
func (s *Service) findLink(ctx context.Context, a, b string) (*models.Relationship, error) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		rel, err := s.store.GetRelationship(ctx, models.RelationshipLinked, pair[0], pair[1])
		if err == nil {
			return rel, nil
		}
		if !store.IsNotFound(err) {
			return nil, errors.Wrap(err, "failed to look up link")
		}
	}
	return nil, nil
}

// MergeSubjects folds the discarded subject into keep. Records are re-owned,
// profiles unioned and relationships re-pointed; the discarded subject is
// marked merged and kept for history.
func (s *Service) MergeSubjects(ctx context.Context, req models.MergeSubjectsRequest) (result *models.MergeResult, err error) {
	const op = "linking.MergeSubjects"
	ctx, span := tracing.StartSpan(ctx, "linking.Service.MergeSubjects")
	defer span.End()
	started := time.Now()
	defer func() { metrics.ObserveMutation(string(models.AuditMergeSubjects), started, err) }()

	reason, err := requireReason(op, req.Reason)
	if err != nil {
		return nil, err
	}
	if req.SubjectAID == "" || req.SubjectBID == "" {
		return nil, linkerr.Validation(op, "both subject ids are required")
	}
	if req.SubjectAID == req.SubjectBID {
		return nil, linkerr.Validation(op, "cannot merge a subject into itself")
	}
	if req.KeepID != req.SubjectAID && req.KeepID != req.SubjectBID {
		return nil, linkerr.Validation(op, "keep_id %q must be one of %q or %q", req.KeepID, req.SubjectAID, req.SubjectBID)
	}
	keepID, discardID := req.SubjectAID, req.SubjectBID
	if req.KeepID == req.SubjectBID {
		keepID, discardID = req.SubjectBID, req.SubjectAID
	}

	if _, _, err := s.loadMergePair(ctx, op, keepID, discardID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, op, req.SubjectAID, req.SubjectBID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger := s.logger.WithContext(ctx).WithFields(map[string]any{
		"kept_subject_id":   keepID,
		"merged_subject_id": discardID,
	})
	logger.Info("Merging subjects")

	result = &models.MergeResult{KeptSubjectID: keepID, MergedSubjectID: discardID}
	var (
		action   *models.AuditAction
		moved    []string
		mergedTo *models.Relationship
	)
	// no cancellation past this point: the unit commits or rolls back as a whole
	err = s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context) error {
		kept, discarded, err := s.loadMergePair(ctx, op, keepID, discardID)
		if err != nil {
			return err
		}

		records, err := s.store.ListRecordsByOwner(ctx, models.SubjectOwner(discardID))
		if err != nil {
			return errors.Wrap(err, "failed to list records to move")
		}
		moved = make([]string, 0, len(records))
		for _, r := range records {
			moved = append(moved, r.ID)
		}

		result.RecordsMoved, err = s.store.ReassignOwner(ctx, models.SubjectOwner(discardID), models.SubjectOwner(keepID))
		if err != nil {
			return errors.Wrap(err, "failed to move records")
		}

		profile, added := MergeProfiles(kept.Profile, discarded.Profile)
		if err := s.store.UpdateSubjectProfile(ctx, keepID, profile); err != nil {
			return errors.Wrap(err, "failed to update profile")
		}
		result.ProfileFieldsAdded = added

		result.RelationshipsMoved, err = s.store.RepointRelationships(ctx, discardID, keepID)
		if err != nil {
			return errors.Wrap(err, "failed to re-point relationships")
		}

		now := s.now()
		if err := s.store.MarkSubjectMerged(ctx, discardID, keepID, now); err != nil {
			return errors.Wrap(err, "failed to mark subject merged")
		}

		mergedTo = &models.Relationship{
			ID:         uuid.NewString(),
			Type:       models.RelationshipMergedInto,
			FromID:     discardID,
			ToID:       keepID,
			Reason:     reason,
			Confidence: 1.0,
			CreatedBy:  req.CreatedBy,
			CreatedAt:  now,
		}
		if err := s.store.CreateRelationship(ctx, mergedTo); err != nil {
			return errors.Wrap(err, "failed to record merge edge")
		}

		action = s.newAction(models.AuditMergeSubjects, req.CreatedBy, reason, 1.0, map[string]any{
			"kept_subject_id":      keepID,
			"merged_subject_id":    discardID,
			"records_moved":        result.RecordsMoved,
			"relationships_moved":  result.RelationshipsMoved,
			"profile_fields_added": result.ProfileFieldsAdded,
		})
		return s.appendAudit(ctx, action)
	})
	if err != nil {
		return nil, s.mutationError(ctx, op, err)
	}
	result.AuditActionID = action.ID

	logger.WithFields(map[string]any{
		"records_moved":       result.RecordsMoved,
		"relationships_moved": result.RelationshipsMoved,
		"action_id":           action.ID,
	}).Info("Merged subjects")

	s.notify(ctx, Event{
		Action:         *action,
		Created:        []models.Relationship{*mergedTo},
		MovedRecordIDs: moved,
		NewOwner:       models.SubjectOwner(keepID),
	})

	return result, nil
}

// loadMergePair loads both subjects and rejects either having been merged already
func (s *Service) loadMergePair(ctx context.Context, op, keepID, discardID string) (*models.Subject, *models.Subject, error) {
	kept, err := s.loadLiveSubject(ctx, op, keepID)
	if err != nil {
		return nil, nil, err
	}
	discarded, err := s.loadLiveSubject(ctx, op, discardID)
	if err != nil {
		return nil, nil, err
	}
	return kept, discarded, nil
}

func (s *Service) loadLiveSubject(ctx context.Context, op, id string) (*models.Subject, error) {
	subject, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return nil, notFoundOr(op, "subject", id, err)
	}
	if subject.IsMerged() {
		return nil, linkerr.Conflict(op, "subject %s was already merged into %s", id, *subject.MergedInto)
	}
	return subject, nil
}

// LinkOrphan attaches an orphan to a subject. The orphan's records move to the
// subject; an orphan that owns no records has its identifier recorded on the
// subject instead. The orphan is marked resolved, or deleted when asked.
func (s *Service) LinkOrphan(ctx context.Context, req models.LinkOrphanRequest) (result *models.LinkOrphanResult, err error) {
	const op = "linking.LinkOrphan"
	ctx, span := tracing.StartSpan(ctx, "linking.Service.LinkOrphan")
	defer span.End()
	started := time.Now()
	defer func() { metrics.ObserveMutation(string(models.AuditLinkOrphan), started, err) }()

	reason, err := requireReason(op, req.Reason)
	if err != nil {
		return nil, err
	}
	if req.OrphanID == "" || req.SubjectID == "" {
		return nil, linkerr.Validation(op, "orphan id and subject id are required")
	}

	if _, err := s.loadOpenOrphan(ctx, op, req.OrphanID); err != nil {
		return nil, err
	}
	if _, err := s.loadLiveSubject(ctx, op, req.SubjectID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, op, req.OrphanID, req.SubjectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result = &models.LinkOrphanResult{OrphanID: req.OrphanID, SubjectID: req.SubjectID}
	var (
		action *models.AuditAction
		moved  []string
	)
	err = s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context) error {
		orphan, err := s.loadOpenOrphan(ctx, op, req.OrphanID)
		if err != nil {
			return err
		}
		if _, err := s.loadLiveSubject(ctx, op, req.SubjectID); err != nil {
			return err
		}

		records, err := s.store.ListRecordsByOwner(ctx, models.OrphanOwner(orphan.ID))
		if err != nil {
			return errors.Wrap(err, "failed to list orphan records")
		}

		if len(records) == 0 {
			record := s.recordFromOrphan(orphan)
			record.SetOwner(models.SubjectOwner(req.SubjectID))
			if err := s.store.CreateRecord(ctx, record); err != nil {
				return errors.Wrap(err, "failed to record orphan identifier")
			}
			moved = []string{record.ID}
			result.RecordsMoved = 1
			result.RecordCreated = true
		} else {
			moved = make([]string, 0, len(records))
			for _, r := range records {
				moved = append(moved, r.ID)
			}
			result.RecordsMoved, err = s.store.ReassignOwner(ctx, models.OrphanOwner(orphan.ID), models.SubjectOwner(req.SubjectID))
			if err != nil {
				return errors.Wrap(err, "failed to move orphan records")
			}
		}

		if req.DeleteOrphan {
			if err := s.store.DeleteOrphan(ctx, orphan.ID); err != nil {
				return errors.Wrap(err, "failed to delete orphan")
			}
			result.OrphanDeleted = true
		} else if err := s.store.ResolveOrphan(ctx, orphan.ID, req.SubjectID, s.now()); err != nil {
			return errors.Wrap(err, "failed to resolve orphan")
		}

		action = s.newAction(models.AuditLinkOrphan, req.CreatedBy, reason, orphan.Confidence, map[string]any{
			"orphan_id":        orphan.ID,
			"subject_id":       req.SubjectID,
			"identifier_type":  string(orphan.IdentifierType),
			"identifier_value": orphan.IdentifierValue,
			"records_moved":    result.RecordsMoved,
			"orphan_deleted":   result.OrphanDeleted,
		})
		return s.appendAudit(ctx, action)
	})
	if err != nil {
		return nil, s.mutationError(ctx, op, err)
	}
	result.AuditActionID = action.ID

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"orphan_id":     req.OrphanID,
		"subject_id":    req.SubjectID,
		"records_moved": result.RecordsMoved,
		"action_id":     action.ID,
	}).Info("Linked orphan to subject")

	s.notify(ctx, Event{
		Action:         *action,
		MovedRecordIDs: moved,
		NewOwner:       models.SubjectOwner(req.SubjectID),
	})

	return result, nil
}

func (s *Service) loadOpenOrphan(ctx context.Context, op, id string) (*models.Orphan, error) {
	orphan, err := s.store.GetOrphan(ctx, id)
	if err != nil {
		return nil, notFoundOr(op, "orphan", id, err)
	}
	if orphan.Resolved {
		linked := ""
		if orphan.LinkedSubjectID != nil {
			linked = *orphan.LinkedSubjectID
		}
		return nil, linkerr.Conflict(op, "orphan %s is already linked to subject %s", id, linked)
	}
	return orphan, nil
}

// DismissSuggestion suppresses record from subject's suggestions until it is
// undismissed. Dismissing twice is a no-op.
func (s *Service) DismissSuggestion(ctx context.Context, req models.DismissSuggestionRequest) (result *models.DismissSuggestionResult, err error) {
	const op = "linking.DismissSuggestion"
	ctx, span := tracing.StartSpan(ctx, "linking.Service.DismissSuggestion")
	defer span.End()
	started := time.Now()
	defer func() { metrics.ObserveMutation(string(models.AuditDismissSuggestion), started, err) }()

	reason, err := s.checkDismissal(ctx, op, req)
	if err != nil {
		return nil, err
	}

	result = &models.DismissSuggestionResult{SubjectID: req.SubjectID, RecordID: req.RecordID, Dismissed: true}
	var (
		action *models.AuditAction
		rel    *models.Relationship
	)
	err = s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context) error {
		_, err := s.store.GetRelationship(ctx, models.RelationshipDismissed, req.SubjectID, req.RecordID)
		if err == nil {
			result.AlreadyDismissed = true
			return nil
		}
		if !store.IsNotFound(err) {
			return errors.Wrap(err, "failed to look up dismissal")
		}

		rel = &models.Relationship{
			ID:         uuid.NewString(),
			Type:       models.RelationshipDismissed,
			FromID:     req.SubjectID,
			ToID:       req.RecordID,
			Reason:     reason,
			Confidence: 1.0,
			CreatedBy:  req.CreatedBy,
			CreatedAt:  s.now(),
		}
		if err := s.store.CreateRelationship(ctx, rel); err != nil {
			return errors.Wrap(err, "failed to create dismissal")
		}

		action = s.newAction(models.AuditDismissSuggestion, req.CreatedBy, reason, 1.0, map[string]any{
			"subject_id":      req.SubjectID,
			"record_id":       req.RecordID,
			"relationship_id": rel.ID,
		})
		return s.appendAudit(ctx, action)
	})
	if err != nil {
		return nil, s.mutationError(ctx, op, err)
	}
	if action == nil {
		return result, nil
	}
	result.AuditActionID = action.ID

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"subject_id": req.SubjectID,
		"record_id":  req.RecordID,
		"action_id":  action.ID,
	}).Info("Dismissed suggestion")

	s.notify(ctx, Event{Action: *action, Created: []models.Relationship{*rel}})

	return result, nil
}

// UndismissSuggestion removes a dismissal so the record can be suggested again
func (s *Service) UndismissSuggestion(ctx context.Context, req models.DismissSuggestionRequest) (result *models.DismissSuggestionResult, err error) {
	const op = "linking.UndismissSuggestion"
	ctx, span := tracing.StartSpan(ctx, "linking.Service.UndismissSuggestion")
	defer span.End()
	started := time.Now()
	defer func() { metrics.ObserveMutation(string(models.AuditUndismissSuggestion), started, err) }()

	reason, err := s.checkDismissal(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var (
		action  *models.AuditAction
		removed *models.Relationship
	)
	err = s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context) error {
		rel, err := s.store.GetRelationship(ctx, models.RelationshipDismissed, req.SubjectID, req.RecordID)
		if err != nil {
			if store.IsNotFound(err) {
				return linkerr.NotFound(op, "dismissal of record", req.RecordID)
			}
			return errors.Wrap(err, "failed to look up dismissal")
		}
		if err := s.store.DeleteRelationship(ctx, rel.ID); err != nil {
			return errors.Wrap(err, "failed to delete dismissal")
		}
		removed = rel

		action = s.newAction(models.AuditUndismissSuggestion, req.CreatedBy, reason, 1.0, map[string]any{
			"subject_id":      req.SubjectID,
			"record_id":       req.RecordID,
			"relationship_id": rel.ID,
		})
		return s.appendAudit(ctx, action)
	})
	if err != nil {
		return nil, s.mutationError(ctx, op, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"subject_id": req.SubjectID,
		"record_id":  req.RecordID,
		"action_id":  action.ID,
	}).Info("Undismissed suggestion")

	s.notify(ctx, Event{Action: *action, Removed: []models.Relationship{*removed}})

	return &models.DismissSuggestionResult{
		SubjectID:     req.SubjectID,
		RecordID:      req.RecordID,
		Dismissed:     false,
		AuditActionID: action.ID,
	}, nil
}

// checkDismissal validates a dismissal request and returns the trimmed reason
func (s *Service) checkDismissal(ctx context.Context, op string, req models.DismissSuggestionRequest) (string, error) {
	reason, err := requireReason(op, req.Reason)
	if err != nil {
		return "", err
	}
	if req.SubjectID == "" || req.RecordID == "" {
		return "", linkerr.Validation(op, "subject id and record id are required")
	}
	if _, err := s.loadLiveSubject(ctx, op, req.SubjectID); err != nil {
		return "", err
	}
	record, err := s.store.GetRecord(ctx, req.RecordID)
	if err != nil {
		return "", notFoundOr(op, "identifier record", req.RecordID, err)
	}
	if record.Owner() == models.SubjectOwner(req.SubjectID) {
		return "", linkerr.Validation(op, "record %s belongs to subject %s", req.RecordID, req.SubjectID)
	}
	return reason, ctx.Err()
}

func (s *Service) lock(ctx context.Context, op string, ids ...string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, ids...)
	if err == nil {
		return unlock, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, linkerr.Conflict(op, "another mutation holds %s", strings.Join(lockOrder(ids), ", "))
	}
	return nil, linkerr.MutationFailure(op, errors.Wrap(err, "failed to acquire lock"))
}

func (s *Service) newAction(actionType models.AuditActionType, createdBy, reason string, confidence float64, details map[string]any) *models.AuditAction {
	return &models.AuditAction{
		ID:         uuid.NewString(),
		ActionType: actionType,
		CreatedAt:  s.now(),
		CreatedBy:  createdBy,
		Reason:     reason,
		Details:    details,
		Confidence: confidence,
	}
}

func (s *Service) appendAudit(ctx context.Context, action *models.AuditAction) error {
	if err := s.store.AppendAudit(ctx, action); err != nil {
		return errors.Wrap(err, "failed to append audit action")
	}
	return nil
}

// mutationError keeps classified errors and wraps anything else as a rolled back mutation
func (s *Service) mutationError(ctx context.Context, op string, err error) error {
	if linkerr.KindOf(err) != "" {
		return err
	}
	s.logger.WithContext(ctx).WithError(err).Errorf("%s rolled back", op)
	return linkerr.MutationFailure(op, err)
}

// notify runs every observer with its own timeout. Failures never surface to the caller.
func (s *Service) notify(ctx context.Context, event Event) {
	ctx = context.WithoutCancel(ctx)
	for _, observer := range s.observers {
		observeCtx, cancel := context.WithTimeout(ctx, s.config.ObserverTimeout)
		err := observer.Observe(observeCtx, event)
		cancel()
		if err != nil {
			metrics.ObserverFailures.WithLabelValues(observer.Name()).Inc()
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"observer":  observer.Name(),
				"action_id": event.Action.ID,
			}).Warn("Observer failed after commit")
		}
	}
}

func requireReason(op, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", linkerr.Validation(op, "a reason is required")
	}
	return reason, nil
}

func notFoundOr(op, resource, id string, err error) error {
	if store.IsNotFound(err) {
		return linkerr.NotFound(op, resource, id)
	}
	return errors.Wrapf(err, "failed to load %s", resource)
}

// recordFromOrphan normalizes the orphan's raw identifier so the new record
// carries the same forms and hash as any other record of its kind
func (s *Service) recordFromOrphan(orphan *models.Orphan) *models.IdentifierRecord {
	norm := s.normalizer.Normalize(orphan.IdentifierValue, orphan.IdentifierType, s.config.Hints)
	record := &models.IdentifierRecord{
		ID:              uuid.NewString(),
		Kind:            norm.Kind,
		RawValue:        orphan.IdentifierValue,
		NormalizedValue: norm.Normalized,
		SearchValue:     norm.SearchForm,
		NeedsReview:     norm.NeedsReview,
		Metadata:        orphan.DiscoveryMetadata,
		CreatedAt:       s.now(),
	}
	if record.NormalizedValue == "" {
		record.NormalizedValue = orphan.NormalizedValue
		record.SearchValue = strings.ToLower(orphan.NormalizedValue)
	}
	if record.Kind.IsFileLike() && strings.TrimSpace(orphan.IdentifierValue) != "" {
		hash := matching.ContentHashFor(orphan.IdentifierValue)
		record.ContentHash = &hash
	}
	return record
}
