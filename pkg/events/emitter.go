// Package events streams committed linking decisions to Kafka so downstream
// consumers can follow merges, links and dismissals.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/codeGROOVE-dev/retry"

	"github.com/Ramsey-B/thistle/pkg/linking"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Publisher writes one keyed JSON message
type Publisher interface {
	PublishJSON(ctx context.Context, key string, headers map[string]string, value any) error
}

// AuditEvent is the message body written for every committed mutation
type AuditEvent struct {
	EventType      string                `json:"event_type"`
	Action         models.AuditAction    `json:"action"`
	Created        []models.Relationship `json:"created,omitempty"`
	Removed        []models.Relationship `json:"removed,omitempty"`
	MovedRecordIDs []string              `json:"moved_record_ids,omitempty"`
	NewOwner       *models.Owner         `json:"new_owner,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
}

// Config controls publish retries
type Config struct {
	Attempts uint          // Publish attempts per event (default: 3)
	Delay    time.Duration // Base delay between attempts (default: 100ms)
}

// DefaultConfig returns default emitter configuration
func DefaultConfig() Config {
	return Config{Attempts: 3, Delay: 100 * time.Millisecond}
}

// Emitter is a linking.Observer that publishes audit events
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	config    Config
}

var _ linking.Observer = (*Emitter)(nil)

// NewEmitter creates an Emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger, config Config) *Emitter {
	defaults := DefaultConfig()
	if config.Attempts == 0 {
		config.Attempts = defaults.Attempts
	}
	if config.Delay <= 0 {
		config.Delay = defaults.Delay
	}
	return &Emitter{publisher: publisher, logger: logger, config: config}
}

func (e *Emitter) Name() string { return "kafka_audit" }

// Observe publishes the event, retrying transient failures until ctx ends
func (e *Emitter) Observe(ctx context.Context, event linking.Event) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.Observe")
	defer span.End()

	msg := NewAuditEvent(event)
	headers := map[string]string{
		"event_type": msg.EventType,
		"action_id":  event.Action.ID,
	}
	key := partitionKey(event)

	err := retry.Do(
		func() error {
			return e.publisher.PublishJSON(ctx, key, headers, msg)
		},
		retry.Context(ctx),
		retry.Attempts(e.config.Attempts),
		retry.Delay(e.config.Delay),
		retry.MaxJitter(e.config.Delay/2),
		retry.OnRetry(func(n uint, err error) {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"attempt":   n + 1,
				"action_id": event.Action.ID,
			}).Debug("Retrying audit event publish")
		}),
	)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.EventsPublished.WithLabelValues(string(event.Action.ActionType), status).Inc()

	return err
}

// NewAuditEvent builds the message body for a committed mutation
func NewAuditEvent(event linking.Event) AuditEvent {
	msg := AuditEvent{
		EventType:      "linking." + string(event.Action.ActionType),
		Action:         event.Action,
		Created:        event.Created,
		Removed:        event.Removed,
		MovedRecordIDs: event.MovedRecordIDs,
		Timestamp:      event.Action.CreatedAt,
	}
	if !event.NewOwner.IsZero() {
		owner := event.NewOwner
		msg.NewOwner = &owner
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

// partitionKey picks the subject the event is about so a subject's history stays ordered
func partitionKey(event linking.Event) string {
	for _, k := range []string{"kept_subject_id", "subject_id"} {
		if v, ok := event.Action.Details[k].(string); ok && v != "" {
			return v
		}
	}
	if !event.NewOwner.IsZero() {
		return event.NewOwner.ID
	}
	return event.Action.ID
}
