package linking

import (
	"context"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Event describes a committed mutation
type Event struct {
	Action models.AuditAction
	// Created and Removed are the edges the mutation added or deleted
	Created []models.Relationship
	Removed []models.Relationship
	// MovedRecordIDs are the records whose owner changed, now owned by NewOwner
	MovedRecordIDs []string
	NewOwner       models.Owner
}

// Observer is told about mutations after they commit. An observer error is
// logged and counted; the mutation stays committed.
type Observer interface {
	Name() string
	Observe(ctx context.Context, event Event) error
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc struct {
	ObserverName string
	Fn           func(ctx context.Context, event Event) error
}

func (o ObserverFunc) Name() string { return o.ObserverName }

func (o ObserverFunc) Observe(ctx context.Context, event Event) error { return o.Fn(ctx, event) }
