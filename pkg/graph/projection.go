package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/linking"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Node labels used by the projection
const (
	LabelSubject    = "Subject"
	LabelIdentifier = "Identifier"
	LabelNode       = "Node"
)

// Statement is one parameterised Cypher statement
type Statement struct {
	Cypher string
	Params map[string]any
}

// StatementWriter executes statements atomically
type StatementWriter interface {
	WriteStatements(ctx context.Context, statements []Statement) error
}

// Projection keeps the graph in step with committed linking mutations
type Projection struct {
	writer StatementWriter
	logger ectologger.Logger
}

var _ linking.Observer = (*Projection)(nil)

// NewProjection creates a Projection
func NewProjection(writer StatementWriter, logger ectologger.Logger) *Projection {
	return &Projection{writer: writer, logger: logger}
}

func (p *Projection) Name() string { return "graph_projection" }

func (p *Projection) Observe(ctx context.Context, event linking.Event) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.Observe")
	defer span.End()

	statements := Statements(event)
	if len(statements) == 0 {
		return nil
	}
	if err := p.writer.WriteStatements(ctx, statements); err != nil {
		return fmt.Errorf("failed to project %s into graph: %w", event.Action.ActionType, err)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"action_id":  event.Action.ID,
		"statements": len(statements),
	}).Debug("Projected linking action into graph")
	return nil
}

// Statements translates an event into the Cypher that mirrors it
func Statements(event linking.Event) []Statement {
	var out []Statement

	if len(event.MovedRecordIDs) > 0 && !event.NewOwner.IsZero() {
		out = append(out, Statement{
			Cypher: fmt.Sprintf(`
				MERGE (owner:%s {id: $owner_id})
				WITH owner
				UNWIND $record_ids AS record_id
				MERGE (i:%s {id: record_id})
				WITH owner, i
				OPTIONAL MATCH (i)-[old:OWNED_BY]->()
				DELETE old
				MERGE (i)-[:OWNED_BY]->(owner)
			`, ownerLabel(event.NewOwner), LabelIdentifier),
			Params: map[string]any{
				"owner_id":   event.NewOwner.ID,
				"record_ids": event.MovedRecordIDs,
			},
		})
	}

	if event.Action.ActionType == models.AuditMergeSubjects {
		if merged, ok := event.Action.Details["merged_subject_id"].(string); ok {
			out = append(out, Statement{
				Cypher: fmt.Sprintf(`MERGE (s:%s {id: $id}) SET s.merged_into = $into`, LabelSubject),
				Params: map[string]any{"id": merged, "into": event.Action.Details["kept_subject_id"]},
			})
		}
	}

	if event.Action.ActionType == models.AuditLinkOrphan {
		if orphanID, ok := event.Action.Details["orphan_id"].(string); ok {
			out = append(out, Statement{
				Cypher: `MATCH (o:Orphan {id: $id}) DETACH DELETE o`,
				Params: map[string]any{"id": orphanID},
			})
		}
	}

	for _, rel := range event.Created {
		from, to := endpointLabels(rel.Type)
		out = append(out, Statement{
			Cypher: fmt.Sprintf(`
				MERGE (a:%s {id: $from_id})
				MERGE (b:%s {id: $to_id})
				MERGE (a)-[r:%s {id: $rel_id}]->(b)
				SET r.reason = $reason, r.confidence = $confidence, r.created_by = $created_by, r.created_at = $created_at
			`, from, to, relationshipLabel(rel.Type)),
			Params: map[string]any{
				"from_id":    rel.FromID,
				"to_id":      rel.ToID,
				"rel_id":     rel.ID,
				"reason":     rel.Reason,
				"confidence": rel.Confidence,
				"created_by": rel.CreatedBy,
				"created_at": rel.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			},
		})
	}

	for _, rel := range event.Removed {
		out = append(out, Statement{
			Cypher: fmt.Sprintf(`MATCH ()-[r:%s {id: $rel_id}]->() DELETE r`, relationshipLabel(rel.Type)),
			Params: map[string]any{"rel_id": rel.ID},
		})
	}

	return out
}

func ownerLabel(owner models.Owner) string {
	if owner.Type == models.OwnerOrphan {
		return "Orphan"
	}
	return LabelSubject
}

func endpointLabels(t models.RelationshipType) (string, string) {
	switch t {
	case models.RelationshipLinked:
		return LabelIdentifier, LabelIdentifier
	case models.RelationshipDismissed:
		return LabelSubject, LabelIdentifier
	case models.RelationshipMergedInto:
		return LabelSubject, LabelSubject
	default:
		return LabelNode, LabelNode
	}
}

// relationshipLabel turns a relationship type into a safe upper-case Cypher label
func relationshipLabel(t models.RelationshipType) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(string(t)) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "RELATED_TO"
	}
	return b.String()
}
