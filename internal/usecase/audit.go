package usecase

import (
	"context"
	"time"

	"github.com/lexhq/trustledger/internal/domain"
)

// newAuditLog builds an audit row for a state-changing call. The actor
// comes from the request context; "system" covers internal processes
// like the outbox publisher.
func newAuditLog(
	ctx context.Context,
	idGen IDGenerator,
	action domain.AuditAction,
	resourceType, resourceID string,
	before, after any,
	reason string,
) *domain.TrustAuditLog {
	actorID := "system"
	if actor, ok := domain.ActorFromContext(ctx); ok {
		actorID = actor.ID
	}

	return &domain.TrustAuditLog{
		ID:           idGen.Generate(),
		ActorID:      actorID,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Reason:       reason,
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
}
