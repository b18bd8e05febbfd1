package shared

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ActorContext identifies who performs an operation and for which tenant.
// It is passed explicitly to every ledger and transition call.
type ActorContext struct {
	TenantID  uuid.UUID
	ActorID   uuid.UUID
	ActorName string
}

// NewActorContext builds an actor context
func NewActorContext(tenantID, actorID uuid.UUID, actorName string) ActorContext {
	return ActorContext{TenantID: tenantID, ActorID: actorID, ActorName: actorName}
}

// Validate checks that tenant and actor are set
func (a ActorContext) Validate() error {
	if a.TenantID == uuid.Nil {
		return NewDomainError(CodeInvalidInput, "Tenant ID is required")
	}
	if a.ActorID == uuid.Nil {
		return NewDomainError(CodeInvalidInput, "Actor ID is required")
	}
	return nil
}

func (a ActorContext) String() string {
	return fmt.Sprintf("tenant=%s actor=%s", a.TenantID, a.ActorID)
}

type actorKey struct{}

// WithActor stores the actor on ctx for transports that resolve it once per request
func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor
func ActorFromContext(ctx context.Context) (ActorContext, bool) {
	actor, ok := ctx.Value(actorKey{}).(ActorContext)
	return actor, ok
}
