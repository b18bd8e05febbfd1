package middleware

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const actorKey = "actor"

// MaxActorNameLength bounds the X-User-Name header
const MaxActorNameLength = 100

// Actor resolves the acting tenant and user from X-Tenant-ID and X-User-ID.
// Authentication happens upstream; the API only records who acted.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantHeader := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		userHeader := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if tenantHeader == "" || userHeader == "" {
			abortWithError(c, dto.ErrCodeMissingActor, "X-Tenant-ID and X-User-ID headers are required")
			return
		}

		tenantID, err := uuid.Parse(tenantHeader)
		if err != nil {
			abortWithError(c, dto.ErrCodeInvalidInput, "X-Tenant-ID must be a UUID")
			return
		}
		actorID, err := uuid.Parse(userHeader)
		if err != nil {
			abortWithError(c, dto.ErrCodeInvalidInput, "X-User-ID must be a UUID")
			return
		}

		name := strings.TrimSpace(c.GetHeader(HeaderUserName))
		if len(name) > MaxActorNameLength {
			name = name[:MaxActorNameLength]
		}

		actor := shared.NewActorContext(tenantID, actorID, name)
		if err := actor.Validate(); err != nil {
			abortWithError(c, dto.ErrCodeMissingActor, err.Error())
			return
		}

		ctx, _ := logger.WithActor(c.Request.Context(), logger.FromContext(c.Request.Context()), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor resolved by Actor
func GetActor(c *gin.Context) (shared.ActorContext, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return shared.ActorContext{}, false
	}
	actor, ok := v.(shared.ActorContext)
	return actor, ok
}
