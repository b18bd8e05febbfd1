package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxIdempotencyKeyLength bounds the Idempotency-Key header
const MaxIdempotencyKeyLength = 255

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store shared.IdempotencyStore
	TTL   time.Duration
}

// Idempotency short-circuits a repeated Idempotency-Key on mutating requests
// with 409. The key is scoped by tenant, method and route. Failed requests
// release their key so the client can retry.
//
// A store failure lets the request through: postings stay exactly-once
// through the ledger's unique posting key either way.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if cfg.Store == nil || key == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			abortWithError(c, dto.ErrCodeInvalidInput, "Idempotency-Key is too long")
			return
		}

		ctx := c.Request.Context()
		scoped := scopedIdempotencyKey(c, key)
		claimed, err := cfg.Store.Claim(ctx, scoped, cfg.TTL)
		if err != nil {
			logger.FromContext(ctx).Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			abortWithError(c, dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already processed")
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest || len(c.Errors) > 0 {
			if err := cfg.Store.Release(ctx, scoped); err != nil {
				logger.FromContext(ctx).Warn("failed to release idempotency key", zap.Error(err))
			}
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func scopedIdempotencyKey(c *gin.Context, key string) string {
	tenant := "-"
	if actor, ok := GetActor(c); ok {
		tenant = actor.TenantID.String()
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return tenant + ":" + c.Request.Method + ":" + route + ":" + key
}
