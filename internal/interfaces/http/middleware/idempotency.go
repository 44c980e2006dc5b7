package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/skol/backend/internal/infrastructure/logger"
	"github.com/skol/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the client-supplied request key header
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency de-duplicates retried mutating requests. A client that retries
// a POST after a timeout sends the same Idempotency-Key; the replay is
// answered with 409 instead of re-applying the mutation. Requests without the
// header pass through untouched.
//
// The key is scoped to method and path, so the same key on a different
// endpoint is a different request. Store failures fail open: losing
// de-duplication is preferable to refusing all mutations.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		scopedKey := c.Request.Method + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()

		fresh, err := store.MarkProcessed(ctx, scopedKey, ttl)
		if err != nil {
			logger.L(ctx).Warn("idempotency store unavailable, skipping de-duplication",
				zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict,
				dto.NewErrorResponse(dto.ErrCodeDuplicateRequest,
					"Request with this idempotency key was already processed"))
			return
		}

		c.Next()
	}
}
