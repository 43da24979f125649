package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "ledgercore/internal/core/context"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// Actor copies the caller identity set by the upstream gateway into the
// request context. Requests without the header act as "system".
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actorID != "" {
			ctx := appctx.WithActor(c.Request.Context(), &appctx.Actor{
				ID:   actorID,
				Name: strings.TrimSpace(c.GetHeader(HeaderActorName)),
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
