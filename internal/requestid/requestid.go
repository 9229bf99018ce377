// Package requestid tags every request with a correlation id that is echoed
// in the X-Request-ID response header and carried on the request context.
package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type contextKey struct{}

// maxLength bounds client-supplied ids so they fit the audit column.
const maxLength = 36

// Middleware reuses a client-supplied id or generates a time-sortable one.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxLength {
			id = New()
		}

		c.Set("request_id", id)
		c.Header(Header, id)
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))

		c.Next()
	}
}

// New returns a UUIDv7, falling back to v4.
func New() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the request id, or "" outside a request.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
