package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderOperatorID   = "X-Operator-ID"
	HeaderOperatorName = "X-Operator-Name"
)

type operatorKey struct{}

// Operator identifies the admin issuing a request. Authentication happens
// upstream; the gateway forwards the verified identity in headers.
type Operator struct {
	ID   string
	Name string
}

// OperatorContext copies the operator headers into the request context.
func OperatorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := Operator{
			ID:   strings.TrimSpace(c.GetHeader(HeaderOperatorID)),
			Name: strings.TrimSpace(c.GetHeader(HeaderOperatorName)),
		}
		if op.ID != "" {
			ctx := WithOperator(c.Request.Context(), op)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// GetOperator returns the operator on ctx, if any.
func GetOperator(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}
