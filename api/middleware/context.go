package middleware

import (
	"context"

	"github.com/angelmondragon/estore-backend/pkg/types"
)

type contextKey string

const (
	ctxCartContext contextKey = "cart_context"
	ctxClientIP    contextKey = "client_ip"
)

// CartContextFrom returns the cart the request acts on. The zero value means
// the caller supplied no usable cart id.
func CartContextFrom(ctx context.Context) types.CartContext {
	if ctx == nil {
		return types.CartContext{}
	}
	if v, ok := ctx.Value(ctxCartContext).(types.CartContext); ok {
		return v
	}
	return types.CartContext{}
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

// WithCartContext injects the shopper cart into the context for downstream handlers.
func WithCartContext(ctx context.Context, cc types.CartContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartContext, cc)
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClientIP, ip)
}
