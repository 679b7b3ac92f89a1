package httpc

import "context"

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// WithRequestID returns a context carrying a caller-chosen request
// ID. The pipeline logs it with every event for that request; when
// absent a fresh one is generated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFrom extracts the request ID from ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKeyRequestID)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
