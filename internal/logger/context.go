package logger

import "context"

type ctxKey struct{}

// NewContext returns ctx carrying l. Request handlers use it to log with request scoped fields
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromContext(ctx context.Context) (Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(Logger)
	return l, ok
}
