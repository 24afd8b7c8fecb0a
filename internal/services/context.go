package services

import "context"

// RequestMeta is what the audit trail records about the originating request.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	URL       string
}

type requestMetaKey struct{}

// WithRequestMeta attaches request details to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the details set by WithRequestMeta, or zero values.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
