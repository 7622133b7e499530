package authkit

import "context"

type contextKey uint8

const clientIPKey contextKey = iota

// WithClientIP attaches the caller's IP to the context so audit events and
// the IP throttle can see it. Transports call this; library consumers rarely
// need to.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIP(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
