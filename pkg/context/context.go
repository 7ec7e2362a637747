// Package context carries request-scoped values (request id, acting user) from
// the HTTP layer into services and log lines.
package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	UserIDKey    = ContextKey("X-User-Id")
	MethodKey    = ContextKey("X-Method")
	RouteKey     = ContextKey("X-Route")
	RemoteIPKey  = ContextKey("X-Remote-Ip")
)

func set(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context, key ContextKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return set(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string { return get(ctx, RequestIDKey) }

// SetUserID records the analyst acting on the request. It becomes created_by on audit actions.
func SetUserID(ctx context.Context, userID string) context.Context {
	return set(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string { return get(ctx, UserIDKey) }

func SetMethod(ctx context.Context, method string) context.Context {
	return set(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string { return get(ctx, MethodKey) }

func SetRoute(ctx context.Context, route string) context.Context {
	return set(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string { return get(ctx, RouteKey) }

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return set(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string { return get(ctx, RemoteIPKey) }

// Fields returns the request values as log fields, skipping empty ones
func Fields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	for name, key := range map[string]ContextKey{
		"request_id": RequestIDKey,
		"user_id":    UserIDKey,
		"method":     MethodKey,
		"route":      RouteKey,
	} {
		if v := get(ctx, key); v != "" {
			fields[name] = v
		}
	}
	return fields
}
