package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID  ctxKey = "user_id"
	CtxKeyModules ctxKey = "modules"
	CtxKeyClaims  ctxKey = "claims" // full jwtx.Claims if you need them
)

// UserIDFromCtx returns the authenticated user id, or "" when the request
// carries no verified token.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

func modulesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyModules).([]string); ok {
		return v
	}
	return nil
}
