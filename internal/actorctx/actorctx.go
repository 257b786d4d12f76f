package actorctx

import "context"

type ctxKey string

const keyUserID ctxKey = "user_id"

// WithUserID stamps the authenticated principal onto a plain context so
// layers below gin (repos, job enqueues) can attribute work to a user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}
