package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "siteinsight/internal/db"
)

const (
	UserKey      = "user"
	SessionIDKey = "sessionID"
	VariantKey   = "variant"
)

func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	v := ctx.UserValue(UserKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*dbpkg.User)
	return u, ok && u != nil
}

// SetSession stores the visitor's session id and variant. Either may be empty.
func SetSession(ctx *fasthttp.RequestCtx, sessionID, variant string) {
	ctx.SetUserValue(SessionIDKey, sessionID)
	ctx.SetUserValue(VariantKey, variant)
}

func SessionFromCtx(ctx *fasthttp.RequestCtx) (sessionID, variant string) {
	sessionID, _ = ctx.UserValue(SessionIDKey).(string)
	variant, _ = ctx.UserValue(VariantKey).(string)
	return sessionID, variant
}
