package middleware

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbpkg "siteinsight/internal/db"
	httpctx "siteinsight/internal/http/ctx"
)

const basicRealm = `Basic realm="siteinsight"`

// AdminAuth returns middleware that checks HTTP basic credentials against
// the users table and sets the user on the context.
func AdminAuth(db *gorm.DB, log *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			username, password, ok := basicCredentials(ctx.Request.Header.Peek("Authorization"))
			if !ok {
				unauthorized(ctx)
				return
			}

			user, err := dbpkg.Authenticate(db, username, password)
			if err != nil {
				if errors.Is(err, dbpkg.ErrInvalidCredentials) {
					unauthorized(ctx)
					return
				}
				log.Error("failed to load report user", zap.String("username", username), zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("database error")
				return
			}

			httpctx.SetUser(ctx, user)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("WWW-Authenticate", basicRealm)
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString("unauthorized")
}

func basicCredentials(auth []byte) (username, password string, ok bool) {
	const prefix = "Basic "
	if !bytes.HasPrefix(auth, []byte(prefix)) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(auth[len(prefix):])))
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(decoded), ":")
	if !ok || username == "" {
		return "", "", false
	}
	return username, password, true
}
