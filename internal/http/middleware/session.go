package middleware

import (
	"github.com/valyala/fasthttp"

	"siteinsight/internal/config"
	httpctx "siteinsight/internal/http/ctx"
)

// Session copies the session and variant cookies set by the site into
// the request context. Assigning them is left to the site itself.
func Session(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			sessionID := string(ctx.Request.Header.Cookie(cfg.SessionCookie))
			variant := string(ctx.Request.Header.Cookie(cfg.VariantCookie))
			httpctx.SetSession(ctx, sessionID, variant)
			next(ctx)
		}
	}
}
