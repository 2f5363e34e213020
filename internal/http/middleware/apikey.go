package middleware

import (
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

// APIKeyAuth authenticates event submission requests by their
// X-API-KEY header and sets the resolved app on the context.
func APIKeyAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			apiKey := string(ctx.Request.Header.Peek("X-API-KEY"))
			if apiKey == "" {
				jsonMessage(ctx, fasthttp.StatusUnauthorized, "Access denied. Missing X-API-KEY header.")
				return
			}

			app, err := dbpkg.FindAppByKey(db, apiKey)
			if err != nil {
				jsonMessage(ctx, fasthttp.StatusInternalServerError, "Server error during API key validation.")
				return
			}
			if app == nil {
				jsonMessage(ctx, fasthttp.StatusForbidden, "Forbidden. Invalid API Key.")
				return
			}
			if app.Status == dbpkg.AppStatusRevoked {
				jsonMessage(ctx, fasthttp.StatusForbidden, "Forbidden. API Key has been revoked.")
				return
			}
			if app.ExpiresAt != nil && app.ExpiresAt.Before(time.Now()) {
				jsonMessage(ctx, fasthttp.StatusForbidden, "Forbidden. API Key has expired.")
				return
			}

			httpctx.SetApp(ctx, app)
			next(ctx)
		}
	}
}
