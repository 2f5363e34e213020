package middleware

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

// SessionAuth loads the session user from the session cookie and sets
// it on the context. Requests without a valid session get 401.
func SessionAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			cookie := ctx.Request.Header.Cookie("session_user")
			if len(cookie) == 0 {
				jsonMessage(ctx, fasthttp.StatusUnauthorized, "Not authenticated.")
				return
			}
			username := string(cookie)

			var user dbpkg.User
			if err := db.Where("username = ?", username).First(&user).Error; err != nil {
				jsonMessage(ctx, fasthttp.StatusUnauthorized, "Not authenticated.")
				return
			}

			httpctx.SetUser(ctx, &user)
			next(ctx)
		}
	}
}

func jsonMessage(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"message": msg})
	ctx.SetBody(body)
}
