package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "sitepulse/internal/db"
)

const (
	UserKey = "user"
	AppKey  = "app"
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
	return u, ok
}

func SetApp(ctx *fasthttp.RequestCtx, app *dbpkg.App) {
	ctx.SetUserValue(AppKey, app)
}

func AppFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.App, bool) {
	v := ctx.UserValue(AppKey)
	if v == nil {
		return nil, false
	}
	a, ok := v.(*dbpkg.App)
	return a, ok
}
