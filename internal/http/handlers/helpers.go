package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"sitepulse/internal/analytics"
	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"message":"Internal Server Error"}`)
		return
	}
	ctx.SetBody(body)
}

func writeMessage(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"message": msg})
}

// MustUser returns the session user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok || user == nil {
		writeMessage(ctx, fasthttp.StatusUnauthorized, "Not authenticated.")
		return nil, false
	}
	return user, true
}

// writeAnalyticsError maps the analytics error taxonomy onto HTTP
// statuses: validation 400, denied app access 403, missing subject 404,
// everything else (store failures included) 500.
func writeAnalyticsError(ctx *fasthttp.RequestCtx, err error) {
	var verr *analytics.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(ctx, fasthttp.StatusBadRequest, verr.Error())
	case errors.Is(err, analytics.ErrAccessDenied):
		writeMessage(ctx, fasthttp.StatusForbidden, "Access to this app is denied.")
	case errors.Is(err, analytics.ErrNotFound):
		writeMessage(ctx, fasthttp.StatusNotFound, "User not found.")
	default:
		writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error")
	}
}
