package middleware

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// RequestLogger logs one line per request: method, path, status and duration.
func RequestLogger(log zerolog.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			log.Info().
				Str("method", string(ctx.Method())).
				Str("path", string(ctx.Path())).
				Int("status", ctx.Response.StatusCode()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}
	}
}
