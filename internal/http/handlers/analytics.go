package handlers

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"sitepulse/internal/analytics"
)

// parseQueryTime accepts RFC3339 timestamps or plain dates (2006-01-02).
func parseQueryTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// EventSummary serves GET /api/analytics/event-summary. The filter's
// owner is always the session user; app_id only narrows within that
// ownership.
func EventSummary(svc *analytics.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		filter := analytics.Filter{
			EventName:   string(ctx.QueryArgs().Peek("event")),
			OwnerUserID: user.ID,
		}

		if raw := string(ctx.QueryArgs().Peek("app_id")); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				writeMessage(ctx, fasthttp.StatusBadRequest, "invalid app_id")
				return
			}
			appID := uint(id)
			filter.AppID = &appID
		}
		if raw := string(ctx.QueryArgs().Peek("startDate")); raw != "" {
			t, err := parseQueryTime(raw)
			if err != nil {
				writeMessage(ctx, fasthttp.StatusBadRequest, "invalid startDate")
				return
			}
			filter.From = &t
		}
		if raw := string(ctx.QueryArgs().Peek("endDate")); raw != "" {
			t, err := parseQueryTime(raw)
			if err != nil {
				writeMessage(ctx, fasthttp.StatusBadRequest, "invalid endDate")
				return
			}
			filter.To = &t
		}

		summary, err := svc.EventSummary(ctx, filter)
		if err != nil {
			log.Debug().Err(err).Str("event", filter.EventName).Msg("event summary failed")
			writeAnalyticsError(ctx, err)
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, summary)
	}
}

// UserStats serves GET /api/analytics/user-stats.
func UserStats(svc *analytics.Service, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}

		subjectID := string(ctx.QueryArgs().Peek("userId"))
		stats, err := svc.UserStats(ctx, subjectID)
		if err != nil {
			log.Debug().Err(err).Str("subject", subjectID).Msg("user stats failed")
			writeAnalyticsError(ctx, err)
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, stats)
	}
}
