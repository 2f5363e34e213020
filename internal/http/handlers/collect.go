package handlers

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"

	"sitepulse/internal/analytics"
	"sitepulse/internal/config"
	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

var validate = validator.New()

// EventInserter is the write capability of the event store.
type EventInserter interface {
	InsertEvent(ctx context.Context, e *dbpkg.Event) error
}

type collectMetadata struct {
	Browser    string `json:"browser" validate:"omitempty,max=128"`
	OS         string `json:"os" validate:"omitempty,max=128"`
	ScreenSize string `json:"screenSize" validate:"omitempty,max=64"`
}

type collectRequest struct {
	Event     string           `json:"event" validate:"required,max=128"`
	URL       string           `json:"url" validate:"omitempty,max=2048"`
	Referrer  string           `json:"referrer" validate:"omitempty,max=2048"`
	Device    string           `json:"device" validate:"omitempty,max=64"`
	IPAddress string           `json:"ipAddress" validate:"omitempty,max=64"`
	UserID    string           `json:"userId" validate:"omitempty,max=128"`
	Metadata  *collectMetadata `json:"metadata" validate:"omitempty"`
}

// Collect serves POST /api/analytics/collect. The client is acknowledged
// as soon as the payload validates; persistence runs as a detached task
// whose failure is only observable in logs. The summary cache entry this
// write could stale is deleted best-effort before acknowledging.
func Collect(store EventInserter, svc *analytics.Service, cfg *config.Config, log zerolog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		app, ok := httpctx.AppFromCtx(ctx)
		if !ok || app == nil {
			writeMessage(ctx, fasthttp.StatusUnauthorized, "Access denied.")
			return
		}

		var payload collectRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			writeMessage(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validate.Struct(&payload); err != nil {
			writeMessage(ctx, fasthttp.StatusBadRequest, "invalid event payload")
			return
		}

		rec := &dbpkg.Event{
			AppID:         app.ID,
			EventName:     payload.Event,
			URL:           payload.URL,
			Referrer:      payload.Referrer,
			Device:        payload.Device,
			IPAddress:     payload.IPAddress,
			SubjectUserID: payload.UserID,
		}
		if payload.Metadata != nil {
			rec.Metadata = datatypes.JSONMap{
				"browser":    payload.Metadata.Browser,
				"os":         payload.Metadata.OS,
				"screenSize": payload.Metadata.ScreenSize,
			}
		}

		svc.InvalidateSummary(ctx, payload.Event, app.ID)

		// Fire and forget: the durability task outlives the request.
		go func() {
			wctx, cancel := context.WithTimeout(context.Background(), cfg.IngestTimeout)
			defer cancel()
			if err := store.InsertEvent(wctx, rec); err != nil {
				log.Error().Err(err).
					Uint("app_id", app.ID).
					Str("event", payload.Event).
					Msg("failed to persist event")
			}
		}()

		recordEventAccepted(payload.Event)
		writeMessage(ctx, fasthttp.StatusAccepted, "Event accepted.")
	}
}
