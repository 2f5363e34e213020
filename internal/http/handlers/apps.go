package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

type registerRequest struct {
	Name string `json:"name" validate:"required,max=128"`
	URL  string `json:"url" validate:"required,max=2048"`
}

type appResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	APIKey string `json:"apiKey"`
	Status string `json:"status"`
}

// RegisterApp serves POST /api/auth/register: registers a site for the
// session user and issues its API key.
func RegisterApp(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var payload registerRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			writeMessage(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validate.Struct(&payload); err != nil {
			writeMessage(ctx, fasthttp.StatusBadRequest, "App name and URL are required.")
			return
		}

		app, err := dbpkg.CreateApp(db, user.ID, payload.Name, payload.URL)
		if err != nil {
			writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error during app registration.")
			return
		}

		writeJSON(ctx, fasthttp.StatusCreated, map[string]any{
			"message": "App registered successfully.",
			"app": appResponse{
				ID:     app.ID,
				Name:   app.Name,
				URL:    app.URL,
				APIKey: app.APIKey,
				Status: app.Status,
			},
		})
	}
}

// ListAPIKeys serves GET /api/auth/api-key: all apps registered by the
// session user.
func ListAPIKeys(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		apps, err := dbpkg.AppsForUser(db, user.ID)
		if err != nil {
			writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error retrieving API keys.")
			return
		}
		if len(apps) == 0 {
			writeMessage(ctx, fasthttp.StatusNotFound, "No apps found for this user.")
			return
		}

		out := make([]appResponse, 0, len(apps))
		for _, a := range apps {
			out = append(out, appResponse{
				ID:     a.ID,
				Name:   a.Name,
				URL:    a.URL,
				APIKey: a.APIKey,
				Status: a.Status,
			})
		}
		writeJSON(ctx, fasthttp.StatusOK, out)
	}
}

type appIDRequest struct {
	AppID uint `json:"appId" validate:"required"`
}

// RevokeKey serves POST /api/auth/revoke: marks the app's API key revoked.
func RevokeKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var payload appIDRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil || payload.AppID == 0 {
			writeMessage(ctx, fasthttp.StatusBadRequest, "App ID is required.")
			return
		}

		app, err := dbpkg.FindOwnedApp(db, payload.AppID, user.ID)
		if err != nil {
			writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error revoking API key.")
			return
		}
		if app == nil {
			writeMessage(ctx, fasthttp.StatusNotFound, "App not found or you do not have permission.")
			return
		}
		if app.Status == dbpkg.AppStatusRevoked {
			writeMessage(ctx, fasthttp.StatusBadRequest, "API key is already revoked.")
			return
		}

		if err := dbpkg.RevokeApp(db, app); err != nil {
			writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error revoking API key.")
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"message": "API key has been successfully revoked.",
			"appId":   app.ID,
			"status":  app.Status,
		})
	}
}

// RegenerateKey serves POST /api/auth/regenerate: issues a fresh API key
// and re-activates the app.
func RegenerateKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var payload appIDRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil || payload.AppID == 0 {
			writeMessage(ctx, fasthttp.StatusBadRequest, "App ID is required.")
			return
		}

		app, err := dbpkg.FindOwnedApp(db, payload.AppID, user.ID)
		if err != nil {
			writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error regenerating API key.")
			return
		}
		if app == nil {
			writeMessage(ctx, fasthttp.StatusNotFound, "App not found or you do not have permission.")
			return
		}

		if err := dbpkg.RegenerateKey(db, app); err != nil {
			writeMessage(ctx, fasthttp.StatusInternalServerError, "Server error regenerating API key.")
			return
		}

		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"message":   "API key has been successfully regenerated.",
			"appId":     app.ID,
			"newApiKey": app.APIKey,
			"status":    app.Status,
		})
	}
}
