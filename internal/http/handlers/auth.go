package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login serves POST /api/auth/login and establishes the session cookie.
func Login(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload loginRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			writeMessage(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		var user dbpkg.User
		if err := db.Where("username = ?", payload.Username).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				writeMessage(ctx, fasthttp.StatusUnauthorized, "Invalid username or password.")
				return
			}
			writeMessage(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
			writeMessage(ctx, fasthttp.StatusUnauthorized, "Invalid username or password.")
			return
		}

		var c fasthttp.Cookie
		c.SetKey("session_user")
		c.SetValue(user.Username)
		c.SetPath("/")
		c.SetHTTPOnly(true)
		ctx.Response.Header.SetCookie(&c)

		writeMessage(ctx, fasthttp.StatusOK, "Logged in.")
	}
}

// Logout serves POST /api/auth/logout and clears the session cookie.
func Logout() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var c fasthttp.Cookie
		c.SetKey("session_user")
		c.SetValue("")
		c.SetPath("/")
		c.SetMaxAge(-1)
		ctx.Response.Header.SetCookie(&c)

		writeMessage(ctx, fasthttp.StatusOK, "Successfully logged out.")
	}
}

// Status serves GET /api/auth/status for the session user.
func Status() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{
			"message": "User is logged in.",
			"user": map[string]any{
				"id":       user.ID,
				"username": user.Username,
			},
		})
	}
}
