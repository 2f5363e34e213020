package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"sitepulse/internal/analytics"
	"sitepulse/internal/cache"
	"sitepulse/internal/config"
	"sitepulse/internal/db"
	"sitepulse/internal/http/handlers"
	appmw "sitepulse/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure bootstrap admin")
	}

	var cacheStore cache.Store
	if cfg.RedisAddr != "" {
		redisStore := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err := redisStore.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("redis unreachable at startup; summaries will be computed directly until it recovers")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache connected")
		}
		cacheStore = redisStore
	} else {
		log.Info().Msg("APP_REDIS_ADDR not set; using in-process summary cache")
		cacheStore = cache.NewMemory()
	}

	analytics.InitMetrics()
	handlers.InitMetrics()

	events := db.NewEventStore(sqlDB)
	apps := db.NewAppRegistry(sqlDB)
	engine := analytics.NewEngine(events, apps)
	svc := analytics.NewService(engine, events, cacheStore, cfg.CacheTTL, log)

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})
	r.GET("/metrics", handlers.Metrics())

	r.POST("/api/analytics/collect", appmw.APIKeyAuth(sqlDB)(handlers.Collect(events, svc, cfg, log)))

	session := appmw.SessionAuth(sqlDB)
	r.GET("/api/analytics/event-summary", session(handlers.EventSummary(svc, log)))
	r.GET("/api/analytics/user-stats", session(handlers.UserStats(svc, log)))

	r.POST("/api/auth/login", handlers.Login(sqlDB))
	r.POST("/api/auth/logout", handlers.Logout())
	r.GET("/api/auth/status", session(handlers.Status()))
	r.POST("/api/auth/register", session(handlers.RegisterApp(sqlDB)))
	r.GET("/api/auth/api-key", session(handlers.ListAPIKeys(sqlDB)))
	r.POST("/api/auth/revoke", session(handlers.RevokeKey(sqlDB)))
	r.POST("/api/auth/regenerate", session(handlers.RegenerateKey(sqlDB)))

	server := &fasthttp.Server{
		Handler: appmw.RequestLogger(log)(r.Handler),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("sitepulse listening")
		if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := cacheStore.Close(); err != nil {
		log.Error().Err(err).Msg("cache close error")
	}
}
