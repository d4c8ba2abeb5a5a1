package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facturador/facturador/backend/go-services/handlers"
	"github.com/facturador/facturador/backend/go-services/internal/auth"
	"github.com/facturador/facturador/backend/go-services/internal/config"
	"github.com/facturador/facturador/backend/go-services/internal/sessions"
	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/facturador/facturador/backend/go-services/internal/users"
	"github.com/facturador/facturador/backend/go-services/pkg/logger"
	"github.com/facturador/facturador/backend/go-services/pkg/metrics"
	"github.com/facturador/facturador/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: env=%s store=%s mongo=%v redis=%v postgres=%v",
		cfg.Server.Environment, cfg.Session.Store, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Postgres.URL != "")

	codec, err := tokens.NewCodec(cfg.JWT.Secret)
	if err != nil {
		logger.Fatalf("token codec: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("dependencies: %v", err)
	}
	defer deps.Close()

	userRepo, err := deps.userRepository(ctx)
	if err != nil {
		logger.Fatalf("user store: %v", err)
	}
	userSvc := users.NewService(userRepo)
	if cfg.Demo.Email != "" && cfg.Demo.Password != "" {
		if _, err := userSvc.SeedDemo(ctx, users.RegisterInput{Email: cfg.Demo.Email, Password: cfg.Demo.Password, Name: cfg.Demo.Name}); err != nil {
			logger.Warnf("demo user seed failed: %v", err)
		} else {
			logger.Infof("demo user %s available", cfg.Demo.Email)
		}
	}

	tokenRepo, err := deps.tokenRepository(ctx, cfg)
	if err != nil {
		logger.Fatalf("refresh token store: %v", err)
	}
	tokenSvc := sessions.NewService(codec, tokenRepo, userSvc)

	cookies := auth.CookiePolicy{Secure: cfg.Server.IsProduction()}
	endpoints := auth.NewEndpoints(userSvc, tokenSvc, cookies)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RouteGate(tokenSvc, middleware.RouteConfig{
		Public:    cfg.Routes.Public,
		Protected: cfg.Routes.Protected,
		Landing:   cfg.Routes.Landing,
		Login:     cfg.Routes.Login,
	}, cookies))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint: 200 only when every configured store answers
	r.GET("/ready", func(c *gin.Context) {
		status, states := deps.ready(c.Request.Context())
		body := gin.H{"status": "ready", "deps": states, "uptime": time.Since(startTime).String()}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		c.JSON(status, body)
	})

	h := handlers.NewAuthHandler(endpoints)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && deps.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			h.LimitCredentials(middleware.RedisRateLimitMiddleware(deps.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			h.LimitCredentials(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	h.Register(r.Group("/api"))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1", middleware.RequireAccess(tokenSvc))
	api.GET("/me", handlers.Me(userSvc))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting session service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
