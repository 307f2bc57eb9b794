package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bustracker-app/bustracker/handlers"
	"github.com/bustracker-app/bustracker/internal/config"
	"github.com/bustracker-app/bustracker/internal/database"
	"github.com/bustracker-app/bustracker/internal/oidc"
	"github.com/bustracker-app/bustracker/internal/sessions"
	"github.com/bustracker-app/bustracker/internal/users"
	"github.com/bustracker-app/bustracker/pkg/logger"
	"github.com/bustracker-app/bustracker/pkg/metrics"
	"github.com/bustracker-app/bustracker/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logFormat := "json"
	if os.Getenv("SERVER_ENVIRONMENT") != "production" {
		logFormat = "console"
	}
	if err := logger.Init(os.Getenv("LOG_LEVEL"), logFormat); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Postgres: schema is owned by AutoMigrate.
	db, err := database.Connect(cfg.DB.DSN())
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}
	logger.Info("connected to postgres", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))

	// Redis backs login sessions and the optional distributed rate limiter.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))

	sessionsSvc := sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))

	// Google OIDC discovery needs the network; a failure here is fatal since
	// sign-in is the only way into the app.
	oidcClient, err := oidc.NewClient(ctx, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.RedirectURI())
	if err != nil {
		logger.Fatal("failed to initialize OIDC client", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RedisRateLimitMiddleware(redisClient, 20, 40, time.Second))

	r.SetFuncMap(handlers.TemplateFuncs())
	r.LoadHTMLGlob("templates/*.html")
	r.Static("/static", "./static")

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// Readiness checks every hard dependency live; sign-in cannot work
	// without all three.
	r.GET("/ready", func(c *gin.Context) {
		rctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		deps := map[string]bool{
			"db":    database.Ping(rctx, db) == nil,
			"redis": redisClient.Ping(rctx).Err() == nil,
			"oidc":  oidcClient != nil,
		}
		ready := deps["db"] && deps["redis"] && deps["oidc"]

		status := http.StatusOK
		label := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			label = "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	usersRepo := users.NewRepository(db)
	authHandler := handlers.NewAuthHandler(cfg, oidcClient, handlers.TransactionalSignIn(db), sessionsSvc)
	authHandler.Register(r)

	pagesHandler := handlers.NewPagesHandler(cfg, usersRepo, sessionsSvc)
	pagesHandler.Register(r, middleware.RequireSession(cfg.Session.Secret, sessionsSvc))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Info("starting bus tracker", zap.String("addr", addr), zap.String("env", cfg.Server.Environment))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}
