package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waveger/cache"
	"waveger/config"
	"waveger/core/applemusic"
	"waveger/core/auth"
	"waveger/core/billboard"
	"waveger/core/charts"
	"waveger/db"
	"waveger/logger"
	"waveger/repository"
	"waveger/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxMB,
		MaxAge:     cfg.LogMaxAge,
		MaxBackups: 5,
		Compress:   true,
	})

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseDB()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	// Redis and MinIO are optional: without Redis every chart request falls
	// through to Postgres, without MinIO profile pictures are unavailable.
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, chart hot cache disabled", logger.ErrorField(err))
	} else {
		defer cache.CloseRedis()
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("MinIO unavailable, profile pictures disabled", logger.ErrorField(err))
	}

	chartRepo := repository.NewPostgresChartRepository()
	userRepo := repository.NewPostgresUserRepository()
	favRepo := repository.NewPostgresFavouriteRepository()

	billboardClient := billboard.NewClient(cfg.RapidAPIHost, cfg.RapidAPIKey)
	chartService := charts.NewService(chartRepo, billboardClient, charts.NewRedisPayloadCache(cfg.ChartCacheTTL))

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenExpiry)
	appleTokens := applemusic.NewTokenMinter(cfg.AppleMusicTeamID, cfg.AppleMusicKeyID, cfg.AppleMusicKeyPath)
	limiters := NewLimiters()

	apiHandler := NewAPIHandler(chartService, userRepo, favRepo, tokens, appleTokens, limiters, cfg)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(requestLogMiddleware)

	// Chart endpoints
	router.HandleFunc("/api/top-charts", rateLimit(limiters.Charts, apiHandler.GetTopChartsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/chart", rateLimit(limiters.Charts, apiHandler.GetChartHandler)).Methods(http.MethodGet)

	// Apple Music developer token
	router.HandleFunc("/api/apple-music-token", rateLimit(limiters.Charts, apiHandler.AppleMusicTokenHandler)).Methods(http.MethodGet)

	// Auth endpoints
	router.HandleFunc("/api/auth/register", rateLimit(limiters.Auth, apiHandler.RegisterHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", rateLimit(limiters.Auth, apiHandler.LoginHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/profile", apiHandler.AuthMiddleware(apiHandler.ProfileHandler)).Methods(http.MethodGet)

	// Favourites endpoints
	router.HandleFunc("/api/favourites", rateLimit(limiters.Favourites, apiHandler.AuthMiddleware(apiHandler.GetFavouritesHandler))).Methods(http.MethodGet)
	router.HandleFunc("/api/favourites", rateLimit(limiters.Favourites, apiHandler.AuthMiddleware(apiHandler.ToggleFavouriteHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/favourites/check", rateLimit(limiters.Favourites, apiHandler.AuthMiddleware(apiHandler.CheckFavouriteHandler))).Methods(http.MethodGet)
	router.HandleFunc("/api/favourites/{id:[0-9]+}", rateLimit(limiters.Favourites, apiHandler.AuthMiddleware(apiHandler.RemoveFavouriteHandler))).Methods(http.MethodDelete)

	// Profile pictures
	router.HandleFunc("/api/users/profile-pic", apiHandler.AuthMiddleware(apiHandler.UploadProfilePicHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/users/profile-pic/{name}", apiHandler.GetProfilePicHandler).Methods(http.MethodGet)

	// Admin and probes
	router.HandleFunc("/api/admin/reset-rate-limiter", apiHandler.ResetRateLimiterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/test-rate-limit", rateLimit(limiters.Probe, apiHandler.TestRateLimitHandler)).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Server listening", logger.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", logger.ErrorField(err))
	}
	logger.Info("Server stopped.")
}
