//	@title			Reelhost API
//	@version		1.0
//	@description	Video hosting backend: upload, fast-start processing and playback URLs.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/reelhost/service/internal/auth"
	"github.com/reelhost/service/internal/config"
	"github.com/reelhost/service/internal/db"
	"github.com/reelhost/service/internal/logging"
	"github.com/reelhost/service/internal/media"
	appMiddleware "github.com/reelhost/service/internal/middleware"
	"github.com/reelhost/service/internal/staging"
	"github.com/reelhost/service/internal/storage"
	"github.com/reelhost/service/internal/thumbnail"
	"github.com/reelhost/service/internal/user"
	"github.com/reelhost/service/internal/video"

	_ "github.com/reelhost/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	urlMode, err := storage.ParseURLMode(cfg.StorageURLMode)
	if err != nil {
		return err
	}
	videoURLs, err := storage.NewResolver(urlMode, store, cfg.SignedURLExpiry)
	if err != nil {
		return fmt.Errorf("url resolver: %w", err)
	}
	thumbMode, err := thumbnail.ParseMode(cfg.ThumbnailMode)
	if err != nil {
		return err
	}
	thumbURLs := videoURLs
	if thumbMode != thumbnail.ModeStorage {
		thumbURLs = storage.InlineResolver{}
	}
	presenter := video.NewPresenter(videoURLs, thumbURLs)

	stage, err := staging.NewManager(cfg.StagingDir, logging.WithComponent(logger, "staging"))
	if err != nil {
		return err
	}
	runner := media.NewExecRunner(cfg.MediaToolTimeout)

	// Wire dependencies: repository → service → handler
	videoRepo := video.NewRepository(pool)

	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc, videoRepo, logging.WithComponent(logger, "user"))

	authSvc := auth.NewService(userSvc, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc)

	thumbCache := thumbnail.NewCache()
	videoLogger := logging.WithComponent(logger, "video")
	videoSvc := video.NewService(videoRepo, store, presenter, thumbCache.Evict, videoLogger)
	uploader := video.NewUploader(video.UploaderConfig{
		Store:     videoRepo,
		Staging:   stage,
		Prober:    media.NewProber(runner, cfg.FFprobePath),
		Remuxer:   media.NewRemuxer(runner, cfg.FFmpegPath),
		Storage:   store,
		Presenter: presenter,
		Logger:    videoLogger,
	})
	videoHandler := video.NewHandler(videoSvc, uploader, cfg.JWTSecret, videoLogger)

	thumbLogger := logging.WithComponent(logger, "thumbnail")
	thumbSvc := thumbnail.NewService(thumbnail.Config{
		Mode:       thumbMode,
		Store:      videoRepo,
		Storage:    store,
		Cache:      thumbCache,
		Presenter:  presenter,
		PublicBase: cfg.PublicBaseURL,
		Logger:     thumbLogger,
	})
	thumbHandler := thumbnail.NewHandler(thumbSvc, cfg.JWTSecret, thumbLogger)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logging.WithComponent(logger, "http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if local, ok := store.(*storage.LocalStorage); ok {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(local.Root()))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Get("/me", userHandler.GetMe)
		})

		r.Route("/videos", func(r chi.Router) {
			// Uploads check the video id before the token, so they authenticate in the handler.
			r.Post("/{videoID}/video", videoHandler.UploadVideo)
			r.Post("/{videoID}/thumbnail", thumbHandler.Upload)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
				r.Post("/", videoHandler.Create)
				r.Get("/", videoHandler.List)
				r.Get("/{videoID}", videoHandler.Get)
				r.Delete("/{videoID}", videoHandler.Delete)
			})
		})

		r.Get("/thumbnails/{videoID}", thumbHandler.Get)
	})

	// No write timeout: a 1 GiB upload plus remux can legitimately take minutes.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"env", cfg.AppEnv,
			"storage", cfg.StorageProvider,
			"url_mode", urlMode,
			"thumbnail_mode", thumbMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newStorage builds the configured asset backend.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case config.ProviderS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:     cfg.StorageBucket,
			Region:     cfg.StorageRegion,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			PublicBase: cfg.StoragePublicBase,
		})
	case config.ProviderLocal:
		base := cfg.StoragePublicBase
		if base == "" {
			base = cfg.PublicBaseURL + "/assets"
		}
		return storage.NewLocalStorage(cfg.AssetsDir, base)
	default:
		return storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			Region:     cfg.StorageRegion,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
			PublicRead: cfg.StorageURLMode == string(storage.URLModePublic),
		}, logging.WithComponent(logger, "storage"))
	}
}
