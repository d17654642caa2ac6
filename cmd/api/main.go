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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/civic-lens/internal/application"
	appanalysis "github.com/bryanwahyu/civic-lens/internal/application/analysis"
	"github.com/bryanwahyu/civic-lens/internal/config"
	domain "github.com/bryanwahyu/civic-lens/internal/domain/analysis"
	openaiclient "github.com/bryanwahyu/civic-lens/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/civic-lens/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/civic-lens/internal/infra/db/postgres"
	"github.com/bryanwahyu/civic-lens/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/civic-lens/internal/infra/storage"
	"github.com/bryanwahyu/civic-lens/internal/logger"
	"github.com/bryanwahyu/civic-lens/internal/metrics"
	"github.com/bryanwahyu/civic-lens/internal/middleware"
)

type schemaRepo interface {
	domain.Repository
	EnsureSchema(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("startup failed")
		logger.Close()
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Close()
	metrics.Init()

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	svc := &appanalysis.Service{
		Model:       cfg.Provider.Model,
		Temperature: cfg.Provider.Temperature,
		Clock:       application.SystemClock{},
	}

	// audit store (optional)
	var repo schemaRepo
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer db.Close()
		repo = mysqlp.NewAnalysisRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer db.Close()
		repo = pgp.NewAnalysisRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}
	if repo != nil {
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("schema init: %w", err)
		}
		svc.Repo = repo
		log.Info().Str("driver", cfg.Database.Driver).Msg("audit store enabled")
	}

	// transcript archive (optional)
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		svc.Transcripts = store
		checkers["storage"] = middleware.CheckFunc(store.Check)
		log.Info().Str("bucket", cfg.Minio.BucketName).Msg("transcript archive enabled")
	}

	client := openaiclient.NewClient(openaiclient.Options{
		APIKey:    cfg.Provider.APIKey,
		BaseURL:   cfg.Provider.BaseURL,
		Model:     cfg.Provider.Model,
		MaxTokens: cfg.Provider.MaxTokens,
		Timeout:   cfg.ProviderTimeout(),
	})
	if err := client.CheckConfig(); err != nil {
		// the service still starts; /analyze answers 500 until a key is set
		log.Warn().Msg("AI gateway API key is not configured")
	}
	svc.Client = client
	if svc.Model == "" {
		svc.Model = client.Model()
	}

	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("model", svc.Model).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-stop:
	}
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
