package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	retry "github.com/sethvargo/go-retry"

	"post-discharge-assistant/internal/agent"
	"post-discharge-assistant/internal/composer"
	"post-discharge-assistant/internal/config"
	"post-discharge-assistant/internal/consultation"
	"post-discharge-assistant/internal/logger"
	"post-discharge-assistant/internal/metrics"
	"post-discharge-assistant/internal/platform/cache"
	"post-discharge-assistant/internal/platform/telegram"
	"post-discharge-assistant/internal/record"
	"post-discharge-assistant/internal/reference"
	"post-discharge-assistant/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, closer, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Format: cfg.LogFormat})
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	log.Info().Msg("Starting post-discharge assistant")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Infrastructure
	repo := openRepository(ctx, cfg, log)
	metrics.StartSystemMetricsCollection(ctx, 15*time.Second)

	// 2. Receptionist stage
	records := record.NewStore(cfg.RecordDir)

	// 3. Clinical stage
	index, err := reference.LoadIndex(cfg.IndexPath)
	if err != nil {
		// Retrieval degrades to its error placeholder; the chat still answers.
		log.Error().Err(err).Str("path", cfg.IndexPath).Msg("Reference index unavailable")
	} else {
		log.Info().Int("chunks", index.Size()).Str("model", index.Model()).Msg("Reference index loaded")
		if index.Model() != "" && index.Model() != cfg.EmbeddingModel {
			log.Warn().Str("index_model", index.Model()).Str("embedding_model", cfg.EmbeddingModel).
				Msg("Index was built with a different embedding model")
		}
	}

	var embedder reference.Embedder = reference.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel)
	if cfg.RedisAddr != "" {
		vc := cache.NewEmbeddingCache(cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.EmbeddingTTL,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := vc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Embedding cache unavailable, continuing without it")
			vc.Close()
		} else {
			embedder = reference.WithCache(embedder, cfg.EmbeddingModel, vc)
			defer vc.Close()
			log.Info().Str("addr", cfg.RedisAddr).Msg("Embedding cache enabled")
		}
		pingCancel()
	}

	retriever := reference.NewRetriever(index, embedder, cfg.TopK, logger.Component(log, "retrieval"))
	llm := agent.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	web := agent.NewTavilyClient(cfg.TavilyAPIKey, cfg.WebMaxResults)
	answers := composer.New(retriever, web, llm, logger.Component(log, "composer"))

	// 4. Reports
	var tg report.TelegramClient
	if cfg.TelegramToken != "" {
		tg = telegram.NewClient(cfg.TelegramToken)
	}
	if tg == nil || cfg.CareTeamChatID == 0 {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN or CARE_TEAM_CHAT_ID is not set. Reports will not be delivered.")
	}
	var fontPaths []string
	if cfg.ReportFontPath != "" {
		fontPaths = []string{cfg.ReportFontPath}
	}
	reports := report.NewService(tg, cfg.CareTeamChatID, fontPaths, logger.Component(log, "report"))

	// 5. Services
	consultationSvc := consultation.NewService(repo, records, answers, reports, logger.Component(log, "consultation"))
	consultationHandler := consultation.NewHandler(consultationSvc, logger.Component(log, "http"))

	// 6. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultationHandler)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// openRepository connects to PostgreSQL and applies migrations. Without a
// reachable database sessions live in memory.
func openRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) consultation.Repository {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL is not set. Sessions are kept in memory.")
		return consultation.NewMemoryRepository()
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("Invalid DATABASE_URL. Sessions are kept in memory.")
		return consultation.NewMemoryRepository()
	}

	attempt := 0
	b := retry.NewFibonacci(1 * time.Second)
	err = retry.Do(ctx, retry.WithMaxRetries(6, b), func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			log.Info().Int("attempt", attempt).Err(err).Msg("Waiting for database")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Could not connect to database. Sessions are kept in memory.")
		db.Close()
		return consultation.NewMemoryRepository()
	}
	log.Info().Msg("Connected to database")

	m, err := migrate.New(cfg.Migrations, cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("Migration init failed")
	} else if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error().Err(err).Msg("Migration up failed")
	} else {
		log.Info().Msg("Migrations applied")
	}

	return consultation.NewRepository(db)
}
