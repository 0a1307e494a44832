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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/shopgrid/recommender-service/internal/artifact"
	"github.com/shopgrid/recommender-service/internal/config"
	"github.com/shopgrid/recommender-service/internal/explain"
	"github.com/shopgrid/recommender-service/internal/handler"
	"github.com/shopgrid/recommender-service/internal/model"
	"github.com/shopgrid/recommender-service/internal/recommend"
	"github.com/shopgrid/recommender-service/internal/router"
	"github.com/shopgrid/recommender-service/internal/simindex"
	"github.com/shopgrid/recommender-service/seeds"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse database config")
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("database not ready")
	}
	logger.Info().Msg("connected to PostgreSQL")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := migrateDown(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate down")
		}
		logger.Info().Msg("migrations dropped")
		return
	}

	if err := migrateUp(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate up")
	}

	// ------------ Setup Seed Data ---------------
	if err := checkSeed(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to check seed")
	}

	// ------------ Load Artifacts ---------------
	// Serving must not start until every artifact is in memory; after this
	// point nothing is mutated and requests share it all lock-free.
	loaded, err := artifact.Load(ctx, pool, cfg.PopularitySize, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load artifacts")
	}

	cfModel := model.New(loaded.UserFactors, loaded.ItemFactors)

	ids := make([]string, len(loaded.Embeddings))
	vecs := make([][]float64, len(loaded.Embeddings))
	for i, e := range loaded.Embeddings {
		ids[i] = e.ProductID
		vecs[i] = e.Vector
	}
	index := simindex.New(ids, vecs)
	logger.Info().Int("products", index.Len()).Msg("similarity index built")

	recommender := recommend.NewService(loaded.Store, cfModel, logger)
	contexts := explain.NewContextBuilder(loaded.Store)
	explainer := explain.NewClient(explain.Options{
		Endpoint:    cfg.ExplainerURL,
		Model:       cfg.ExplainerModel,
		Temperature: cfg.ExplainerTemperature,
		MaxTokens:   cfg.ExplainerMaxTokens,
		Timeout:     cfg.ExplainerTimeout,
	}, logger)

	h := handler.NewHandler(recommender, contexts, explainer, loaded.Store, index)

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.Setup(h, logger),
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logger.Info().Int("attempt", i+1).Msg("waiting for database")
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := os.ReadFile("migrations/create_tables.down.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := os.ReadFile("migrations/create_tables.up.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

func checkSeed(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM interactions").Scan(&count); err != nil {
		return fmt.Errorf("check interactions count: %w", err)
	}
	if count > 0 {
		logger.Info().Int("interactions", count).Msg("database already seeded, skipping")
		return nil
	}
	return seeds.Setup(ctx, pool, logger)
}
