package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"diarygraph/backend/internal/adapter"
	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/graph"
	"diarygraph/backend/internal/graphview"
	"diarygraph/backend/internal/server"
	"diarygraph/backend/pkg/config"
	"diarygraph/backend/pkg/logger"
)

// sweepEvery is how often idle sessions are looked for
const sweepEvery = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph view server...")

	tuning, err := config.LoadTuning(cfg.LayoutTuningFile)
	if err != nil {
		log.Fatal("Failed to load layout tuning", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, cleanup, err := buildSource(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to set up entry source", zap.Error(err))
	}
	defer cleanup()

	opts := graphview.OptionsFromTuning(tuning)
	manager := server.NewManager(source, opts, cfg.TickInterval, cfg.SessionTTL)
	defer manager.Shutdown()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(manager, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return manager.RunSweeper(gctx, sweepEvery)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited")
}

// buildSource assembles the entry source chain from config: the backing
// store, optional analysis of unprocessed entries, then the per-user cache.
func buildSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (diary.Source, func(), error) {
	var source diary.Source
	cleanup := func() {}

	switch cfg.EntrySource {
	case config.SourceFile:
		source = diary.NewFileSource(cfg.EntriesFile)
		log.Info("Serving entries from file", zap.String("path", cfg.EntriesFile))

	default:
		driver, err := neo4j.NewDriverWithContext(
			cfg.Neo4jURI,
			neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create neo4j driver: %w", err)
		}

		// Verify Neo4j connection
		if err := driver.VerifyConnectivity(ctx); err != nil {
			_ = driver.Close(context.Background())
			return nil, nil, fmt.Errorf("verify neo4j connectivity: %w", err)
		}

		repo := graph.NewRepository(driver)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Warn("Failed to ensure schema", zap.Error(err))
		}
		source = repo
		cleanup = func() {
			if err := repo.Close(); err != nil {
				log.Warn("Failed to close neo4j driver", zap.Error(err))
			}
		}
		log.Info("Serving entries from Neo4j", zap.String("uri", cfg.Neo4jURI))
	}

	if cfg.AnalyzeMissing {
		analyzer := adapter.NewAnalyzer(cfg.LLMURL, cfg.LLMAPIKey, cfg.ModelID)
		source = adapter.NewEnrichingSource(source, analyzer, adapter.DefaultConcurrency)
		log.Info("Analysing entries without a mood", zap.String("model", cfg.ModelID))
	}

	if cfg.EntryCacheTTL > 0 {
		source = diary.NewCachedSource(source, cfg.EntryCacheTTL)
	}
	return source, cleanup, nil
}
