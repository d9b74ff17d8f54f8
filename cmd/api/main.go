package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apicompare "fin_dashboard/pkg/api/compare"
	apiconfig "fin_dashboard/pkg/api/config"
	"fin_dashboard/pkg/core/agent"
	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/config"
	"fin_dashboard/pkg/core/ingest"
	"fin_dashboard/pkg/core/logging"
	"fin_dashboard/pkg/core/narrative"
	"fin_dashboard/pkg/core/store"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/phuslu/log"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to app.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Log.Level)
	logger := logging.Component("server")

	catalog := compare.DefaultCatalog()
	if cfg.Compare.CatalogPath != "" {
		catalog, err = compare.LoadCatalog(cfg.Compare.CatalogPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Compare.CatalogPath).Msg("failed to load catalog")
		}
	}
	engine := compare.NewEngine(cfg.Compare.TieEpsilon)

	ctx := context.Background()
	var comparisons store.ComparisonStore = store.NewMemoryComparisonRepo()
	snapshots := store.NewSnapshotCache(nil, cfg.Database.CacheDir)
	if cfg.Database.URL != "" {
		if err := store.InitDB(ctx, cfg.Database.URL); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx, store.GetPool()); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		comparisons = store.NewComparisonRepo(store.GetPool())
		snapshots = store.NewSnapshotCache(store.GetPool(), "")
	} else {
		logger.Warn().Str("cache_dir", cfg.Database.CacheDir).Msg("no database configured, comparisons are kept in memory")
	}

	agentMgr := agent.NewManager(cfg.Agents)
	summarizer := narrative.NewSummarizer(agentMgr, cfg.Compare.Currency)
	if cfg.PromptFile != "" {
		tmpl, err := narrative.LoadTemplate(cfg.PromptFile)
		if err != nil {
			logger.Warn().Err(err).Msg("falling back to built-in narrative prompt")
		} else {
			summarizer.Template = tmpl
		}
	}

	cmpHandler := apicompare.NewHandler(catalog, engine, cfg.Compare.Currency, comparisons, snapshots)
	cmpHandler.Fetcher = ingest.NewEDGARClient()
	cmpHandler.Narrator = summarizer

	router := mux.NewRouter()
	cmpHandler.Register(router)
	apiconfig.NewHandler(agentMgr).Register(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.LoggingHandler(os.Stdout, cors(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Int("metrics", catalog.Len()).Str("provider", agentMgr.GetActiveProvider()).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
