package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"moogla-chat/internal/config"
	apihttp "moogla-chat/internal/http"
	"moogla-chat/internal/llm"
	"moogla-chat/internal/metrics"
	"moogla-chat/internal/repository"
	"moogla-chat/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	repo, closeRepo, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeRepo()

	catalog, err := service.LoadPluginCatalog(cfg.PluginFile)
	if err != nil {
		logger.Warn("plugin catalog not loaded", zap.String("path", cfg.PluginFile), zap.Error(err))
	}

	recorder := metrics.NewRecorder()
	prefsSvc := service.NewPreferencesService(repo, cfg.Model, catalog)
	store := service.NewConversationStore(repo, logger).WithFailureReporter(recorder)
	restored := store.Restore(ctx)

	dispatcher := llm.NewHTTPDispatcher(cfg.CompletionURL, nil, logger)
	ctrl := service.NewChatController(store, dispatcher, prefsSvc, logger, cfg.Stream).WithMetrics(recorder)

	chatHandler := apihttp.NewChatHandler(logger, ctrl)
	prefsHandler := apihttp.NewPreferencesHandler(logger, prefsSvc, catalog)
	router := apihttp.NewRouter(logger, chatHandler, prefsHandler, recorder, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreBackend),
		zap.String("completion_url", cfg.CompletionURL),
		zap.Bool("stream", cfg.Stream),
		zap.Int("restored_messages", len(restored)),
		zap.Int("plugins", catalog.Len()),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
