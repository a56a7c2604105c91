package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CorrelAid/form_upload_processor/config"
	"github.com/CorrelAid/form_upload_processor/handlers"
	"github.com/CorrelAid/form_upload_processor/inits"
	"github.com/CorrelAid/form_upload_processor/middleware"
	"github.com/CorrelAid/form_upload_processor/operations"
	"github.com/CorrelAid/form_upload_processor/processing"
	"github.com/CorrelAid/form_upload_processor/routines"
	"github.com/CorrelAid/form_upload_processor/uploader"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := inits.Logger(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("Server stopped", "err", err)
	}
	logger.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	db, err := inits.DBInit()
	if err != nil {
		return err
	}
	store := operations.NewStore(db, logger.Named("store"))

	rules, err := processing.LoadRules(cfg.RulesFile)
	if err != nil {
		return err
	}
	processor := processing.NewProcessor(processing.Options{
		Rules:        rules,
		Store:        store,
		UploadFolder: cfg.UploadFolder,
		Retention:    cfg.Retention,
		Logger:       logger.Named("processing"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go routines.StartCleanupRoutine(ctx, store, cfg.CleanupInterval, logger.Named("cleanup"))

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           newRouter(cfg, processor, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("Listening", "addr", srv.Addr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("Initiating graceful shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, processor *processing.Processor, store *operations.Store, logger *zap.SugaredLogger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Set a lower memory limit for multipart forms (default is 32 MiB)
	router.MaxMultipartMemory = 8 << 20 // 8 MiB
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger.Named("http")),
		middleware.DomainWhitelistMiddleware(cfg.AllowedHosts),
		middleware.RateLimitMiddleware(cfg.RateLimit),
	)

	api := handlers.NewAPI(processor, store, cfg.MaxFileSize, logger.Named("upload"))
	api.Register(router)

	var pageUploader uploader.Uploader = api.Uploader()
	if cfg.BackendURL != "" {
		pageUploader = uploader.NewClient(cfg.BackendURL, nil)
	}
	handlers.NewPage(pageUploader, logger.Named("page")).Register(router)
	return router
}
