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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/car-build-backend/internal/archive"
	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/config"
	"github.com/DoyleJ11/car-build-backend/internal/httpapi"
	"github.com/DoyleJ11/car-build-backend/internal/hub"
	"github.com/DoyleJ11/car-build-backend/internal/imagegen"
	"github.com/DoyleJ11/car-build-backend/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := config.NewCommand(cfg, run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return err
		}
	}
	log.Info("catalog loaded",
		zap.String("variant", string(cat.Variant)),
		zap.Int("categories", cat.Len()))

	sink, err := archive.Open(ctx, cfg.ArchiveURL, log.Named("archive"))
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	h := hub.NewHub(context.Background(), hub.Config{
		Catalog:        cat,
		Logger:         log,
		OnFinish:       archive.Recorder(sink, cfg.ArchiveTimeout, log.Named("archive")),
		SessionTimeout: cfg.SessionTimeout,
	})
	registry := hub.NewRegistry()

	images := imagegen.New(cfg.ImageEndpoint, cfg.ImageAPIKey, cfg.ImageTimeout)
	if !images.Enabled() {
		log.Info("image generation disabled")
	}

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:      h,
		Registry: registry,
		WS: ws.NewHandler(h, registry, images, log, ws.Options{
			ReadTimeout:    cfg.ReadTimeout,
			ImageTimeout:   cfg.ImageTimeout,
			OriginPatterns: cfg.AllowedOrigins,
		}),
		Logger:    log,
		PublicURL: cfg.PublicURL,
		SocketURL: cfg.PublicSocketURL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("version", config.ReleaseVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		// rooms go first so clients hear room-closed before the sockets drop
		h.Shutdown()
		<-h.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
