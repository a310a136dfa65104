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

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/config"
	"github.com/xxxsen/artgan/internal/filestore"
	"github.com/xxxsen/artgan/internal/generator"
	"github.com/xxxsen/artgan/internal/handler"
	"github.com/xxxsen/artgan/internal/job"
	"github.com/xxxsen/artgan/internal/middleware"
	"github.com/xxxsen/artgan/internal/network"
	"github.com/xxxsen/artgan/internal/page"
	"github.com/xxxsen/artgan/internal/schedule"
	"github.com/xxxsen/artgan/internal/service"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "artgan",
		Short: "conditional GAN art generator",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (optional, env overrides apply)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run artgan web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	rootCmd.AddCommand(runCmd, newGenerateCmd(&configPath), newLabelsCmd(), newCheckpointCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

// buildGenerator loads the network eagerly; a missing or incompatible
// checkpoint fails here, before anything listens.
func buildGenerator(cfg *config.Config) (*generator.Service, error) {
	net, err := network.New(cfg.Network.Backend, cfg.NetworkArgs())
	if err != nil {
		return nil, fmt.Errorf("init network %s: %w", cfg.Network.Backend, err)
	}
	gen, err := generator.New(net)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	info := net.Info()
	logutil.GetLogger(context.Background()).Info("network loaded",
		zap.String("backend", net.Name()),
		zap.String("checkpoint", cfg.ModelPath),
		zap.Int("z_dim", info.ZDim),
		zap.Int("c_dim", info.CDim),
		zap.Int("resolution", info.Resolution),
	)
	return gen, nil
}

func initSentry(cfg *config.Config) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		AttachStacktrace: true,
		Debug:            !cfg.IsProduction(),
	})
	if err != nil {
		logutil.GetLogger(context.Background()).Error("init sentry failed", zap.Error(err))
		return false
	}
	return true
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("network", cfg.Network.Backend),
		zap.String("file_store", cfg.FileStore.Type),
	)
	if cfg.DefaultSecretOutsideDev() {
		logutil.GetLogger(context.Background()).Warn("SECRET_KEY is the development default")
	}
	if initSentry(cfg) {
		defer sentry.Flush(sentryFlushTimeout)
	}

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	artService := service.NewArtService(gen, store)

	deps := handler.RouterDeps{
		Pages:    handler.NewPageHandler(artService, page.NewTemplator()),
		Generate: handler.NewGenerateHandler(artService),
		Files:    handler.NewFileHandler(store),
		Health:   handler.NewHealthHandler(gen.Network()),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.Recover(),
			middleware.Sentry(),
			middleware.RequestID(),
			middleware.NotFound(),
			middleware.CORS(cfg.CORSOrigins),
			middleware.BodyLimit(cfg.MaxBodyBytes),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Retention.MaxAgeHours > 0 {
		scheduler := schedule.NewCronScheduler()
		cleanup := job.NewOutputCleanupJob(artService, time.Duration(cfg.Retention.MaxAgeHours)*time.Hour)
		if err := scheduler.AddJob(cleanup, cfg.Retention.Spec); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	return serve(ctx, engine.Run)
}

// serve blocks until ctx ends or run fails. A server that fails to start
// surfaces as an error so the process exits non-zero.
func serve(ctx context.Context, run func() error) error {
	errCh := make(chan error, 1)
	go func() {
		if err := run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logutil.GetLogger(context.Background()).Info("server stopping...")
		return nil
	case err := <-errCh:
		logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	}
}
