package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dbsite/internal/server"
	"dbsite/internal/storage"
	"dbsite/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.IsProd() {
				gin.SetMode(gin.ReleaseMode)
			}

			db, err := utils.InitDatabase(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

			store, err := storage.New(cfg.Media)
			if err != nil {
				return err
			}
			templates, static, err := a.assets(cfg.Server)
			if err != nil {
				return err
			}

			router, err := server.NewRouter(server.Deps{
				Config:    cfg,
				DB:        db,
				Logger:    logger,
				Templates: templates,
				Static:    static,
				Store:     store,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			return run(cmd.Context(), srv, cfg.Server.ShutdownTimeout, logger)
		},
	}
}

// run serves until the server fails or SIGINT/SIGTERM arrives, then drains
// outstanding requests for at most timeout.
func run(ctx context.Context, srv *http.Server, timeout time.Duration, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		srv.Close()
		return err
	}
	logger.Info("server stopped")
	return nil
}
