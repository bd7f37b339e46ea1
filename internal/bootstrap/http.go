package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quillchat/quill/config"
	"github.com/quillchat/quill/internal/adapters/gotrue"
	httpx "github.com/quillchat/quill/internal/http"
)

const shutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunHTTPServer builds the router and serves it until ctx is canceled, then
// shuts down gracefully. It blocks until the server has stopped.
func RunHTTPServer(ctx context.Context, cfg HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Auth:              cfg.Services.Auth,
		Queries:           cfg.Services.Queries,
		Clients:           cfg.Services.Clients,
		AccessTokenCookie: gotrue.AccessTokenCookie,
		Logger:            logger,
	})
	// RequestID wraps Logging so access logs carry the id.
	handler = httpx.Logging(logger)(handler)
	handler = httpx.RequestID()(handler)
	handler = httpx.Recover(logger)(handler)

	server := &http.Server{
		Addr:         cfg.Config.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
