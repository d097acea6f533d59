package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"reebalance/internal/config"
	"reebalance/internal/graphql"
	"reebalance/internal/logger"
	"reebalance/internal/metrics"
	"reebalance/internal/mocks"
	"reebalance/internal/server"
)

// newExecutor picks the canned mock backend or the live GraphQL client
func newExecutor(cfg *config.Config, m *metrics.Metrics) graphql.Executor {
	if cfg.MockupMode {
		return mocks.NewMockService(cfg.MocksDir)
	}
	return graphql.NewClient(cfg.GraphQLURL,
		graphql.WithTimeout(cfg.GraphQLTimeout),
		graphql.WithMetrics(m),
	)
}

// backendName describes where dashboard queries go, for the startup log
func backendName(exec graphql.Executor) string {
	if c, ok := exec.(*graphql.Client); ok {
		return c.Endpoint()
	}
	return "mockup"
}

// newHTTPServer builds the HTTP server for the dashboard
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Longer timeout for report generation
		IdleTimeout:  60 * time.Second,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat, cfg.Environment); err != nil {
		logger.Fatal("Failed to configure logger", err)
	}

	m := metrics.New()
	exec := newExecutor(cfg, m)

	logger.Info("Starting electric balance dashboard", map[string]interface{}{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"version":     config.GetVersion(),
		"backend":     backendName(exec),
	})

	srv, err := server.NewServer(ctx, cfg, exec, m)
	if err != nil {
		logger.Fatal("Failed to create server", err)
	}
	defer srv.Close()

	srv.StartBackground(ctx)
	httpServer := newHTTPServer(cfg, srv.SetupRoutes())

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", err)
	}

	logger.Info("Server stopped")
}
