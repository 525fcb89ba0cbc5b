package types

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
)

// App is the read API application state: a database handle over the
// warehouse and marts, the control-store configuration, and the HTTP server.
type App struct {
	Store  *db.Client
	Config *config.Store

	// Warehouse and mart schema names resolved once at startup.
	Warehouse  string
	MartSchema string

	Logger *zap.Logger
	Server *http.Server
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("Server shutdown", zap.Error(err))
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("Database close", zap.Error(err))
	}
}
