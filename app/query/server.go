package query

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/app/query/controller"
	"github.com/coinforge/coindw/app/query/types"
	"github.com/coinforge/coindw/pkg/utils"
)

// NewServer wires the controller routes into the app's HTTP server.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router := ctler.NewRouter()

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3001")

	app.Server = &http.Server{Addr: addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
