package controller

import (
	"net/http"

	"go.uber.org/zap"
)

const (
	analystSymbolLimit = 60
	analystAllLimit    = 200
)

// HandleAnalyst returns the latest analyst snapshots: 60 for a given symbol,
// or 200 across all symbols when no symbol is given.
// Endpoint: GET /api/analyst?symbol=<sym>
func (c *Controller) HandleAnalyst(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limit := analystAllLimit
	if symbol != "" {
		limit = analystSymbolLimit
	}

	rows, err := c.App.Store.AnalystSnapshots(r.Context(), c.App.MartSchema, symbol, limit)
	if err != nil {
		c.App.Logger.Error("Analyst query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
	})
}
