package controller

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const (
	defaultTopCoins = 20
	maxTopCoins     = 100
)

// HandleTopCoins returns the top N coins by market cap.
// Endpoint: GET /api/top-coins?limit=<n>
func (c *Controller) HandleTopCoins(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopCoins
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit value")
			return
		}
		if n > maxTopCoins {
			n = maxTopCoins
		}
		limit = n
	}

	rows, err := c.App.Store.TopCoins(r.Context(), c.App.Warehouse, limit)
	if err != nil {
		c.App.Logger.Error("Top coins query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
	})
}
