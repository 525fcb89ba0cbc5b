package controller

import (
	"net/http"

	"go.uber.org/zap"
)

const overviewDays = 30

// HandleOverview returns the latest 30 days of the market overview mart.
// Endpoint: GET /api/overview
func (c *Controller) HandleOverview(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.OverviewDaily(r.Context(), c.App.MartSchema, overviewDays)
	if err != nil {
		c.App.Logger.Error("Overview query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
	})
}
