package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/duewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
)

type scanEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type scanEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

func GetScanEnabled(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := d.Store.ScanEnabled(r.Context())
		if err != nil {
			d.Logger.Warn("failed to read scan flag", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, scanEnabledResponse{Enabled: enabled})
	}
}

func PutScanEnabled(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanEnabledRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := d.Store.SetScanEnabled(r.Context(), *req.Enabled); err != nil {
			d.Logger.Error("failed to write scan flag", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		d.Logger.Info("scan flag updated", logger.Bool("enabled", *req.Enabled))
		writeJSON(w, http.StatusOK, scanEnabledResponse{Enabled: *req.Enabled})
	}
}
