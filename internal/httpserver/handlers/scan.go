package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/duewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
)

const (
	scanPreview = "preview"
	scanSave    = "save"
	scanRescan  = "rescan"
)

type scanRequest struct {
	Type string `json:"type" validate:"required,oneof=preview save rescan"`
	URL  string `json:"url" validate:"omitempty,url"`
	HTML string `json:"html"`
}

type rescanResponse struct {
	Triggered bool `json:"triggered"`
}

// Scan answers scan requests from the page side. preview never persists,
// save persists, and rescan without a url reruns the whole watch list.
func Scan(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if req.URL == "" {
			if req.Type != scanRescan {
				writeError(w, http.StatusBadRequest, "field url is required for "+req.Type)
				return
			}
			triggerRescan(w, r, d)
			return
		}

		opts := d.ScanOptions
		opts.Persist = req.Type != scanPreview

		var src scanner.Source
		if req.HTML != "" {
			// Posted HTML cannot change between attempts.
			src = scanner.HTMLSource{PageURL: req.URL, HTML: req.HTML}
			opts.Attempts = 1
		} else {
			src = d.Fetcher.Source(req.URL)
		}

		res := d.Scanner.Scan(r.Context(), src, opts)
		if res.Err != nil {
			d.Logger.Warn("scan request not persisted",
				logger.String("scan_id", res.ScanID),
				logger.String("type", req.Type),
				logger.Error(res.Err))
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func triggerRescan(w http.ResponseWriter, r *http.Request, d deps.Deps) {
	if d.RescanTrigger == nil {
		writeError(w, http.StatusConflict, "no watch list configured")
		return
	}

	select {
	case d.RescanTrigger <- struct{}{}:
		d.Logger.Info("manual rescan triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, rescanResponse{Triggered: true})
	default:
		d.Logger.Warn("rescan already in progress",
			logger.String("remote_ip", r.RemoteAddr))
		writeError(w, http.StatusTooManyRequests, "rescan already in progress, please wait")
	}
}
