package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/duewatch/internal/httpserver/deps"
)

type componentStatus struct {
	OK                  bool   `json:"ok"`
	AssignmentsInMemory *int   `json:"assignments_in_memory,omitempty"`
	LastChange          string `json:"last_change,omitempty"`
	Mode                string `json:"mode,omitempty"`
	Impact              string `json:"impact,omitempty"`
	Error               string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":      checkStore(r.Context(), d),
			"index":      indexStatus(d),
			"watch_list": watchListStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Components: components,
		})
	}
}

func determineStatus(components map[string]componentStatus) string {
	// Without a store nothing is persisted
	if st, ok := components["store"]; ok && !st.OK {
		return "critical"
	}
	if idx, ok := components["index"]; ok && !idx.OK {
		return "degraded"
	}
	return "operational"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Impact: "scans-not-persisted", Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.StoreMode, Impact: "scans-not-persisted", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: d.StoreMode}
}

func indexStatus(d deps.Deps) componentStatus {
	if d.Index == nil {
		return componentStatus{OK: false, Error: "index not initialized"}
	}

	count := d.Index.Count()
	lastChange := "never"
	if d.LastChange != nil {
		if t := d.LastChange(); !t.IsZero() {
			lastChange = t.Format("2006-01-02 15:04:05")
		}
	}
	return componentStatus{OK: true, AssignmentsInMemory: &count, LastChange: lastChange}
}

func watchListStatus(d deps.Deps) componentStatus {
	if d.RescanTrigger == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "page-driven-scans-only"}
	}
	return componentStatus{OK: true, Mode: "scheduled"}
}
