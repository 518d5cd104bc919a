package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/duewatch/internal/index"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

// Scanner runs one scan of a page source.
type Scanner interface {
	Scan(ctx context.Context, src scanner.Source, opts scanner.Options) scanner.Result
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time   // for testing, defaults to time.Now
	AllowedHosts   []string           // Host headers allowed to access the server
	AllowedCIDRS   []string           // IPs allowed to access the API and infra endpoints
	TrustProxy     bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Store          store.Store        // persisted assignments and scan flag
	StoreMode      string             // "redis" or "memory"
	Index          *index.MemoryIndex // in-memory mirror of the collection
	LastChange     func() time.Time   // last change notification seen by the mirror
	Scanner        Scanner            // scan orchestrator
	Fetcher        *scanner.Fetcher   // builds sources for pages fetched by url
	ScanOptions    scanner.Options    // attempts and wait for API scans
	RescanTrigger  chan struct{}      // manual rescan of the watch list (nil if no watch list)
	Metrics        http.Handler       // prometheus exposition handler
	ScanRateBurst  int                // per-IP burst on the scan endpoint
	ScanRatePerMin int                // per-IP refill on the scan endpoint
}

// Now returns the request clock.
func (d Deps) Now() time.Time {
	if d.TimeNow == nil {
		return time.Now()
	}
	return d.TimeNow()
}
