package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/duewatch/internal/config"
	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/httpserver"
	"github.com/MrSnakeDoc/duewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/duewatch/internal/index"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
	"github.com/MrSnakeDoc/duewatch/internal/scheduler"
	"github.com/MrSnakeDoc/duewatch/internal/sources/pages"
	"github.com/MrSnakeDoc/duewatch/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	backend   *Backend
	syncer    *scheduler.StoreSyncer // nil in memory mode
	compactor *scheduler.Compactor
	rescanner *scheduler.PageRescanner   // nil without a watch list
	watcher   *scheduler.SnapshotWatcher // nil without snapshot pages
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Fail fast if the configured store is unavailable
	backend, err := OpenStore(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open store: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized", logger.String("mode", backend.Mode))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sc := NewScanner(cfg, backend.Store, loggerClient, reg)
	fetcher := scanner.NewFetcher(cfg.FetchTimeout, cfg.UserAgent)

	// The in-memory mirror is the store itself without Redis, and a
	// pub/sub-fed copy with it.
	var (
		memIndex   *index.MemoryIndex
		syncer     *scheduler.StoreSyncer
		lastChange func() time.Time
	)
	if idx, ok := backend.Store.(*index.MemoryIndex); ok {
		memIndex = idx
		lastChange = idx.GetLastWrite
	} else {
		memIndex = index.NewMemoryIndex()
		syncer = scheduler.NewStoreSyncer(backend.Store, memIndex, loggerClient)
		lastChange = syncer.LastChange
	}

	compactor := scheduler.NewCompactor(backend.Store, domain.NewMerger(cfg.MaxAssignments), loggerClient, cfg.CompactInterval)

	var (
		rescanner     *scheduler.PageRescanner
		watcher       *scheduler.SnapshotWatcher
		rescanTrigger chan struct{}
	)
	if cfg.PagesFile != "" {
		loader := pages.NewLoader(cfg.PagesFile)
		list, err := loader.Load()
		if err != nil {
			loggerClient.Errorf("Failed to load watch list: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("watch list loaded",
			logger.String("file", loader.Path()),
			logger.Int("pages", len(list.Pages)))

		rescanTrigger = make(chan struct{}, 1)
		rescanner = scheduler.NewPageRescanner(loader, sc, fetcher, loggerClient,
			cfg.RescanSchedule, ScanOptions(cfg), rescanTrigger)

		if snapshots := list.Snapshots(); len(snapshots) > 0 {
			watcher = scheduler.NewSnapshotWatcher(snapshots, sc, loggerClient,
				cfg.DebounceWindow, cfg.InitialRescanDelay, ScanOptions(cfg))
		}
	} else {
		loggerClient.Info("watch list not configured, scheduled rescans disabled")
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Store:          backend.Store,
		StoreMode:      backend.Mode,
		Index:          memIndex,
		LastChange:     lastChange,
		Scanner:        sc,
		Fetcher:        fetcher,
		ScanOptions:    ScanOptions(cfg),
		RescanTrigger:  rescanTrigger,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ScanRateBurst:  cfg.ScanRateBurst,
		ScanRatePerMin: cfg.ScanRatePerMin,
	}

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		server:    httpserver.New(cfg, loggerClient, d),
		backend:   backend,
		syncer:    syncer,
		compactor: compactor,
		rescanner: rescanner,
		watcher:   watcher,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting duewatch v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.syncer != nil {
		if err := a.syncer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start store syncer: %w", err)
		}
	}

	if err := a.compactor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start compactor: %w", err)
	}

	if a.rescanner != nil {
		if err := a.rescanner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start page rescanner: %w", err)
		}
	}

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start snapshot watcher: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.rescanner != nil {
		a.rescanner.Stop()
	}
	a.compactor.Stop()
	if a.syncer != nil {
		<-a.syncer.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
	} else if a.backend.Client != nil {
		a.logger.Info("✅ Redis closed cleanly")
	}

	a.logger.Info("✅ duewatch stopped cleanly")
	return nil
}
