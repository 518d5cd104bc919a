package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
	"github.com/MrSnakeDoc/duewatch/internal/sources/pages"
)

// PageRescanner scans every watched page with persistence on a cron
// schedule and on manual triggers.
type PageRescanner struct {
	loader        *pages.Loader
	scanner       Scanner
	fetcher       *scanner.Fetcher
	logger        logger.Logger
	schedule      string
	opts          scanner.Options
	cron          *cron.Cron
	running       sync.Mutex
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewPageRescanner creates a new page rescanner
func NewPageRescanner(
	loader *pages.Loader,
	sc Scanner,
	fetcher *scanner.Fetcher,
	log logger.Logger,
	schedule string,
	opts scanner.Options,
	manualTrigger chan struct{},
) *PageRescanner {
	opts.Persist = true
	return &PageRescanner{
		loader:        loader,
		scanner:       sc,
		fetcher:       fetcher,
		logger:        log,
		schedule:      schedule,
		opts:          opts,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start validates the watch list, registers the schedule and begins
// listening for manual triggers.
func (pr *PageRescanner) Start(ctx context.Context) error {
	if _, err := pr.loader.Load(); err != nil {
		return fmt.Errorf("initial watch list load failed: %w", err)
	}

	pr.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{pr.logger})))
	if _, err := pr.cron.AddFunc(pr.schedule, func() { pr.rescanLogged(ctx, "schedule") }); err != nil {
		return fmt.Errorf("invalid rescan schedule %q: %w", pr.schedule, err)
	}
	pr.cron.Start()

	go func() {
		for {
			select {
			case <-pr.manualTrigger:
				pr.logger.Info("manual rescan triggered")
				pr.rescanLogged(ctx, "manual")
			case <-pr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	pr.logger.Info("page rescanner started",
		logger.String("schedule", pr.schedule),
		logger.String("pages_file", pr.loader.Path()))
	return nil
}

// Stop stops the schedule and waits for a running rescan to finish.
func (pr *PageRescanner) Stop() {
	close(pr.stopCh)
	if pr.cron != nil {
		<-pr.cron.Stop().Done()
	}
}

func (pr *PageRescanner) rescanLogged(ctx context.Context, reason string) {
	if _, err := pr.RescanAll(ctx); err != nil {
		pr.logger.Error("rescan failed",
			logger.String("reason", reason),
			logger.Error(err))
	}
}

// RescanAll reloads the watch list and scans every page in order. Only one
// rescan runs at a time.
func (pr *PageRescanner) RescanAll(ctx context.Context) ([]scanner.Result, error) {
	pr.running.Lock()
	defer pr.running.Unlock()

	list, err := pr.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load watch list: %w", err)
	}

	results := make([]scanner.Result, 0, len(list.Pages))
	found, failed := 0, 0
	for _, p := range list.Pages {
		if ctx.Err() != nil {
			break
		}
		res := pr.scanner.Scan(ctx, p.Source(pr.fetcher), pr.opts)
		if res.Err != nil {
			failed++
		}
		found += len(res.Assignments)
		results = append(results, res)
	}

	pr.logger.Info("rescan completed",
		logger.Int("pages", len(results)),
		logger.Int("assignments", found),
		logger.Int("persist_failures", failed))
	return results, nil
}

// cronLogger adapts the service logger to cron's logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, logger.Error(err), logger.String("details", fmt.Sprint(keysAndValues...)))
}
