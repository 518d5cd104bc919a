package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
	"github.com/MrSnakeDoc/duewatch/internal/sources/pages"
)

// SnapshotWatcher rescans a page whenever its saved snapshot changes.
// Bursts of writes are collapsed by a per-page debouncer, and two
// unconditional scans run at start: one immediately, one after the
// initial delay.
type SnapshotWatcher struct {
	pages        []pages.Page
	scanner      Scanner
	logger       logger.Logger
	window       time.Duration
	initialDelay time.Duration
	opts         scanner.Options

	watcher    *fsnotify.Watcher
	debouncers map[string]*scanner.Debouncer
	mu         sync.Mutex
	delayed    *time.Timer
	stopCh     chan struct{}
	done       chan struct{}
}

// NewSnapshotWatcher creates a watcher for the pages that have a snapshot
// file.
func NewSnapshotWatcher(
	snapshots []pages.Page,
	sc Scanner,
	log logger.Logger,
	window time.Duration,
	initialDelay time.Duration,
	opts scanner.Options,
) *SnapshotWatcher {
	opts.Persist = true
	return &SnapshotWatcher{
		pages:        snapshots,
		scanner:      sc,
		logger:       log,
		window:       window,
		initialDelay: initialDelay,
		opts:         opts,
		debouncers:   make(map[string]*scanner.Debouncer, len(snapshots)),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start watches the snapshot directories. Editors often replace a file
// rather than write it in place, so the parent directory is watched and
// events are matched by path.
func (sw *SnapshotWatcher) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	sw.watcher = w

	dirs := make(map[string]bool)
	for _, p := range sw.pages {
		path := filepath.Clean(p.File)
		page := p
		sw.debouncers[path] = scanner.NewDebouncer(sw.window, func() {
			sw.scan(ctx, page, "change")
		})

		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	go sw.loop()

	sw.scanAll(ctx, "startup")
	sw.mu.Lock()
	sw.delayed = time.AfterFunc(sw.initialDelay, func() { sw.scanAll(ctx, "startup-delayed") })
	sw.mu.Unlock()

	sw.logger.Info("snapshot watcher started",
		logger.Int("pages", len(sw.pages)),
		logger.Int("directories", len(dirs)),
		logger.Duration("debounce", sw.window))
	return nil
}

// Stop cancels pending scans and closes the watcher.
func (sw *SnapshotWatcher) Stop() {
	close(sw.stopCh)

	sw.mu.Lock()
	if sw.delayed != nil {
		sw.delayed.Stop()
	}
	sw.mu.Unlock()

	for _, d := range sw.debouncers {
		d.Stop()
	}
	if sw.watcher != nil {
		_ = sw.watcher.Close()
		<-sw.done
	}
}

func (sw *SnapshotWatcher) loop() {
	defer close(sw.done)
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if d, ok := sw.debouncers[filepath.Clean(ev.Name)]; ok {
				d.Trigger()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("file watcher error", logger.Error(err))
		case <-sw.stopCh:
			return
		}
	}
}

func (sw *SnapshotWatcher) scanAll(ctx context.Context, reason string) {
	for _, p := range sw.pages {
		select {
		case <-sw.stopCh:
			return
		default:
		}
		sw.scan(ctx, p, reason)
	}
}

func (sw *SnapshotWatcher) scan(ctx context.Context, p pages.Page, reason string) {
	if ctx.Err() != nil {
		return
	}
	res := sw.scanner.Scan(ctx, scanner.FileSource{PageURL: p.URL, Path: p.File}, sw.opts)
	sw.logger.Debug("snapshot scanned",
		logger.String("page", p.Name),
		logger.String("reason", reason),
		logger.Int("assignments", len(res.Assignments)))
}
