// Package scanner runs extraction against a page with retries, drops
// deadlines that already passed, and merges the rest into the store.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/extract"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

const (
	// DefaultAttempts and DefaultWait suit pages that render their
	// assignment lists a few seconds after load.
	DefaultAttempts = 12
	DefaultWait     = 350 * time.Millisecond
)

// Options control one scan.
type Options struct {
	Attempts int
	Wait     time.Duration
	Persist  bool
}

// Result is the outcome of one scan. Assignments is the filtered batch
// whether or not it was persisted.
type Result struct {
	ScanID      string             `json:"scanId"`
	Supported   bool               `json:"supported"`
	Assignments []domain.Candidate `json:"assignments"`
	Attempts    int                `json:"attempts"`
	Persisted   bool               `json:"persisted"`
	Err         error              `json:"-"`
}

// Scanner is the scan orchestrator.
type Scanner struct {
	extractor *extract.Extractor
	merger    *domain.Merger
	store     store.Store
	log       logger.Logger
	metrics   *Metrics
	now       func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock sets the clock used for the overdue filter and merge stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithMetrics records scans on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// New creates a scanner. A nil store disables persistence.
func New(ex *extract.Extractor, merger *domain.Merger, st store.Store, log logger.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		extractor: ex,
		merger:    merger,
		store:     st,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = extract.New(nil, s.now)
	}
	if s.merger == nil {
		s.merger = domain.NewMerger(0)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

var errNothingFound = errors.New("no candidates")

// Scan extracts candidates from src and, when asked and allowed, merges them
// into the store. It never fails: every problem degrades to fewer results,
// with a persistence problem reported in Result.Err.
func (s *Scanner) Scan(ctx context.Context, src Source, opts Options) Result {
	res := Result{
		ScanID:      uuid.NewString(),
		Assignments: []domain.Candidate{},
	}
	pageURL := src.URL()
	log := s.log.With(logger.String("scan_id", res.ScanID), logger.String("url", pageURL))

	if !domain.IsLikelyRelevantLocation(pageURL) {
		s.metrics.observeScan(outcomeUnsupported, 0)
		log.Debug("page not supported")
		return res
	}
	res.Supported = true

	found := s.extractWithRetry(ctx, src, opts, &res, log)
	kept := s.upcoming(found)
	res.Assignments = kept

	outcome := outcomeFound
	if len(found) == 0 {
		outcome = outcomeEmpty
	}
	s.metrics.observeScan(outcome, res.Attempts)
	s.metrics.observeCandidates(len(found), len(kept))

	if opts.Persist {
		res.Persisted, res.Err = s.persist(ctx, kept)
	}

	fields := []logger.Field{
		logger.String("strategy", s.extractor.Strategy(pageURL)),
		logger.Int("attempts_used", res.Attempts),
		logger.Int("candidates", len(found)),
		logger.Int("kept", len(kept)),
		logger.Bool("persisted", res.Persisted),
	}
	if res.Err != nil {
		log.Warn("scan finished, persistence failed", append(fields, logger.Error(res.Err))...)
	} else {
		log.Info("scan finished", fields...)
	}
	return res
}

// extractWithRetry runs the extractor until it finds something or the
// attempts run out, waiting between empty attempts. A source that fails to
// load counts as an empty attempt.
func (s *Scanner) extractWithRetry(ctx context.Context, src Source, opts Options, res *Result, log logger.Logger) []domain.Candidate {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var found []domain.Candidate
	attempt := func() error {
		res.Attempts++
		doc, err := src.Load(ctx)
		if err != nil {
			log.Debug("page load failed",
				logger.Int("attempt", res.Attempts),
				logger.Error(err))
			return err
		}
		found = s.extractor.Extract(doc, src.URL())
		if len(found) == 0 {
			return errNothingFound
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.Wait), uint64(attempts-1)),
		ctx,
	)
	_ = backoff.Retry(attempt, policy)
	return found
}

// upcoming keeps candidates whose due instant is not in the past.
func (s *Scanner) upcoming(items []domain.Candidate) []domain.Candidate {
	now := s.now()
	kept := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		due, ok := item.DueAt()
		if !ok || due.Before(now) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// persist merges batch into the stored collection unless scanning is
// switched off. An empty batch writes nothing.
func (s *Scanner) persist(ctx context.Context, batch []domain.Candidate) (bool, error) {
	if s.store == nil || len(batch) == 0 {
		return false, nil
	}

	enabled, err := s.store.ScanEnabled(ctx)
	if err != nil {
		err = fmt.Errorf("failed to read scan flag: %w", err)
		s.metrics.observePersist(0, err)
		return false, err
	}
	if !enabled {
		return false, nil
	}

	var stored int
	err = s.store.Update(ctx, func(current []domain.Assignment) ([]domain.Assignment, error) {
		merged := s.merger.Merge(current, batch, s.now())
		stored = len(merged)
		return merged, nil
	})
	if err != nil {
		err = fmt.Errorf("failed to persist scan: %w", err)
	}
	s.metrics.observePersist(stored, err)
	return err == nil, err
}
