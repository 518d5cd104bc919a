// Package scheduler runs the background work around scanning: scheduled
// and manual rescans of watched pages, snapshot-triggered rescans, the
// compactor and the store syncer.
package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/duewatch/internal/scanner"
)

// Scanner runs one scan.
type Scanner interface {
	Scan(ctx context.Context, src scanner.Source, opts scanner.Options) scanner.Result
}
