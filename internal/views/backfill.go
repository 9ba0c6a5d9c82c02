package views

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// maxErrorSample caps how many per-actor failures a backfill report carries.
const maxErrorSample = 10

// BackfillOptions tunes one sweep.
type BackfillOptions struct {
	Kind        string // client | supplier
	BatchSize   int
	Parallelism int
	// SkipFresherThan, when non-zero, resumes an interrupted sweep by leaving
	// already-fresh documents alone.
	SkipFresherThan time.Duration
}

// BackfillReport is the aggregate outcome of one sweep.
type BackfillReport struct {
	Kind      string        `json:"kind"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Backfill sweeps all actors of a kind in fixed-size batches with bounded
// parallelism per batch. Individual actor failures are isolated; because each
// rebuild is idempotent, an interrupted sweep can simply be re-run.
func (e *Engine) Backfill(ctx context.Context, opts BackfillOptions) (*BackfillReport, error) {
	if opts.Kind != "client" && opts.Kind != "supplier" {
		return nil, fmt.Errorf("unknown actor kind %q", opts.Kind)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}

	start := time.Now()
	report := &BackfillReport{Kind: opts.Kind}
	var mu sync.Mutex

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := e.store.ListActorIDs(ctx, opts.Kind, afterID, opts.BatchSize)
		if err != nil {
			return report, fmt.Errorf("list actors: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		afterID = ids[len(ids)-1]

		sem := make(chan struct{}, opts.Parallelism)
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			sem <- struct{}{}
			go func(actorID string) {
				defer wg.Done()
				defer func() { <-sem }()

				if opts.SkipFresherThan > 0 && e.isFresh(ctx, opts.Kind, actorID, opts.SkipFresherThan) {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					return
				}

				err := e.rebuildOne(ctx, opts.Kind, actorID)
				mu.Lock()
				if err != nil {
					report.Failed++
					if len(report.Errors) < maxErrorSample {
						report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", actorID, err))
					}
				} else {
					report.Processed++
				}
				mu.Unlock()
			}(id)
		}
		wg.Wait()
	}

	report.Elapsed = time.Since(start)
	log.Printf("[views] backfill %s done: processed=%d skipped=%d failed=%d in %s",
		opts.Kind, report.Processed, report.Skipped, report.Failed, report.Elapsed)
	return report, nil
}

func (e *Engine) rebuildOne(ctx context.Context, kind, actorID string) error {
	var err error
	if kind == "client" {
		_, err = e.RebuildClient(ctx, actorID, ReasonBackfill)
	} else {
		_, err = e.RebuildSupplier(ctx, actorID, ReasonBackfill)
	}
	return err
}

func (e *Engine) isFresh(ctx context.Context, kind, actorID string, window time.Duration) bool {
	cutoff := e.now().UTC().Add(-window)
	var rebuiltAt time.Time
	switch kind {
	case "client":
		v, err := e.store.GetClientView(ctx, actorID)
		if err != nil {
			return false
		}
		rebuiltAt = v.Meta.RebuiltAt
	case "supplier":
		v, err := e.store.GetSupplierView(ctx, actorID)
		if err != nil {
			return false
		}
		rebuiltAt = v.Meta.RebuiltAt
	}
	return rebuiltAt.After(cutoff)
}
