package triggers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/festivo-app/festivo/internal/escrow"
	"github.com/festivo-app/festivo/internal/views"
)

// Expirer moves overdue pending bookings to expired.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Worker consumes trigger tasks and drives the rebuild engine, the escrow
// release sweep and the pending-booking expiry sweep.
type Worker struct {
	engine    *views.Engine
	escrow    *escrow.Coordinator
	expirer   Expirer
	server    *asynq.Server
	scheduler *asynq.Scheduler

	staleThreshold time.Duration
}

func NewWorker(redisAddr string, engine *views.Engine, coord *escrow.Coordinator, expirer Expirer, staleThreshold time.Duration) *Worker {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &Worker{
		engine:  engine,
		escrow:  coord,
		expirer: expirer,
		server: asynq.NewServer(opts, asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"rebuilds": 10,
				"sweeps":   2,
			},
		}),
		scheduler:      asynq.NewScheduler(opts, nil),
		staleThreshold: staleThreshold,
	}
}

// Run starts the task server and the periodic sweeps. Blocks until Shutdown.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRebuildView, w.handleRebuild)
	mux.HandleFunc(TaskEscrowReleaseDue, w.handleEscrowRelease)
	mux.HandleFunc(TaskFreshnessAudit, w.handleFreshnessAudit)
	mux.HandleFunc(TaskExpirePending, w.handleExpirePending)

	if _, err := w.scheduler.Register("@every 15m",
		asynq.NewTask(TaskEscrowReleaseDue, nil, asynq.Queue("sweeps"))); err != nil {
		return fmt.Errorf("register escrow sweep: %w", err)
	}
	if _, err := w.scheduler.Register("@every 30m",
		asynq.NewTask(TaskFreshnessAudit, nil, asynq.Queue("sweeps"))); err != nil {
		return fmt.Errorf("register freshness audit: %w", err)
	}
	if _, err := w.scheduler.Register("@every 1h",
		asynq.NewTask(TaskExpirePending, nil, asynq.Queue("sweeps"))); err != nil {
		return fmt.Errorf("register expiry sweep: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	return w.server.Run(mux)
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func (w *Worker) handleRebuild(ctx context.Context, t *asynq.Task) error {
	var p RebuildPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("bad rebuild payload: %v: %w", err, asynq.SkipRetry)
	}

	var err error
	switch p.Kind {
	case "client":
		_, err = w.engine.RebuildClient(ctx, p.ActorID, p.Reason)
	case "supplier":
		_, err = w.engine.RebuildSupplier(ctx, p.ActorID, p.Reason)
	default:
		return fmt.Errorf("unknown actor kind %q: %w", p.Kind, asynq.SkipRetry)
	}
	if err != nil {
		log.Printf("[triggers][ERROR] rebuild %s/%s failed: %v", p.Kind, p.ActorID, err)
		return err
	}
	return nil
}

func (w *Worker) handleEscrowRelease(ctx context.Context, _ *asynq.Task) error {
	released := w.escrow.ReleaseDue(ctx)
	if released > 0 {
		log.Printf("[triggers] escrow release sweep: %d released", released)
	}
	return nil
}

func (w *Worker) handleFreshnessAudit(ctx context.Context, _ *asynq.Task) error {
	stale, err := w.engine.FreshnessAudit(ctx, w.staleThreshold, 500)
	if err != nil {
		return err
	}
	for _, sv := range stale {
		log.Printf("[triggers] stale view %s/%s (rebuilt %s)", sv.Kind, sv.ActorID, sv.RebuiltAt.Format(time.RFC3339))
	}
	return nil
}

func (w *Worker) handleExpirePending(ctx context.Context, _ *asynq.Task) error {
	expired, err := w.expirer.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("[triggers] expiry sweep: %d bookings expired", expired)
	}
	return nil
}
