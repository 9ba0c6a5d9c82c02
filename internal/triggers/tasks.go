package triggers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/festivo-app/festivo/internal/views"
)

// Task type constants
const (
	TaskRebuildView      = "views:rebuild"
	TaskEscrowReleaseDue = "escrow:release_due"
	TaskFreshnessAudit   = "views:freshness_audit"
	TaskExpirePending    = "bookings:expire_pending"
)

// RebuildPayload identifies one actor's view to recompute.
type RebuildPayload struct {
	ActorID string       `json:"actor_id"`
	Kind    string       `json:"kind"` // client | supplier
	Reason  views.Reason `json:"reason"`
}

// Scheduler enqueues exactly one rebuild task per relevant source-entity
// change per linked actor. Tasks for the two sides of a booking run
// independently and in parallel on the worker.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

// BookingChanged schedules a rebuild for both actors a booking links.
func (s *Scheduler) BookingChanged(ctx context.Context, clientID, supplierID string) {
	s.ActorChanged(ctx, "client", clientID)
	s.ActorChanged(ctx, "supplier", supplierID)
}

// ActorChanged schedules one rebuild for a single actor. Enqueue failures are
// logged, not propagated; the backfill and freshness audit cover any gap.
func (s *Scheduler) ActorChanged(ctx context.Context, kind, actorID string) {
	if actorID == "" {
		return
	}
	payload, _ := json.Marshal(RebuildPayload{ActorID: actorID, Kind: kind, Reason: views.ReasonTrigger})
	task := asynq.NewTask(TaskRebuildView, payload)
	// One pending rebuild per actor at a time; a second trigger while one is
	// queued collapses into it, which is safe because every rebuild
	// recomputes from current source truth.
	_, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue("rebuilds"),
		asynq.TaskID("rebuild:"+kind+":"+actorID),
		asynq.Retention(time.Minute),
	)
	if err != nil && !duplicateTrigger(err) {
		log.Printf("[triggers][ERROR] enqueue rebuild %s/%s failed: %v", kind, actorID, err)
	}
}

// duplicateTrigger reports whether an enqueue collapsed into a rebuild
// already queued for the same actor. Asynq wraps the sentinel.
func duplicateTrigger(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict)
}
