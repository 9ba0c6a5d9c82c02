package escrow

import (
	"context"
	"log"
	"time"
)

// Store is the persistence surface of the coordinator. Transitions are
// compare-and-swap on status so re-applied events stay idempotent.
type Store interface {
	ActiveByBooking(ctx context.Context, bookingID string) (*Escrow, error)
	EnsureFunded(ctx context.Context, bookingID string, amount int64) (*Escrow, error)
	// TransitionFrom moves the booking's active escrow to `to` only when its
	// current status is in `from`; it reports whether a row changed.
	TransitionFrom(ctx context.Context, bookingID string, from []Status, to Status, refundedBy, reason string) (bool, error)
	// DueForRelease lists escrows whose service completed before the cutoff,
	// together with the booking's linked actors.
	DueForRelease(ctx context.Context, cutoff time.Time) ([]*DueEscrow, error)
}

// RebuildScheduler fans an escrow mutation out to the projection layer so
// both linked actors' documents get recomputed.
type RebuildScheduler interface {
	BookingChanged(ctx context.Context, clientID, supplierID string)
}

// Coordinator keeps escrow status consistent with the booking lifecycle
// without being a blocking dependency of it. All operations are best-effort:
// failures are logged, never propagated, because the booking status is correct
// on its own and financial reconciliation is a separate remediation process.
type Coordinator struct {
	store    Store
	rebuilds RebuildScheduler
	// hold window between service completion and automatic release
	holdWindow time.Duration
}

func NewCoordinator(store Store, rebuilds RebuildScheduler, holdWindow time.Duration) *Coordinator {
	if holdWindow <= 0 {
		holdWindow = 72 * time.Hour
	}
	return &Coordinator{store: store, rebuilds: rebuilds, holdWindow: holdWindow}
}

// OnPaymentRecorded ensures a funded escrow record exists once a booking has
// received money. Re-delivery of the same payment event is harmless.
func (c *Coordinator) OnPaymentRecorded(ctx context.Context, bookingID string, totalPaid int64) {
	if totalPaid <= 0 {
		return
	}
	if _, err := c.store.EnsureFunded(ctx, bookingID, totalPaid); err != nil {
		log.Printf("[escrow][ERROR] fund for booking %s failed: %v", bookingID, err)
	}
}

// OnBookingCompleted moves a funded escrow to service_completed, which starts
// the release-hold timer.
func (c *Coordinator) OnBookingCompleted(ctx context.Context, bookingID string) {
	changed, err := c.store.TransitionFrom(ctx, bookingID,
		[]Status{StatusFunded}, StatusServiceCompleted, "", "")
	if err != nil {
		log.Printf("[escrow][ERROR] service_completed for booking %s failed: %v", bookingID, err)
		return
	}
	if !changed {
		log.Printf("[escrow] no funded escrow to complete for booking %s", bookingID)
	}
}

// OnBookingCancelled refunds held funds when they are in a refundable state.
// The refund is tagged with the cancelling actor and a reason.
func (c *Coordinator) OnBookingCancelled(ctx context.Context, bookingID, actorTag, reason string) {
	if reason == "" {
		reason = "booking cancelled"
	}
	changed, err := c.store.TransitionFrom(ctx, bookingID,
		RefundableStatuses, StatusRefunded, actorTag, reason)
	if err != nil {
		log.Printf("[escrow][ERROR] refund for booking %s failed: %v", bookingID, err)
		return
	}
	if changed {
		log.Printf("[escrow] refunded booking %s by %s: %s", bookingID, actorTag, reason)
	}
}

// ReleaseDue releases escrows whose hold window has elapsed since service
// completion. Run periodically; each release is independent.
func (c *Coordinator) ReleaseDue(ctx context.Context) (released int) {
	cutoff := time.Now().UTC().Add(-c.holdWindow)
	due, err := c.store.DueForRelease(ctx, cutoff)
	if err != nil {
		log.Printf("[escrow][ERROR] release sweep query failed: %v", err)
		return 0
	}
	for _, d := range due {
		changed, err := c.store.TransitionFrom(ctx, d.BookingID,
			[]Status{StatusServiceCompleted}, StatusReleased, "", "hold window elapsed")
		if err != nil {
			log.Printf("[escrow][ERROR] release for booking %s failed: %v", d.BookingID, err)
			continue
		}
		if !changed {
			continue
		}
		released++
		// The release changes held funds in both actors' financial summaries.
		if c.rebuilds != nil {
			c.rebuilds.BookingChanged(ctx, d.ClientID, d.SupplierID)
		}
	}
	return released
}
