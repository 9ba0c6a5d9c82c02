package escrow

import (
	"context"
	"testing"
	"time"
)

// memStore is an in-memory stand-in with the same CAS semantics as the pgx
// implementation: one active escrow per booking, transitions gated on the
// current status.
type memStore struct {
	escrows map[string]*Escrow // bookingID -> active escrow
}

func newMemStore() *memStore {
	return &memStore{escrows: map[string]*Escrow{}}
}

func (m *memStore) ActiveByBooking(ctx context.Context, bookingID string) (*Escrow, error) {
	e, ok := m.escrows[bookingID]
	if !ok || e.Terminal() {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) EnsureFunded(ctx context.Context, bookingID string, amount int64) (*Escrow, error) {
	if e, ok := m.escrows[bookingID]; ok && !e.Terminal() {
		if amount > e.Amount {
			e.Amount = amount
		}
		cp := *e
		return &cp, nil
	}
	e := &Escrow{
		ID:        "esc-" + bookingID,
		BookingID: bookingID,
		Status:    StatusFunded,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	m.escrows[bookingID] = e
	cp := *e
	return &cp, nil
}

func (m *memStore) TransitionFrom(ctx context.Context, bookingID string, from []Status, to Status, refundedBy, reason string) (bool, error) {
	e, ok := m.escrows[bookingID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if e.Status == s {
			matched = true
		}
	}
	if !matched {
		return false, nil
	}
	e.Status = to
	if refundedBy != "" {
		e.RefundedBy = refundedBy
	}
	if reason != "" {
		e.Reason = reason
	}
	if to == StatusServiceCompleted {
		now := time.Now().UTC()
		e.ServiceCompletedAt = &now
	}
	return true, nil
}

func (m *memStore) DueForRelease(ctx context.Context, cutoff time.Time) ([]*DueEscrow, error) {
	var due []*DueEscrow
	for _, e := range m.escrows {
		if e.Status == StatusServiceCompleted && e.ServiceCompletedAt != nil && e.ServiceCompletedAt.Before(cutoff) {
			due = append(due, &DueEscrow{
				BookingID:  e.BookingID,
				ClientID:   "cl-" + e.BookingID,
				SupplierID: "sp-" + e.BookingID,
			})
		}
	}
	return due, nil
}

// recordingRebuilds captures which actor pairs the coordinator asked to
// rebuild.
type recordingRebuilds struct {
	calls [][2]string
}

func (r *recordingRebuilds) BookingChanged(_ context.Context, clientID, supplierID string) {
	r.calls = append(r.calls, [2]string{clientID, supplierID})
}

func TestPaymentFundsEscrowOnce(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil, time.Hour)

	c.OnPaymentRecorded(context.Background(), "bk-1", 30000)
	c.OnPaymentRecorded(context.Background(), "bk-1", 50000)
	c.OnPaymentRecorded(context.Background(), "bk-1", 0) // ignored

	e := store.escrows["bk-1"]
	if e == nil {
		t.Fatal("no escrow funded")
	}
	if e.Status != StatusFunded {
		t.Errorf("status = %s, want funded", e.Status)
	}
	if e.Amount != 50000 {
		t.Errorf("amount = %d, want raised to 50000", e.Amount)
	}
}

func TestCompletionStartsHoldWindow(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil, time.Hour)

	c.OnPaymentRecorded(context.Background(), "bk-1", 50000)
	c.OnBookingCompleted(context.Background(), "bk-1")

	e := store.escrows["bk-1"]
	if e.Status != StatusServiceCompleted {
		t.Errorf("status = %s, want service_completed", e.Status)
	}
	if e.ServiceCompletedAt == nil {
		t.Error("service completion timestamp not set")
	}

	// Re-applied completion is a no-op, not an error.
	c.OnBookingCompleted(context.Background(), "bk-1")
	if e.Status != StatusServiceCompleted {
		t.Errorf("status after replay = %s", e.Status)
	}
}

func TestCompletionWithoutEscrowIsHarmless(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil, time.Hour)

	// Fully-unpaid booking completes; there is nothing to move.
	c.OnBookingCompleted(context.Background(), "bk-none")
	if len(store.escrows) != 0 {
		t.Errorf("escrows = %v, want none", store.escrows)
	}
}

func TestCancellationRefunds(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil, time.Hour)

	c.OnPaymentRecorded(context.Background(), "bk-1", 50000)
	c.OnBookingCancelled(context.Background(), "bk-1", "supplier:owner-1", "")

	e := store.escrows["bk-1"]
	if e.Status != StatusRefunded {
		t.Errorf("status = %s, want refunded", e.Status)
	}
	if e.RefundedBy != "supplier:owner-1" {
		t.Errorf("refunded_by = %q", e.RefundedBy)
	}
	if e.Reason != "booking cancelled" {
		t.Errorf("reason = %q, want default reason", e.Reason)
	}
}

func TestCancellationAfterReleaseDoesNotRefund(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil, time.Hour)

	c.OnPaymentRecorded(context.Background(), "bk-1", 50000)
	store.escrows["bk-1"].Status = StatusReleased

	c.OnBookingCancelled(context.Background(), "bk-1", "client:c-1", "late cancellation")
	if store.escrows["bk-1"].Status != StatusReleased {
		t.Errorf("released escrow was moved to %s", store.escrows["bk-1"].Status)
	}
}

func TestReleaseDue(t *testing.T) {
	store := newMemStore()
	rebuilds := &recordingRebuilds{}
	c := NewCoordinator(store, rebuilds, time.Hour)

	c.OnPaymentRecorded(context.Background(), "bk-old", 10000)
	c.OnBookingCompleted(context.Background(), "bk-old")
	past := time.Now().UTC().Add(-2 * time.Hour)
	store.escrows["bk-old"].ServiceCompletedAt = &past

	c.OnPaymentRecorded(context.Background(), "bk-new", 20000)
	c.OnBookingCompleted(context.Background(), "bk-new")

	if released := c.ReleaseDue(context.Background()); released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}
	if store.escrows["bk-old"].Status != StatusReleased {
		t.Errorf("old escrow status = %s, want released", store.escrows["bk-old"].Status)
	}
	if store.escrows["bk-new"].Status != StatusServiceCompleted {
		t.Errorf("new escrow status = %s, want untouched", store.escrows["bk-new"].Status)
	}

	// A release moves money out of escrow_held on both sides, so exactly one
	// rebuild is scheduled for the released booking's actor pair and none for
	// the one still inside its hold window.
	if len(rebuilds.calls) != 1 {
		t.Fatalf("rebuild calls = %v, want exactly one", rebuilds.calls)
	}
	if got := rebuilds.calls[0]; got != [2]string{"cl-bk-old", "sp-bk-old"} {
		t.Errorf("rebuild actors = %v, want cl-bk-old/sp-bk-old", got)
	}
}

func TestReleaseDueWithoutSchedulerDoesNotPanic(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil, time.Hour)

	c.OnPaymentRecorded(context.Background(), "bk-1", 10000)
	c.OnBookingCompleted(context.Background(), "bk-1")
	past := time.Now().UTC().Add(-2 * time.Hour)
	store.escrows["bk-1"].ServiceCompletedAt = &past

	if released := c.ReleaseDue(context.Background()); released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}
}
