package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/festivo-app/festivo/internal/eligibility"
	"github.com/festivo-app/festivo/internal/ratelimit"
)

// EscrowCoordinator reacts to booking outcomes. Calls are best-effort: a
// failed escrow action never rolls back the committed booking transition.
type EscrowCoordinator interface {
	OnBookingCompleted(ctx context.Context, bookingID string)
	OnBookingCancelled(ctx context.Context, bookingID, actorTag, reason string)
	OnPaymentRecorded(ctx context.Context, bookingID string, totalPaid int64)
}

// DateBlocks manages the calendar holds tied to confirmed bookings.
type DateBlocks interface {
	Hold(ctx context.Context, supplierID string, day time.Time, bookingID string) error
	Release(ctx context.Context, bookingID string) error
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(userID, typ, title, body string, reference string)
}

// AuditSink is the append-only audit recorder.
type AuditSink interface {
	Record(ctx context.Context, category, eventType, actorID, resourceID string, before, after, metadata any) error
}

// RebuildScheduler schedules view rebuilds for the actors a booking touches.
type RebuildScheduler interface {
	BookingChanged(ctx context.Context, clientID, supplierID string)
}

// Service mutates bookings only through transitions proven legal by the state
// machine, under concurrent multi-client access.
type Service struct {
	store    Store
	limits   ratelimit.Checker
	oracle   eligibility.Oracle
	escrow   EscrowCoordinator
	blocks   DateBlocks
	notify   Notifier
	audit    AuditSink
	rebuilds RebuildScheduler
}

func NewService(store Store, limits ratelimit.Checker, oracle eligibility.Oracle,
	escrow EscrowCoordinator, blocks DateBlocks, notify Notifier,
	audit AuditSink, rebuilds RebuildScheduler) *Service {
	return &Service{
		store:    store,
		limits:   limits,
		oracle:   oracle,
		escrow:   escrow,
		blocks:   blocks,
		notify:   notify,
		audit:    audit,
		rebuilds: rebuilds,
	}
}

// CreateInput carries everything createBooking needs, including the rate-limit
// scope keys for the caller's IP and device.
type CreateInput struct {
	ClientID       string
	SupplierID     string
	PackageID      string
	EventDate      time.Time
	IdempotencyKey string
	// DeclaredPrice is the client-observed price, used only when the package
	// record carries no positive price.
	DeclaredPrice int64
	IP            string
	DeviceID      string
}

// CreateResult distinguishes a fresh booking from an idempotent replay.
type CreateResult struct {
	Booking *Booking
	Replay  bool
}

// The five independent creation windows. Any single violation blocks the
// request.
var createWindows = []struct {
	name    string
	limit   int
	seconds int
}{
	{"user-burst", 5, 60},
	{"user-hourly", 20, 3600},
	{"supplier-burst", 15, 60},
	{"ip-burst", 10, 60},
	{"device-burst", 10, 60},
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if in.ClientID == "" || in.SupplierID == "" || in.PackageID == "" || in.EventDate.IsZero() {
		return nil, fmt.Errorf("%w: client, supplier, package and event date are required", ErrInvalidArgument)
	}
	day := Day(in.EventDate)

	// Idempotency token replay: same key and payload returns the original
	// booking without re-running any checks.
	reqHash := createRequestHash(in)
	if in.IdempotencyKey != "" {
		bookingID, storedHash, err := s.store.LookupIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if storedHash != "" {
			if storedHash != reqHash {
				return nil, ErrIdempotencyMismatch
			}
			b, err := s.store.ByID(ctx, bookingID)
			if err != nil {
				return nil, err
			}
			return &CreateResult{Booking: b, Replay: true}, nil
		}
	}

	// Duplicate probe: an active booking for the same client, supplier,
	// package and day is returned instead of creating a twin.
	if dup, err := s.store.FindActiveDuplicate(ctx, in.ClientID, in.SupplierID, in.PackageID, day); err != nil {
		return nil, err
	} else if dup != nil {
		return &CreateResult{Booking: dup, Replay: true}, nil
	}

	if err := s.checkRateLimits(ctx, in); err != nil {
		return nil, err
	}

	res, err := s.oracle.IsSupplierBookable(ctx, in.SupplierID, day)
	if err != nil {
		return nil, fmt.Errorf("eligibility check: %w", err)
	}
	if !res.Eligible {
		return nil, fmt.Errorf("%w: %v", ErrSupplierIneligible, res.Reasons)
	}

	busy, err := s.store.HasActiveOnDay(ctx, in.SupplierID, day)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrDateConflict
	}

	pkg, err := s.store.Package(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}

	// The package's canonical price wins; the client-declared price is a
	// fallback only. A mismatch is logged, not an error.
	price := pkg.Price
	if price <= 0 {
		price = in.DeclaredPrice
	} else if in.DeclaredPrice > 0 && in.DeclaredPrice != pkg.Price {
		log.Printf("[booking] price mismatch on package %s: client declared %d, canonical %d",
			in.PackageID, in.DeclaredPrice, pkg.Price)
	}

	b := &Booking{
		ClientID:     in.ClientID,
		SupplierID:   in.SupplierID,
		PackageID:    in.PackageID,
		PackageName:  pkg.Name,
		PackagePrice: pkg.Price,
		EventDate:    day,
		Status:       StatusPending,
		TotalPrice:   price,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		if err := s.store.SaveIdempotencyKey(ctx, in.IdempotencyKey, reqHash, b.ID); err != nil {
			log.Printf("[booking] failed to save idempotency key: %v", err)
		}
	}

	// Side effects are best-effort, outside the transactional guarantee.
	s.notify.Notify(in.SupplierID, "booking_request", "New booking request",
		fmt.Sprintf("New request for %s on %s.", b.PackageName, day.Format("2006-01-02")), b.ID)
	_ = s.audit.Record(ctx, "booking", "created", in.ClientID, b.ID, nil, b, nil)
	s.rebuilds.BookingChanged(ctx, b.ClientID, b.SupplierID)

	return &CreateResult{Booking: b}, nil
}

func (s *Service) checkRateLimits(ctx context.Context, in CreateInput) error {
	scopes := map[string]string{
		"user-burst":     in.ClientID,
		"user-hourly":    in.ClientID,
		"supplier-burst": in.SupplierID,
		"ip-burst":       in.IP,
		"device-burst":   in.DeviceID,
	}
	for _, w := range createWindows {
		scope := scopes[w.name]
		if scope == "" {
			continue
		}
		dec, err := s.limits.Check(ctx, scope, "booking_create:"+w.name, w.limit, w.seconds)
		if err != nil {
			return fmt.Errorf("rate limit check %s: %w", w.name, err)
		}
		if !dec.Allowed {
			return &RateLimitError{Window: w.name, RetryAfter: dec.RetryAfterSeconds}
		}
	}
	return nil
}

// RespondAction is what a supplier does to a pending booking.
type RespondAction string

const (
	ActionConfirm RespondAction = "confirm"
	ActionReject  RespondAction = "reject"
)

// Respond confirms or rejects a pending booking. The ownership check, status
// check, payment gate and write all execute inside one atomic region; with
// two racing confirms exactly one performs the write and the other observes
// the idempotent path.
func (s *Service) Respond(ctx context.Context, bookingID string, actor Actor, action RespondAction, reason string) (*Booking, error) {
	target := StatusConfirmed
	if action == ActionReject {
		target = StatusCancelled
		if reason == "" {
			reason = "rejected by supplier"
		}
	} else if action != ActionConfirm {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, action)
	}

	var noop bool
	var before Status
	b, err := s.store.Transition(ctx, bookingID, func(ctx context.Context, tx Tx, b *Booking) (bool, error) {
		before = b.Status
		if actor.Role != RoleAdmin {
			owners, err := tx.SupplierOwnerIDs(ctx, b.SupplierID)
			if err != nil {
				return false, err
			}
			if !contains(owners, actor.ID) {
				return false, ErrNotOwner
			}
		}
		if b.Status == target {
			noop = true
			return false, nil
		}
		if b.Status != StatusPending {
			return false, &TransitionError{From: b.Status, To: target,
				Reason: "only pending bookings can be responded to"}
		}
		if res := ValidateTransition(b.Status, target); !res.Allowed {
			return false, &TransitionError{From: b.Status, To: target, Reason: res.Reason}
		}
		if action == ActionConfirm && b.PaidAmount <= 0 {
			return false, ErrPaymentRequired
		}
		applyTransition(b, target, actor, reason)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return b, nil
	}

	s.afterTransition(ctx, b, before, actor, reason)
	return b, nil
}

// Cancel moves a booking to cancelled from any non-terminal status.
// Idempotent when the booking is already cancelled.
func (s *Service) Cancel(ctx context.Context, bookingID string, actor Actor, reason string) (*Booking, error) {
	var noop bool
	var before Status
	b, err := s.store.Transition(ctx, bookingID, func(ctx context.Context, tx Tx, b *Booking) (bool, error) {
		before = b.Status
		if err := s.authorizeParty(ctx, tx, b, actor); err != nil {
			return false, err
		}
		if b.Status == StatusCancelled {
			noop = true
			return false, nil
		}
		if res := ValidateTransition(b.Status, StatusCancelled); !res.Allowed {
			return false, &TransitionError{From: b.Status, To: StatusCancelled, Reason: res.Reason}
		}
		applyTransition(b, StatusCancelled, actor, reason)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return b, nil
	}

	s.afterTransition(ctx, b, before, actor, reason)
	return b, nil
}

// UpdateStatus is the generic transition gate behind confirm/complete/cancel.
func (s *Service) UpdateStatus(ctx context.Context, bookingID string, actor Actor, target Status, reason string) (*Booking, error) {
	var noop bool
	var before Status
	b, err := s.store.Transition(ctx, bookingID, func(ctx context.Context, tx Tx, b *Booking) (bool, error) {
		before = b.Status
		if err := s.authorizeParty(ctx, tx, b, actor); err != nil {
			return false, err
		}
		res := ValidateTransition(b.Status, target)
		if !res.Allowed {
			return false, &TransitionError{From: b.Status, To: target, Reason: res.Reason}
		}
		if res.NoOp {
			noop = true
			return false, nil
		}
		if target == StatusConfirmed && b.PaidAmount <= 0 {
			return false, ErrPaymentRequired
		}
		applyTransition(b, target, actor, reason)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return b, nil
	}

	s.afterTransition(ctx, b, before, actor, reason)
	return b, nil
}

// RecordPayment raises the paid amount monotonically and funds escrow on the
// first payment. Amounts must be positive.
func (s *Service) RecordPayment(ctx context.Context, bookingID string, actor Actor, amount int64) (*Booking, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidArgument)
	}
	b, err := s.store.Transition(ctx, bookingID, func(ctx context.Context, tx Tx, b *Booking) (bool, error) {
		// Only the paying client or an admin may attach money to a booking.
		if actor.Role != RoleAdmin && actor.ID != b.ClientID {
			return false, ErrNotOwner
		}
		if IsTerminal(b.Status) && b.Status != StatusCompleted {
			return false, &TransitionError{From: b.Status, To: b.Status, Reason: "booking no longer accepts payments"}
		}
		b.PaidAmount += amount
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.escrow.OnPaymentRecorded(ctx, b.ID, b.PaidAmount)
	s.rebuilds.BookingChanged(ctx, b.ClientID, b.SupplierID)
	return b, nil
}

// expireBatch bounds one expiry sweep pass.
const expireBatch = 200

// ExpireOverdue moves pending bookings whose event day has passed to expired.
// Run periodically by the trigger worker; each booking is expired through the
// same atomic region as any other transition, so a racing confirm wins or
// loses cleanly.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	today := Day(time.Now().UTC())
	ids, err := s.store.OverduePendingIDs(ctx, today, expireBatch)
	if err != nil {
		return 0, fmt.Errorf("list overdue bookings: %w", err)
	}

	actor := Actor{ID: "expiry-sweep", Role: RoleSystem}
	expired := 0
	for _, id := range ids {
		var before Status
		b, err := s.store.Transition(ctx, id, func(ctx context.Context, tx Tx, b *Booking) (bool, error) {
			before = b.Status
			if b.Status != StatusPending {
				// Lost the race to a confirm or cancel; nothing to do.
				return false, nil
			}
			applyTransition(b, StatusExpired, actor, "event date passed")
			return true, nil
		})
		if err != nil {
			log.Printf("[booking] expire %s failed: %v", id, err)
			continue
		}
		if b.Status != StatusExpired || before == StatusExpired {
			continue
		}
		expired++
		s.afterTransition(ctx, b, before, actor, "event date passed")
	}
	return expired, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.store.ByID(ctx, id)
}

// authorizeParty allows the booking's client, the supplier's owner (including
// legacy alias ids) and admins.
func (s *Service) authorizeParty(ctx context.Context, tx Tx, b *Booking, actor Actor) error {
	if actor.Role == RoleAdmin || actor.ID == b.ClientID {
		return nil
	}
	owners, err := tx.SupplierOwnerIDs(ctx, b.SupplierID)
	if err != nil {
		return err
	}
	if !contains(owners, actor.ID) {
		return ErrNotOwner
	}
	return nil
}

func applyTransition(b *Booking, target Status, actor Actor, reason string) {
	now := time.Now().UTC()
	b.Status = target
	if reason != "" {
		b.Reason = reason
	}
	b.TransitionedBy = actor.Tag()
	b.TransitionedAt = &now
}

// afterTransition dispatches the side effects keyed by the new status. All of
// them are caught and logged; the committed status is the source of truth and
// is never reverted because a secondary effect failed.
func (s *Service) afterTransition(ctx context.Context, b *Booking, before Status, actor Actor, reason string) {
	switch b.Status {
	case StatusConfirmed:
		if err := s.blocks.Hold(ctx, b.SupplierID, b.EventDate, b.ID); err != nil {
			log.Printf("[booking] date block hold failed for %s: %v", b.ID, err)
		}
		s.notify.Notify(b.ClientID, "booking_confirmed", "Booking confirmed",
			fmt.Sprintf("Your booking for %s is confirmed.", b.PackageName), b.ID)
	case StatusCancelled:
		if err := s.blocks.Release(ctx, b.ID); err != nil {
			log.Printf("[booking] date block release failed for %s: %v", b.ID, err)
		}
		s.escrow.OnBookingCancelled(ctx, b.ID, actor.Tag(), reason)
		counterparty := b.SupplierID
		if actor.ID != b.ClientID {
			counterparty = b.ClientID
		}
		s.notify.Notify(counterparty, "booking_cancelled", "Booking cancelled",
			fmt.Sprintf("Booking for %s was cancelled.", b.PackageName), b.ID)
	case StatusCompleted:
		s.escrow.OnBookingCompleted(ctx, b.ID)
		s.notify.Notify(b.ClientID, "booking_completed", "Booking completed",
			fmt.Sprintf("Your booking for %s is complete.", b.PackageName), b.ID)
	}

	_ = s.audit.Record(ctx, "booking", "status_changed", actor.Tag(), b.ID,
		map[string]any{"status": before}, map[string]any{"status": b.Status},
		map[string]any{"reason": reason})
	s.rebuilds.BookingChanged(ctx, b.ClientID, b.SupplierID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func createRequestHash(in CreateInput) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s",
		in.ClientID, in.SupplierID, in.PackageID, Day(in.EventDate).Format("2006-01-02"))))
	return hex.EncodeToString(sum[:])
}
