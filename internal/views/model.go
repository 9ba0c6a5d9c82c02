package views

import (
	"time"

	"github.com/festivo-app/festivo/internal/booking"
)

// SourceVersion stamps every rebuilt document so consumers and the backfill
// can tell which schema generation produced it.
const SourceVersion = 3

// Reason tags why a rebuild ran.
type Reason string

const (
	ReasonTrigger  Reason = "trigger"
	ReasonBackfill Reason = "backfill"
	ReasonManual   Reason = "manual"
)

// Meta is the rebuild metadata stamped on every document.
type Meta struct {
	RebuiltAt     time.Time `json:"rebuilt_at"`
	Reason        Reason    `json:"reason"`
	SourceVersion int       `json:"source_version"`
}

// Counterparty is the cached display info for the other side of a booking.
type Counterparty struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// BookingCard is one booking as it appears inside a view document. The
// capability flags are computed here, server-side, so consuming surfaces carry
// no business rules.
type BookingCard struct {
	ID            string         `json:"id"`
	Status        booking.Status `json:"status"`
	DisplayStatus string         `json:"display_status"`
	PackageName   string         `json:"package_name"`
	EventDate     time.Time      `json:"event_date"`
	TotalPrice    int64          `json:"total_price"`
	PaidAmount    int64          `json:"paid_amount"`
	CreatedAt     time.Time      `json:"created_at"`
	Counterparty  Counterparty   `json:"counterparty"`

	CanCancel bool `json:"can_cancel"`
	CanPay    bool `json:"can_pay"`
	CanReview bool `json:"can_review"`
}

// Finance aggregates money figures for one actor.
type Finance struct {
	Pending    int64 `json:"pending"`
	Total      int64 `json:"total"`
	EscrowHeld int64 `json:"escrow_held"`
}

// Availability is the supplier's forward-looking calendar summary.
type Availability struct {
	WindowDays    int `json:"window_days"`
	BlockedDays   int `json:"blocked_days"`
	ReservedDays  int `json:"reserved_days"`
	AvailableDays int `json:"available_days"`
}

// Rating is the supplier's review aggregate.
type Rating struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// ClientView is the single denormalized document for one client. It is always
// replaced wholesale; no code path patches individual fields.
type ClientView struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`

	PendingBookings  []BookingCard `json:"pending_bookings"`
	UpcomingBookings []BookingCard `json:"upcoming_bookings"`
	RecentBookings   []BookingCard `json:"recent_bookings"`

	UnreadMessages      int     `json:"unread_messages"`
	UnreadNotifications int     `json:"unread_notifications"`
	Finance             Finance `json:"finance"`

	Meta Meta `json:"meta"`
}

// SupplierView is the single denormalized document for one supplier.
type SupplierView struct {
	SupplierID   string `json:"supplier_id"`
	BusinessName string `json:"business_name"`
	PhotoURL     string `json:"photo_url,omitempty"`

	PendingRequests []BookingCard `json:"pending_requests"`
	UpcomingEvents  []BookingCard `json:"upcoming_events"`
	RecentBookings  []BookingCard `json:"recent_bookings"`

	UnreadMessages      int          `json:"unread_messages"`
	UnreadNotifications int          `json:"unread_notifications"`
	Finance             Finance      `json:"finance"`
	Availability        Availability `json:"availability"`
	Rating              Rating       `json:"rating"`

	Meta Meta `json:"meta"`
}

// displayStatus maps the canonical status to the display-only taxonomy. A
// cancellation performed by the supplier on a pending request shows as
// "rejected"; the authoritative machine never carries that value.
func displayStatus(b *booking.Booking) string {
	if b.Status == booking.StatusCancelled &&
		len(b.TransitionedBy) > len("supplier:") &&
		b.TransitionedBy[:len("supplier:")] == "supplier:" {
		return "rejected"
	}
	return string(b.Status)
}

// cardFlags derives the per-booking capability flags as a pure function of
// status and payment state.
func cardFlags(b *booking.Booking, reviewed bool) (canCancel, canPay, canReview bool) {
	canCancel = b.Status == booking.StatusPending || b.Status == booking.StatusConfirmed
	canPay = b.Status == booking.StatusPending && !b.FullyPaid()
	canReview = b.Status == booking.StatusCompleted && !reviewed
	return
}
