package views

import (
	"context"
	"time"

	"github.com/festivo-app/festivo/internal/booking"
)

// Profile is the slice of an actor's record a rebuild needs for display.
type Profile struct {
	ID       string
	UserID   string // for suppliers: the owning user account
	Name     string
	PhotoURL string
}

// Source reads current truth from the source entities. The engine never
// consults a previous view document; every rebuild starts from these reads.
type Source interface {
	ClientProfile(ctx context.Context, clientID string) (*Profile, error)
	SupplierProfile(ctx context.Context, supplierID string) (*Profile, error)
	// SupplierIDForUser resolves a user account to its supplier profile.
	SupplierIDForUser(ctx context.Context, userID string) (string, error)

	// Recent bookings for one actor, newest created first, bounded.
	BookingsByClient(ctx context.Context, clientID string, limit int) ([]*booking.Booking, error)
	BookingsBySupplier(ctx context.Context, supplierID string, limit int) ([]*booking.Booking, error)

	ClientDisplay(ctx context.Context, clientID string) (Counterparty, error)
	SupplierDisplay(ctx context.Context, supplierID string) (Counterparty, error)

	// ReviewedBookings reports which of the given bookings already have a review.
	ReviewedBookings(ctx context.Context, bookingIDs []string) (map[string]bool, error)

	UnreadMessageCount(ctx context.Context, userID string) (int, error)
	UnreadNotificationCount(ctx context.Context, userID string) (int, error)

	// EscrowHeld sums active escrow amounts across the actor's bookings.
	EscrowHeldByClient(ctx context.Context, clientID string) (int64, error)
	EscrowHeldBySupplier(ctx context.Context, supplierID string) (int64, error)

	// Day counts over [from, from+windowDays) for the availability summary.
	BlockedDayCount(ctx context.Context, supplierID string, from time.Time, windowDays int) (int, error)
	ReservedDayCount(ctx context.Context, supplierID string, from time.Time, windowDays int) (int, error)
	// UnavailableDayCount counts distinct days that are manually blocked,
	// hold an active booking, or both. A day in both sets counts once.
	UnavailableDayCount(ctx context.Context, supplierID string, from time.Time, windowDays int) (int, error)

	SupplierRating(ctx context.Context, supplierID string) (Rating, error)
}

// StaleView is one row from the freshness audit.
type StaleView struct {
	ActorID   string    `json:"actor_id"`
	Kind      string    `json:"kind"` // client | supplier
	RebuiltAt time.Time `json:"rebuilt_at"`
}

// ViewStore persists the documents. Save replaces the whole document; there is
// deliberately no partial-update method on this interface.
type ViewStore interface {
	SaveClientView(ctx context.Context, v *ClientView) error
	SaveSupplierView(ctx context.Context, v *SupplierView) error
	GetClientView(ctx context.Context, clientID string) (*ClientView, error)
	GetSupplierView(ctx context.Context, supplierID string) (*SupplierView, error)

	// ListActorIDs pages through all actors of a kind for the backfill.
	ListActorIDs(ctx context.Context, kind string, afterID string, limit int) ([]string, error)
	// StaleViews lists documents rebuilt before the cutoff.
	StaleViews(ctx context.Context, cutoff time.Time, limit int) ([]StaleView, error)
}
