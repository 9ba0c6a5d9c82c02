package booking

import (
	"context"
	"time"
)

// Tx exposes the reads available inside an atomic transition region. The
// ownership check in Respond/Cancel must see the same snapshot as the status
// write, so it goes through here rather than through a separate query.
type Tx interface {
	SupplierOwnerIDs(ctx context.Context, supplierID string) ([]string, error)
}

// TransitionFunc inspects and mutates a booking inside an atomic region.
// Returning write=false commits nothing and signals the idempotent no-op path.
type TransitionFunc func(ctx context.Context, tx Tx, b *Booking) (write bool, err error)

// PackageInfo is the canonical package record consulted at creation time.
type PackageInfo struct {
	ID         string
	SupplierID string
	Name       string
	Price      int64
}

// Store is the persistence surface of the transaction service. The pgx
// implementation lives in pg.go; tests use the in-memory fake.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	ByID(ctx context.Context, id string) (*Booking, error)

	// Transition runs fn against the booking row under an exclusive lock.
	// Concurrent callers on the same booking serialize here; this is the only
	// linearizable region the service relies on.
	Transition(ctx context.Context, id string, fn TransitionFunc) (*Booking, error)

	// FindActiveDuplicate returns an existing active booking for the same
	// client, supplier, package and day, or nil when there is none.
	FindActiveDuplicate(ctx context.Context, clientID, supplierID, packageID string, day time.Time) (*Booking, error)

	// HasActiveOnDay reports whether any active booking occupies the
	// supplier's calendar day.
	HasActiveOnDay(ctx context.Context, supplierID string, day time.Time) (bool, error)

	Package(ctx context.Context, packageID string) (*PackageInfo, error)
	SupplierOwnerIDs(ctx context.Context, supplierID string) ([]string, error)

	// OverduePendingIDs lists pending bookings whose event day has passed.
	OverduePendingIDs(ctx context.Context, before time.Time, limit int) ([]string, error)

	// Idempotency token support for createBooking retries.
	LookupIdempotencyKey(ctx context.Context, key string) (bookingID, requestHash string, err error)
	SaveIdempotencyKey(ctx context.Context, key, requestHash, bookingID string) error
}
