package booking

import "time"

// Status is the authoritative booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// ActiveStatuses are the statuses that occupy a supplier's calendar slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// ActorRole identifies who performed a transition.
type ActorRole string

const (
	RoleClient   ActorRole = "client"
	RoleSupplier ActorRole = "supplier"
	RoleAdmin    ActorRole = "admin"
	RoleSystem   ActorRole = "system"
)

// Actor is the identity behind a mutating request.
type Actor struct {
	ID   string
	Role ActorRole
}

// Tag renders the actor as "role:id" for audit and escrow records.
func (a Actor) Tag() string {
	return string(a.Role) + ":" + a.ID
}

// Booking represents one request for a service package on a calendar day.
type Booking struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	SupplierID     string     `json:"supplier_id"`
	PackageID      string     `json:"package_id"`
	PackageName    string     `json:"package_name"`
	PackagePrice   int64      `json:"package_price"`
	EventDate      time.Time  `json:"event_date"` // calendar day, midnight UTC
	Status         Status     `json:"status"`
	PaidAmount     int64      `json:"paid_amount"`
	TotalPrice     int64      `json:"total_price"`
	Reason         string     `json:"reason,omitempty"`
	TransitionedBy string     `json:"transitioned_by,omitempty"`
	TransitionedAt *time.Time `json:"transitioned_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FullyPaid reports whether the booking is paid up to its total price.
func (b *Booking) FullyPaid() bool {
	return b.PaidAmount >= b.TotalPrice
}

// Day truncates a time to its calendar day in UTC. Conflict checks and the
// blocked-dates table operate at day precision only.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
