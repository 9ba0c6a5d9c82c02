package escrow

import "time"

// Status is the escrow lifecycle state.
type Status string

const (
	StatusFunded           Status = "funded"
	StatusServiceCompleted Status = "service_completed"
	StatusDisputed         Status = "disputed"
	StatusRefunded         Status = "refunded"
	StatusReleased         Status = "released"
)

// RefundableStatuses are the only states a refund may be issued from.
var RefundableStatuses = []Status{StatusFunded, StatusServiceCompleted, StatusDisputed}

// Escrow represents held funds for one booking. At most one active record
// exists per booking.
type Escrow struct {
	ID                 string     `json:"id"`
	BookingID          string     `json:"booking_id"`
	Status             Status     `json:"status"`
	Amount             int64      `json:"amount"`
	SupplierShare      int64      `json:"supplier_share"`
	ClientShare        int64      `json:"client_share"`
	RefundedBy         string     `json:"refunded_by,omitempty"` // "role:id" tag
	Reason             string     `json:"reason,omitempty"`
	ServiceCompletedAt *time.Time `json:"service_completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DueEscrow pairs a releasable escrow with the booking actors whose financial
// summaries it feeds.
type DueEscrow struct {
	BookingID  string
	ClientID   string
	SupplierID string
}

// Terminal reports whether the escrow reached a final state.
func (e *Escrow) Terminal() bool {
	return e.Status == StatusRefunded || e.Status == StatusReleased
}
