package alerts

import "time"

// Task type constants
const (
	TaskInAppNotification = "notify:in_app"
	TaskBookingRequest    = "email:booking_request"
	TaskBookingConfirmed  = "email:booking_confirmed"
	TaskBookingCancelled  = "email:booking_cancelled"
	TaskBookingCompleted  = "email:booking_completed"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// In-app notification payload, written to the notifications table by the
// worker.
type InAppPayload struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Reference string    `json:"reference,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Booking lifecycle email payload
type BookingEmailPayload struct {
	BookingID  string        `json:"booking_id"`
	ClientID   string        `json:"client_id"`
	SupplierID string        `json:"supplier_id"`
	Email      string        `json:"email"`
	Amount     int64         `json:"amount"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}
