package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/festivo-app/festivo/internal/db"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

// Sink is the fire-and-forget notification sink handed to the booking
// service. Enqueue failures are logged and swallowed; a notification is never
// part of a transactional guarantee.
type Sink struct{}

func NewSink() *Sink { return &Sink{} }

func (Sink) Notify(userID, typ, title, body, reference string) {
	recipient := resolveRecipient(userID)
	if err := EnqueueInApp(recipient, typ, title, body, reference); err != nil {
		log.Printf("[notify][ERROR] enqueue %s for user %s failed: %v", typ, recipient, err)
	}
	enqueueLifecycleEmail(typ, reference, recipient)
}

// resolveRecipient maps a supplier profile ID to its owning user. Client IDs
// are already user IDs and pass through unchanged.
func resolveRecipient(id string) string {
	var userID string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT user_id FROM supplier_profiles WHERE id = $1`, id).Scan(&userID)
	if err != nil {
		return id
	}
	return userID
}

// enqueueLifecycleEmail mirrors the in-app notification with an email for the
// booking lifecycle events. Lookup or enqueue failures are logged and
// swallowed like every other side effect here.
func enqueueLifecycleEmail(typ, bookingID, recipientUserID string) {
	if bookingID == "" {
		return
	}
	var enq func(bookingID, clientID, supplierID, email string, amount int64) error
	switch typ {
	case "booking_request":
		enq = EnqueueBookingRequest
	case "booking_confirmed":
		enq = EnqueueBookingConfirmed
	case "booking_cancelled":
		enq = EnqueueBookingCancelled
	case "booking_completed":
		enq = EnqueueBookingCompleted
	default:
		return
	}

	var clientID, supplierID, email string
	var amount int64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT b.client_id, b.supplier_id, b.total_price, u.email
		   FROM bookings b JOIN users u ON u.id = $2
		  WHERE b.id = $1`, bookingID, recipientUserID,
	).Scan(&clientID, &supplierID, &amount, &email)
	if err != nil {
		log.Printf("[notify][ERROR] email lookup for booking %s failed: %v", bookingID, err)
		return
	}
	if err := enq(bookingID, clientID, supplierID, email, amount); err != nil {
		log.Printf("[notify][ERROR] enqueue %s email for booking %s failed: %v", typ, bookingID, err)
	}
}

// EnqueueBookingRequest notifies the supplier that a new request landed.
func EnqueueBookingRequest(bookingID, clientID, supplierID, supplierEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      supplierEmail,
		Subject: "New booking request",
		Body:    fmt.Sprintf("You have a new booking request %s. Quoted amount %d.", bookingID, amount),
	}
	payload := BookingEmailPayload{BookingID: bookingID, ClientID: clientID, SupplierID: supplierID,
		Email: supplierEmail, Amount: amount, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskBookingRequest, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueInApp schedules an in-app notification row for the user.
func EnqueueInApp(userID, typ, title, body, reference string) error {
	payload := InAppPayload{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Reference: reference,
		SentAt:    time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskInAppNotification, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("notifications"))
	return err
}

// EnqueueBookingConfirmed notifies the client after the supplier confirms.
func EnqueueBookingConfirmed(bookingID, clientID, supplierID, clientEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      clientEmail,
		Subject: "Your booking has been confirmed",
		Body:    fmt.Sprintf("Booking %s is confirmed. Amount %d.", bookingID, amount),
	}
	payload := BookingEmailPayload{BookingID: bookingID, ClientID: clientID, SupplierID: supplierID,
		Email: clientEmail, Amount: amount, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskBookingConfirmed, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueBookingCancelled notifies the counterparty of a cancellation.
func EnqueueBookingCancelled(bookingID, clientID, supplierID, email string, amount int64) error {
	env := EmailEnvelope{
		To:      email,
		Subject: "Booking cancelled",
		Body:    fmt.Sprintf("Booking %s was cancelled. Held funds, if any, will be refunded.", bookingID),
	}
	payload := BookingEmailPayload{BookingID: bookingID, ClientID: clientID, SupplierID: supplierID,
		Email: email, Amount: amount, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskBookingCancelled, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueBookingCompleted notifies the supplier that the event completed and
// the escrow release timer started.
func EnqueueBookingCompleted(bookingID, clientID, supplierID, supplierEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      supplierEmail,
		Subject: "Booking completed",
		Body:    fmt.Sprintf("Booking %s is complete. Amount %d will be released after the hold window.", bookingID, amount),
	}
	payload := BookingEmailPayload{BookingID: bookingID, ClientID: clientID, SupplierID: supplierID,
		Email: supplierEmail, Amount: amount, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskBookingCompleted, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}
