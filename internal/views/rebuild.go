package views

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/festivo-app/festivo/internal/booking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festivo_view_rebuilds_total",
		Help: "View rebuilds executed, labeled by actor kind and reason",
	}, []string{"kind", "reason"})

	rebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "festivo_view_rebuild_duration_seconds",
		Help:    "Latency distribution of view rebuilds",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"kind"})
)

// bookingWindow bounds how many of an actor's bookings feed one rebuild.
const bookingWindow = 50

// listLimit bounds each pre-sorted sub-list in the document.
const listLimit = 20

// Engine recomputes an actor's entire view document from current source
// entities and replaces it wholesale. Rebuilds are idempotent: the output is a
// deterministic function of source truth, never of a prior document, so
// concurrent or repeated rebuilds need no mutual exclusion — the store's
// document replace is the serialization point.
type Engine struct {
	src   Source
	store ViewStore
	now   func() time.Time
}

func NewEngine(src Source, store ViewStore) *Engine {
	return &Engine{src: src, store: store, now: time.Now}
}

// RebuildClient recomputes and replaces one client's document.
func (e *Engine) RebuildClient(ctx context.Context, clientID string, reason Reason) (*ClientView, error) {
	timer := prometheus.NewTimer(rebuildDuration.WithLabelValues("client"))
	defer timer.ObserveDuration()

	profile, err := e.src.ClientProfile(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("client profile: %w", err)
	}

	bookings, err := e.src.BookingsByClient(ctx, clientID, bookingWindow)
	if err != nil {
		return nil, fmt.Errorf("client bookings: %w", err)
	}

	cards, err := e.buildCards(ctx, bookings, func(ctx context.Context, b *booking.Booking) (Counterparty, error) {
		return e.src.SupplierDisplay(ctx, b.SupplierID)
	})
	if err != nil {
		return nil, err
	}

	v := &ClientView{
		ClientID:         clientID,
		Name:             profile.Name,
		PhotoURL:         profile.PhotoURL,
		PendingBookings:  filterPending(cards),
		UpcomingBookings: filterUpcoming(cards, e.now().UTC()),
		RecentBookings:   truncate(cards, listLimit),
	}

	if v.UnreadMessages, err = e.src.UnreadMessageCount(ctx, clientID); err != nil {
		return nil, fmt.Errorf("unread messages: %w", err)
	}
	if v.UnreadNotifications, err = e.src.UnreadNotificationCount(ctx, clientID); err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}

	v.Finance = clientFinance(bookings)
	if v.Finance.EscrowHeld, err = e.src.EscrowHeldByClient(ctx, clientID); err != nil {
		return nil, fmt.Errorf("escrow held: %w", err)
	}

	v.Meta = Meta{RebuiltAt: e.now().UTC(), Reason: reason, SourceVersion: SourceVersion}

	if err := e.store.SaveClientView(ctx, v); err != nil {
		return nil, fmt.Errorf("save client view: %w", err)
	}
	rebuildsTotal.WithLabelValues("client", string(reason)).Inc()
	return v, nil
}

// RebuildSupplier recomputes and replaces one supplier's document.
func (e *Engine) RebuildSupplier(ctx context.Context, supplierID string, reason Reason) (*SupplierView, error) {
	timer := prometheus.NewTimer(rebuildDuration.WithLabelValues("supplier"))
	defer timer.ObserveDuration()

	profile, err := e.src.SupplierProfile(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier profile: %w", err)
	}

	bookings, err := e.src.BookingsBySupplier(ctx, supplierID, bookingWindow)
	if err != nil {
		return nil, fmt.Errorf("supplier bookings: %w", err)
	}

	cards, err := e.buildCards(ctx, bookings, func(ctx context.Context, b *booking.Booking) (Counterparty, error) {
		return e.src.ClientDisplay(ctx, b.ClientID)
	})
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	v := &SupplierView{
		SupplierID:      supplierID,
		BusinessName:    profile.Name,
		PhotoURL:        profile.PhotoURL,
		PendingRequests: filterPending(cards),
		UpcomingEvents:  filterUpcoming(cards, now),
		RecentBookings:  truncate(cards, listLimit),
	}

	if v.UnreadMessages, err = e.src.UnreadMessageCount(ctx, profile.UserID); err != nil {
		return nil, fmt.Errorf("unread messages: %w", err)
	}
	if v.UnreadNotifications, err = e.src.UnreadNotificationCount(ctx, profile.UserID); err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}

	v.Finance = supplierFinance(bookings)
	if v.Finance.EscrowHeld, err = e.src.EscrowHeldBySupplier(ctx, supplierID); err != nil {
		return nil, fmt.Errorf("escrow held: %w", err)
	}

	const windowDays = 60
	today := booking.Day(now)
	blocked, err := e.src.BlockedDayCount(ctx, supplierID, today, windowDays)
	if err != nil {
		return nil, fmt.Errorf("blocked days: %w", err)
	}
	reserved, err := e.src.ReservedDayCount(ctx, supplierID, today, windowDays)
	if err != nil {
		return nil, fmt.Errorf("reserved days: %w", err)
	}
	// Blocked and reserved overlap when a booked day is also manually
	// blocked; the available count subtracts the union, not the sum.
	unavailable, err := e.src.UnavailableDayCount(ctx, supplierID, today, windowDays)
	if err != nil {
		return nil, fmt.Errorf("unavailable days: %w", err)
	}
	v.Availability = Availability{
		WindowDays:    windowDays,
		BlockedDays:   blocked,
		ReservedDays:  reserved,
		AvailableDays: windowDays - unavailable,
	}

	if v.Rating, err = e.src.SupplierRating(ctx, supplierID); err != nil {
		return nil, fmt.Errorf("supplier rating: %w", err)
	}

	v.Meta = Meta{RebuiltAt: now, Reason: reason, SourceVersion: SourceVersion}

	if err := e.store.SaveSupplierView(ctx, v); err != nil {
		return nil, fmt.Errorf("save supplier view: %w", err)
	}
	rebuildsTotal.WithLabelValues("supplier", string(reason)).Inc()
	return v, nil
}

// buildCards resolves counterparties (cached per rebuild) and computes the
// capability flags for each booking.
func (e *Engine) buildCards(ctx context.Context, bookings []*booking.Booking,
	display func(context.Context, *booking.Booking) (Counterparty, error)) ([]BookingCard, error) {

	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	reviewed, err := e.src.ReviewedBookings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("reviewed bookings: %w", err)
	}

	cache := make(map[string]Counterparty)
	cards := make([]BookingCard, 0, len(bookings))
	for _, b := range bookings {
		cp, ok := cache[b.ClientID+b.SupplierID]
		if !ok {
			cp, err = display(ctx, b)
			if err != nil {
				// A missing counterparty profile degrades the card, not the
				// whole rebuild.
				log.Printf("[views] counterparty lookup failed for booking %s: %v", b.ID, err)
				cp = Counterparty{}
			}
			cache[b.ClientID+b.SupplierID] = cp
		}

		canCancel, canPay, canReview := cardFlags(b, reviewed[b.ID])
		cards = append(cards, BookingCard{
			ID:            b.ID,
			Status:        b.Status,
			DisplayStatus: displayStatus(b),
			PackageName:   b.PackageName,
			EventDate:     b.EventDate,
			TotalPrice:    b.TotalPrice,
			PaidAmount:    b.PaidAmount,
			CreatedAt:     b.CreatedAt,
			Counterparty:  cp,
			CanCancel:     canCancel,
			CanPay:        canPay,
			CanReview:     canReview,
		})
	}

	// Newest created first; ties broken by id so output is fully deterministic.
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].ID < cards[j].ID
		}
		return cards[i].CreatedAt.After(cards[j].CreatedAt)
	})
	return cards, nil
}

// filterPending keeps pending bookings, most recently created first.
func filterPending(cards []BookingCard) []BookingCard {
	out := make([]BookingCard, 0)
	for _, c := range cards {
		if c.Status == booking.StatusPending {
			out = append(out, c)
		}
	}
	return truncate(out, listLimit)
}

// filterUpcoming keeps confirmed bookings with future event dates, soonest
// first.
func filterUpcoming(cards []BookingCard, now time.Time) []BookingCard {
	today := booking.Day(now)
	out := make([]BookingCard, 0)
	for _, c := range cards {
		if c.Status == booking.StatusConfirmed && !c.EventDate.Before(today) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].EventDate.Before(out[j].EventDate)
	})
	return truncate(out, listLimit)
}

func truncate(cards []BookingCard, n int) []BookingCard {
	if len(cards) > n {
		return cards[:n]
	}
	return cards
}

func clientFinance(bookings []*booking.Booking) Finance {
	var f Finance
	for _, b := range bookings {
		switch b.Status {
		case booking.StatusPending, booking.StatusConfirmed:
			f.Pending += b.TotalPrice - b.PaidAmount
			f.Total += b.PaidAmount
		case booking.StatusCompleted:
			f.Total += b.PaidAmount
		}
	}
	return f
}

func supplierFinance(bookings []*booking.Booking) Finance {
	var f Finance
	for _, b := range bookings {
		switch b.Status {
		case booking.StatusPending, booking.StatusConfirmed:
			f.Pending += b.TotalPrice
		case booking.StatusCompleted:
			f.Total += b.TotalPrice
		}
	}
	return f
}
