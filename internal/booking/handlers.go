package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festivo_booking_operations_total",
		Help: "Booking operations processed, labeled by operation and outcome",
	}, []string{"operation", "outcome"})

	bookingOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "festivo_booking_operation_duration_seconds",
		Help:    "Latency distribution of booking operations",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"})
)

// Handler exposes the transaction service over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /bookings
func (h *Handler) Create(c echo.Context) error {
	timer := prometheus.NewTimer(bookingOpDuration.WithLabelValues("create"))
	defer timer.ObserveDuration()

	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthenticated})
	}

	var req struct {
		SupplierID    string `json:"supplier_id"`
		PackageID     string `json:"package_id"`
		EventDate     string `json:"event_date"` // YYYY-MM-DD
		DeclaredPrice int64  `json:"declared_price,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.SupplierID == "" || req.PackageID == "" {
		return badRequest(c, "supplier_id, package_id and event_date are required")
	}
	date, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return badRequest(c, "event_date must be YYYY-MM-DD")
	}

	res, err := h.svc.Create(c.Request().Context(), CreateInput{
		ClientID:       clientID,
		SupplierID:     req.SupplierID,
		PackageID:      req.PackageID,
		EventDate:      date,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
		DeclaredPrice:  req.DeclaredPrice,
		IP:             c.RealIP(),
		DeviceID:       c.Request().Header.Get("X-Device-ID"),
	})
	if err != nil {
		bookingOpsTotal.WithLabelValues("create", "error").Inc()
		return respondError(c, err)
	}

	bookingOpsTotal.WithLabelValues("create", "ok").Inc()
	status := http.StatusCreated
	if res.Replay {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{
		"booking_id": res.Booking.ID,
		"status":     res.Booking.Status,
		"replay":     res.Replay,
	})
}

// POST /bookings/:id/respond
func (h *Handler) Respond(c echo.Context) error {
	timer := prometheus.NewTimer(bookingOpDuration.WithLabelValues("respond"))
	defer timer.ObserveDuration()

	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthenticated})
	}

	var req struct {
		Action string `json:"action"` // confirm | reject
		Reason string `json:"reason,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.Action == "" {
		return badRequest(c, "action is required (confirm or reject)")
	}

	b, err := h.svc.Respond(c.Request().Context(), c.Param("id"), actor, RespondAction(req.Action), req.Reason)
	if err != nil {
		bookingOpsTotal.WithLabelValues("respond", "error").Inc()
		return respondError(c, err)
	}
	bookingOpsTotal.WithLabelValues("respond", "ok").Inc()
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.ID, "status": b.Status})
}

// POST /bookings/:id/cancel
func (h *Handler) Cancel(c echo.Context) error {
	timer := prometheus.NewTimer(bookingOpDuration.WithLabelValues("cancel"))
	defer timer.ObserveDuration()

	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthenticated})
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	_ = c.Bind(&req)

	b, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		bookingOpsTotal.WithLabelValues("cancel", "error").Inc()
		return respondError(c, err)
	}
	bookingOpsTotal.WithLabelValues("cancel", "ok").Inc()
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.ID, "status": b.Status})
}

// PATCH /bookings/:id/status
func (h *Handler) UpdateStatus(c echo.Context) error {
	timer := prometheus.NewTimer(bookingOpDuration.WithLabelValues("update_status"))
	defer timer.ObserveDuration()

	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthenticated})
	}

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return badRequest(c, "status is required")
	}

	b, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("id"), actor, Status(req.Status), req.Reason)
	if err != nil {
		bookingOpsTotal.WithLabelValues("update_status", "error").Inc()
		return respondError(c, err)
	}
	bookingOpsTotal.WithLabelValues("update_status", "ok").Inc()
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.ID, "status": b.Status})
}

// POST /bookings/:id/payments
func (h *Handler) RecordPayment(c echo.Context) error {
	timer := prometheus.NewTimer(bookingOpDuration.WithLabelValues("record_payment"))
	defer timer.ObserveDuration()

	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthenticated})
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "amount is required")
	}

	b, err := h.svc.RecordPayment(c.Request().Context(), c.Param("id"), actor, req.Amount)
	if err != nil {
		bookingOpsTotal.WithLabelValues("record_payment", "error").Inc()
		return respondError(c, err)
	}
	bookingOpsTotal.WithLabelValues("record_payment", "ok").Inc()
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.ID, "paid_amount": b.PaidAmount, "status": b.Status})
}

// GET /bookings/:id
func (h *Handler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthenticated})
	}

	b, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if actor.Role != RoleAdmin && actor.ID != b.ClientID {
		owners, oerr := h.svc.store.SupplierOwnerIDs(c.Request().Context(), b.SupplierID)
		if oerr != nil || !contains(owners, actor.ID) {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "not a participant in this booking", "code": CodePermissionDenied})
		}
	}
	return c.JSON(http.StatusOK, b)
}

func actorFrom(c echo.Context) (Actor, error) {
	id, ok := c.Get("user_id").(string)
	if !ok || id == "" {
		return Actor{}, ErrNotFound
	}
	role, _ := c.Get("role").(string)
	r := ActorRole(role)
	switch r {
	case RoleClient, RoleSupplier, RoleAdmin:
	default:
		r = RoleClient
	}
	return Actor{ID: id, Role: r}, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error": msg, "code": CodeInvalidArgument, "message": msg})
}

// respondError maps service failures to the error taxonomy. Every failure
// carries a human-readable message distinct from the machine code; rate-limit
// failures additionally carry the retry hint.
func respondError(c echo.Context, err error) error {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":               "rate limited",
			"code":                CodeFailedPrecondition,
			"message":             "Too many booking attempts. Please try again shortly.",
			"retry_after_seconds": rl.RetryAfter,
			"window":              rl.Window,
		})
	}

	var te *TransitionError
	if errors.As(err, &te) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   te.Error(),
			"code":    CodeFailedPrecondition,
			"message": "This booking can no longer be changed that way.",
		})
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "booking not found", "code": CodeNotFound,
			"message": "We couldn't find that booking."})
	case errors.Is(err, ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "not allowed", "code": CodePermissionDenied,
			"message": "You don't have permission to act on this booking."})
	case errors.Is(err, ErrPaymentRequired):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "payment required", "code": CodeFailedPrecondition,
			"message": "A payment is required before this booking can be confirmed."})
	case errors.Is(err, ErrDateConflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "date conflict", "code": CodeAlreadyExists,
			"message": "The supplier already has a booking on that date."})
	case errors.Is(err, ErrSupplierIneligible):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": err.Error(), "code": CodeFailedPrecondition,
			"message": "This supplier can't accept bookings right now."})
	case errors.Is(err, ErrIdempotencyMismatch):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": "idempotency key reuse", "code": CodeInvalidArgument,
			"message": "This idempotency key was already used with a different request."})
	case errors.Is(err, ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(), "code": CodeInvalidArgument,
			"message": "The request is missing or has invalid fields."})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal error", "code": CodeInternal,
			"message": "Something went wrong on our side."})
	}
}
