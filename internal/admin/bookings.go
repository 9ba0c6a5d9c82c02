package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/festivo-app/festivo/internal/db"
)

type AdminBooking struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	SupplierID     string    `json:"supplier_id"`
	PackageID      string    `json:"package_id"`
	PackageName    string    `json:"package_name"`
	EventDate      time.Time `json:"event_date"`
	Status         string    `json:"status"`
	PaidAmount     int64     `json:"paid_amount"`
	TotalPrice     int64     `json:"total_price"`
	TransitionedBy string    `json:"transitioned_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GET /admin/bookings?status=&limit=
func ListBookings(c echo.Context) error {
	limit := 100
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	query := `SELECT id, client_id, supplier_id, package_id, package_name, event_date,
	                 status, paid_amount, total_price, COALESCE(transitioned_by, ''),
	                 created_at, updated_at
	          FROM bookings`
	args := []interface{}{}
	if status := c.QueryParam("status"); status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.Conn.Query(c.Request().Context(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch bookings"})
	}
	defer rows.Close()

	var list []AdminBooking
	for rows.Next() {
		var b AdminBooking
		if err := rows.Scan(&b.ID, &b.ClientID, &b.SupplierID, &b.PackageID, &b.PackageName,
			&b.EventDate, &b.Status, &b.PaidAmount, &b.TotalPrice, &b.TransitionedBy,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read booking record"})
		}
		list = append(list, b)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// GET /admin/audit?booking_id=
func ListAuditEntries(c echo.Context) error {
	bookingID := c.QueryParam("booking_id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT category, event_type, actor_id,
		        COALESCE(before::text, ''), COALESCE(after::text, ''), COALESCE(metadata::text, ''),
		        created_at
		 FROM audit_log
		 WHERE resource_id = $1
		 ORDER BY created_at`,
		bookingID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch audit log"})
	}
	defer rows.Close()

	type entry struct {
		Category  string    `json:"category"`
		EventType string    `json:"event_type"`
		ActorID   string    `json:"actor_id"`
		Before    string    `json:"before,omitempty"`
		After     string    `json:"after,omitempty"`
		Metadata  string    `json:"metadata,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.Category, &e.EventType, &e.ActorID, &e.Before, &e.After, &e.Metadata, &e.CreatedAt); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}
