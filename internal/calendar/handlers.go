package calendar

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/festivo-app/festivo/internal/db"
)

// onSupplierChanged is set at wiring time; a manual block changes the
// availability block in the supplier document.
var onSupplierChanged func(supplierID string)

func SetSupplierRebuildHook(fn func(supplierID string)) {
	onSupplierChanged = fn
}

func supplierIDForUser(c echo.Context) (string, error) {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return "", errors.New("unauthorized")
	}
	var id string
	err := db.Conn.QueryRow(c.Request().Context(),
		`SELECT id FROM supplier_profiles WHERE user_id = $1`, userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errors.New("supplier profile not found")
		}
		return "", err
	}
	return id, nil
}

// BlockDate marks a day as manually unavailable for the calling supplier.
func BlockDate(c echo.Context) error {
	supplierID, err := supplierIDForUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	var req struct {
		Day string `json:"day"` // YYYY-MM-DD
	}
	if err := c.Bind(&req); err != nil || req.Day == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day is required (YYYY-MM-DD)"})
	}
	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	// Idempotent: re-blocking an already blocked day is a no-op.
	_, err = db.Conn.Exec(c.Request().Context(),
		`INSERT INTO blocked_dates (supplier_id, day, source)
		 SELECT $1, $2, 'manual'
		 WHERE NOT EXISTS (
		   SELECT 1 FROM blocked_dates WHERE supplier_id = $1 AND day = $2 AND source = 'manual'
		 )`,
		supplierID, day,
	)
	if err != nil {
		log.Printf("[calendar] block day %s for supplier %s: %v", req.Day, supplierID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to block date"})
	}

	if onSupplierChanged != nil {
		onSupplierChanged(supplierID)
	}
	return c.JSON(http.StatusOK, echo.Map{"blocked": true, "day": req.Day})
}

// UnblockDate removes a manual block. Booking-sourced blocks are owned by the
// booking lifecycle and cannot be removed here.
func UnblockDate(c echo.Context) error {
	supplierID, err := supplierIDForUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	day, err := time.Parse("2006-01-02", c.Param("day"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
	}

	tag, err := db.Conn.Exec(c.Request().Context(),
		`DELETE FROM blocked_dates WHERE supplier_id = $1 AND day = $2 AND source = 'manual'`,
		supplierID, day,
	)
	if err != nil {
		log.Printf("[calendar] unblock day %s for supplier %s: %v", c.Param("day"), supplierID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to unblock date"})
	}

	if tag.RowsAffected() > 0 && onSupplierChanged != nil {
		onSupplierChanged(supplierID)
	}
	return c.JSON(http.StatusOK, echo.Map{"unblocked": tag.RowsAffected() > 0})
}

// ListBlockedDates returns the supplier's upcoming blocked days, both manual
// and booking-sourced.
func ListBlockedDates(c echo.Context) error {
	supplierID, err := supplierIDForUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT day, source, COALESCE(booking_id::text, '')
		 FROM blocked_dates
		 WHERE supplier_id = $1 AND day >= CURRENT_DATE
		 ORDER BY day`,
		supplierID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list blocked dates"})
	}
	defer rows.Close()

	type blockedDay struct {
		Day       string `json:"day"`
		Source    string `json:"source"`
		BookingID string `json:"booking_id,omitempty"`
	}
	var days []blockedDay
	for rows.Next() {
		var day time.Time
		var d blockedDay
		if err := rows.Scan(&day, &d.Source, &d.BookingID); err != nil {
			continue
		}
		d.Day = day.Format("2006-01-02")
		days = append(days, d)
	}

	return c.JSON(http.StatusOK, echo.Map{"blocked_dates": days})
}
