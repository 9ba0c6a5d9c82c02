package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/festivo-app/festivo/internal/db"
)

// GET /admin/stats
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	var users, suppliers, bookings, escrows, reviews int

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM supplier_profiles`).Scan(&suppliers)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&bookings)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM escrows`).Scan(&escrows)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&reviews)

	byStatus := echo.Map{}
	rows, err := db.Conn.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err == nil {
				byStatus[status] = count
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":              users,
		"suppliers":          suppliers,
		"bookings":           bookings,
		"bookings_by_status": byStatus,
		"escrows":            escrows,
		"reviews":            reviews,
	})
}
