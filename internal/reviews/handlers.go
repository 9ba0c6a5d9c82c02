package reviews

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/festivo-app/festivo/internal/db"
)

// onSupplierChanged is set at wiring time to the trigger scheduler's
// ActorChanged, since a new review changes the rating block in the supplier
// document. Nil means no rebuilds are scheduled (tests, tooling).
var onSupplierChanged func(supplierID string)

func SetSupplierRebuildHook(fn func(supplierID string)) {
	onSupplierChanged = fn
}

// CreateReview lets a client rate a completed booking, once.
func CreateReview(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	var req CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}
	if len(req.Comment) > 1000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comment too long (max 1000 characters)"})
	}

	ctx := c.Request().Context()

	var supplierID, status string
	err := db.Conn.QueryRow(ctx,
		`SELECT supplier_id, status FROM bookings WHERE id = $1 AND client_id = $2`,
		bookingID, clientID,
	).Scan(&supplierID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or not yours"})
		}
		log.Printf("[reviews] booking lookup %s: %v", bookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	if status != "completed" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":          "can only review completed bookings",
			"booking_status": status,
		})
	}

	reviewID := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO reviews (id, booking_id, client_id, supplier_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reviewID, bookingID, clientID, supplierID, req.Rating, req.Comment,
	)
	if err != nil {
		// UNIQUE (booking_id) rejects a second review for the same booking.
		return c.JSON(http.StatusConflict, echo.Map{"error": "review already exists for this booking"})
	}

	if onSupplierChanged != nil {
		onSupplierChanged(supplierID)
	}

	return c.JSON(http.StatusCreated, echo.Map{"review_id": reviewID})
}

// GetSupplierReviews lists a supplier's reviews with a rating summary.
func GetSupplierReviews(c echo.Context) error {
	supplierID := c.Param("id")
	if supplierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing supplier id"})
	}

	page := 1
	limit := 10
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 50 {
		limit = l
	}
	offset := (page - 1) * limit

	ctx := c.Request().Context()

	var summary SupplierRatingSummary
	summary.SupplierID = supplierID
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE supplier_id = $1`,
		supplierID,
	).Scan(&summary.TotalReviews, &summary.AverageRating)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rating summary"})
	}

	rows, err := db.Conn.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE supplier_id = $1 GROUP BY rating`,
		supplierID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rating breakdown"})
	}
	defer rows.Close()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			continue
		}
		switch rating {
		case 5:
			summary.RatingCounts.FiveStar = count
		case 4:
			summary.RatingCounts.FourStar = count
		case 3:
			summary.RatingCounts.ThreeStar = count
		case 2:
			summary.RatingCounts.TwoStar = count
		case 1:
			summary.RatingCounts.OneStar = count
		}
	}

	reviewRows, err := db.Conn.Query(ctx,
		`SELECT r.id, r.booking_id, r.client_id, u.name, r.supplier_id, r.rating,
		        COALESCE(r.comment, ''), r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.client_id
		 WHERE r.supplier_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2 OFFSET $3`,
		supplierID, limit, offset,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reviews"})
	}
	defer reviewRows.Close()

	var list []ReviewWithClient
	for reviewRows.Next() {
		var r ReviewWithClient
		if err := reviewRows.Scan(&r.ID, &r.BookingID, &r.ClientID, &r.ClientName,
			&r.SupplierID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			continue
		}
		list = append(list, r)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"summary": summary,
		"reviews": list,
		"pagination": echo.Map{
			"page":  page,
			"limit": limit,
			"total": summary.TotalReviews,
		},
	})
}

// GetBookingReview returns the review for one booking, visible to either party.
func GetBookingReview(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	bookingID := c.Param("id")
	ctx := c.Request().Context()

	var clientID, supplierID string
	err := db.Conn.QueryRow(ctx,
		`SELECT client_id, supplier_id FROM bookings WHERE id = $1`,
		bookingID,
	).Scan(&clientID, &supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}

	if userID != clientID {
		var ownerID string
		err = db.Conn.QueryRow(ctx,
			`SELECT user_id FROM supplier_profiles WHERE id = $1`, supplierID,
		).Scan(&ownerID)
		if err != nil || userID != ownerID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this booking"})
		}
	}

	var r ReviewWithClient
	err = db.Conn.QueryRow(ctx,
		`SELECT r.id, r.booking_id, r.client_id, u.name, r.supplier_id, r.rating,
		        COALESCE(r.comment, ''), r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.client_id
		 WHERE r.booking_id = $1`,
		bookingID,
	).Scan(&r.ID, &r.BookingID, &r.ClientID, &r.ClientName,
		&r.SupplierID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no review for this booking"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch review"})
	}

	return c.JSON(http.StatusOK, echo.Map{"review": r})
}
