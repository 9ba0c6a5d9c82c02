package reviews

import "time"

// Review is a client's rating of a completed booking.
type Review struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	ClientID   string    `json:"client_id"`
	SupplierID string    `json:"supplier_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewWithClient carries the reviewer's display name for listings.
type ReviewWithClient struct {
	Review
	ClientName string `json:"client_name"`
}

// SupplierRatingSummary aggregates a supplier's ratings.
type SupplierRatingSummary struct {
	SupplierID    string  `json:"supplier_id"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

// CreateReviewRequest is the payload for reviewing a booking.
type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
