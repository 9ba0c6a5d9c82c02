package eligibility

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Result is the oracle's verdict plus the reasons a supplier is not bookable.
type Result struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Oracle is the single source of truth for "can this supplier be booked".
// Every booking-creation path must consult it; nothing else re-derives these
// rules.
type Oracle interface {
	IsSupplierBookable(ctx context.Context, supplierID string, date time.Time) (Result, error)
}

// PGOracle checks supplier lifecycle, compliance flags and manual date blocks
// straight from the store.
type PGOracle struct {
	pool *pgxpool.Pool
}

func NewPGOracle(pool *pgxpool.Pool) *PGOracle {
	return &PGOracle{pool: pool}
}

func (o *PGOracle) IsSupplierBookable(ctx context.Context, supplierID string, date time.Time) (Result, error) {
	var lifecycle string
	var kycVerified, payoutReady bool
	err := o.pool.QueryRow(ctx,
		`SELECT lifecycle, kyc_verified, payout_ready FROM supplier_profiles WHERE id = $1`,
		supplierID,
	).Scan(&lifecycle, &kycVerified, &payoutReady)
	if err != nil {
		return Result{Reasons: []string{"supplier not found"}}, nil
	}

	var reasons []string
	if lifecycle != "active" {
		reasons = append(reasons, "supplier lifecycle is "+lifecycle)
	}
	if !kycVerified {
		reasons = append(reasons, "kyc not verified")
	}
	if !payoutReady {
		reasons = append(reasons, "payout account not ready")
	}

	var blocked bool
	err = o.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM blocked_dates
			WHERE supplier_id = $1 AND day = $2::date AND source = 'manual'
		)`, supplierID, date.UTC().Format("2006-01-02"),
	).Scan(&blocked)
	if err == nil && blocked {
		reasons = append(reasons, "date is blocked by supplier")
	}

	return Result{Eligible: len(reasons) == 0, Reasons: reasons}, nil
}
