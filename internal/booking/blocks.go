package booking

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDateBlocks manages booking-held calendar days in the blocked_dates table.
// Manual supplier blocks use source 'manual' and are never touched here.
type PGDateBlocks struct {
	pool *pgxpool.Pool
}

func NewPGDateBlocks(pool *pgxpool.Pool) *PGDateBlocks {
	return &PGDateBlocks{pool: pool}
}

func (d *PGDateBlocks) Hold(ctx context.Context, supplierID string, day time.Time, bookingID string) error {
	// Re-running a hold for the same booking is a no-op.
	_, err := d.pool.Exec(ctx,
		`INSERT INTO blocked_dates (supplier_id, day, source, booking_id)
		 SELECT $1, $2::date, 'booking', $3
		 WHERE NOT EXISTS (
			SELECT 1 FROM blocked_dates WHERE booking_id = $3 AND source = 'booking'
		 )`,
		supplierID, day.Format("2006-01-02"), bookingID,
	)
	return err
}

func (d *PGDateBlocks) Release(ctx context.Context, bookingID string) error {
	_, err := d.pool.Exec(ctx,
		`DELETE FROM blocked_dates WHERE booking_id = $1 AND source = 'booking'`, bookingID)
	return err
}
