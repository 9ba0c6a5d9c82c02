package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const escrowColumns = `id, booking_id, status, amount, supplier_share, client_share,
	COALESCE(refunded_by, ''), COALESCE(reason, ''), service_completed_at, created_at, updated_at`

func scanEscrow(row pgx.Row) (*Escrow, error) {
	var e Escrow
	err := row.Scan(&e.ID, &e.BookingID, &e.Status, &e.Amount, &e.SupplierShare, &e.ClientShare,
		&e.RefundedBy, &e.Reason, &e.ServiceCompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PGStore) ActiveByBooking(ctx context.Context, bookingID string) (*Escrow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+escrowColumns+` FROM escrows
		 WHERE booking_id = $1 AND status NOT IN ('refunded','released')`, bookingID)
	e, err := scanEscrow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *PGStore) EnsureFunded(ctx context.Context, bookingID string, amount int64) (*Escrow, error) {
	// The partial unique index on active escrows makes this race-safe: the
	// second funder hits the conflict and keeps the existing record.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO escrows (booking_id, status, amount)
		 VALUES ($1, 'funded', $2)
		 ON CONFLICT (booking_id) WHERE status NOT IN ('refunded','released') DO UPDATE
		 SET amount = GREATEST(escrows.amount, EXCLUDED.amount), updated_at = NOW()`,
		bookingID, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure funded: %w", err)
	}
	return s.ActiveByBooking(ctx, bookingID)
}

func (s *PGStore) TransitionFrom(ctx context.Context, bookingID string, from []Status, to Status, refundedBy, reason string) (bool, error) {
	fromVals := make([]string, len(from))
	for i, f := range from {
		fromVals[i] = string(f)
	}
	completedAt := "service_completed_at"
	if to == StatusServiceCompleted {
		completedAt = "NOW()"
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE escrows
		 SET status = $1,
		     refunded_by = COALESCE(NULLIF($2, ''), refunded_by),
		     reason = COALESCE(NULLIF($3, ''), reason),
		     service_completed_at = `+completedAt+`,
		     updated_at = NOW()
		 WHERE booking_id = $4 AND status = ANY($5)`,
		to, refundedBy, reason, bookingID, fromVals,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) DueForRelease(ctx context.Context, cutoff time.Time) ([]*DueEscrow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.booking_id, b.client_id, b.supplier_id
		 FROM escrows e
		 JOIN bookings b ON b.id = e.booking_id
		 WHERE e.status = 'service_completed' AND e.service_completed_at <= $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DueEscrow
	for rows.Next() {
		var d DueEscrow
		if err := rows.Scan(&d.BookingID, &d.ClientID, &d.SupplierID); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
