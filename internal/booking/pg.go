package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed Store used in production.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const bookingColumns = `id, client_id, supplier_id, package_id, package_name, package_price,
	event_date, status, paid_amount, total_price, COALESCE(reason, ''),
	COALESCE(transitioned_by, ''), transitioned_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.ClientID, &b.SupplierID, &b.PackageID, &b.PackageName, &b.PackagePrice,
		&b.EventDate, &b.Status, &b.PaidAmount, &b.TotalPrice, &b.Reason,
		&b.TransitionedBy, &b.TransitionedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) Create(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bookings (id, client_id, supplier_id, package_id, package_name, package_price,
			event_date, status, paid_amount, total_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		b.ID, b.ClientID, b.SupplierID, b.PackageID, b.PackageName, b.PackagePrice,
		b.EventDate.Format("2006-01-02"), b.Status, b.PaidAmount, b.TotalPrice, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// The partial unique index on (supplier_id, event_date) backs the
		// one-active-booking-per-day invariant even when two creates race
		// past the read-side conflict check.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDateConflict
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *PGStore) ByID(ctx context.Context, id string) (*Booking, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) SupplierOwnerIDs(ctx context.Context, supplierID string) ([]string, error) {
	return supplierOwnerIDs(ctx, t.tx, supplierID)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func supplierOwnerIDs(ctx context.Context, q queryRower, supplierID string) ([]string, error) {
	var userID string
	var aliases []string
	err := q.QueryRow(ctx,
		`SELECT user_id, COALESCE(alias_ids, '{}') FROM supplier_profiles WHERE id = $1`,
		supplierID,
	).Scan(&userID, &aliases)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return append([]string{userID}, aliases...), nil
}

func (s *PGStore) Transition(ctx context.Context, id string, fn TransitionFunc) (*Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}

	write, err := fn(ctx, &pgTx{tx: tx}, b)
	if err != nil {
		return nil, err
	}
	if write {
		now := time.Now().UTC()
		b.UpdatedAt = now
		_, err = tx.Exec(ctx,
			`UPDATE bookings
			 SET status = $1, paid_amount = $2, reason = NULLIF($3, ''),
			     transitioned_by = NULLIF($4, ''), transitioned_at = $5, updated_at = $6
			 WHERE id = $7`,
			b.Status, b.PaidAmount, b.Reason, b.TransitionedBy, b.TransitionedAt, now, b.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("update booking: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return b, nil
}

func (s *PGStore) FindActiveDuplicate(ctx context.Context, clientID, supplierID, packageID string, day time.Time) (*Booking, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE client_id = $1 AND supplier_id = $2 AND package_id = $3
		   AND event_date = $4::date AND status IN ('pending','confirmed')
		 LIMIT 1`,
		clientID, supplierID, packageID, day.Format("2006-01-02"),
	)
	b, err := scanBooking(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}

func (s *PGStore) HasActiveOnDay(ctx context.Context, supplierID string, day time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE supplier_id = $1 AND event_date = $2::date AND status IN ('pending','confirmed')
		)`, supplierID, day.Format("2006-01-02"),
	).Scan(&exists)
	return exists, err
}

func (s *PGStore) Package(ctx context.Context, packageID string) (*PackageInfo, error) {
	var p PackageInfo
	err := s.pool.QueryRow(ctx,
		`SELECT id, supplier_id, name, price FROM packages WHERE id = $1`, packageID,
	).Scan(&p.ID, &p.SupplierID, &p.Name, &p.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) SupplierOwnerIDs(ctx context.Context, supplierID string) ([]string, error) {
	return supplierOwnerIDs(ctx, s.pool, supplierID)
}

func (s *PGStore) OverduePendingIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM bookings
		 WHERE status = 'pending' AND event_date < $1::date
		 ORDER BY event_date LIMIT $2`,
		before.Format("2006-01-02"), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PGStore) LookupIdempotencyKey(ctx context.Context, key string) (string, string, error) {
	var bookingID, requestHash string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(booking_id::text, ''), request_hash FROM idempotency_keys WHERE key = $1`,
		key,
	).Scan(&bookingID, &requestHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	return bookingID, requestHash, err
}

func (s *PGStore) SaveIdempotencyKey(ctx context.Context, key, requestHash, bookingID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, request_hash, booking_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO NOTHING`,
		key, requestHash, bookingID,
	)
	return err
}
