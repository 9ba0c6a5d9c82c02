package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/festivo-app/festivo/internal/booking"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrActorNotFound is returned when the actor behind a rebuild or read does
// not exist.
var ErrActorNotFound = errors.New("actor not found")

// PGSource reads source entities straight from Postgres.
type PGSource struct {
	pool *pgxpool.Pool
}

func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

func (s *PGSource) ClientProfile(ctx context.Context, clientID string) (*Profile, error) {
	var p Profile
	var photo *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, photo_url FROM users WHERE id = $1`, clientID,
	).Scan(&p.ID, &p.Name, &photo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}
	p.UserID = p.ID
	if photo != nil {
		p.PhotoURL = *photo
	}
	return &p, nil
}

func (s *PGSource) SupplierProfile(ctx context.Context, supplierID string) (*Profile, error) {
	var p Profile
	var photo *string
	err := s.pool.QueryRow(ctx,
		`SELECT sp.id, sp.user_id, sp.business_name, u.photo_url
		 FROM supplier_profiles sp JOIN users u ON u.id = sp.user_id
		 WHERE sp.id = $1`, supplierID,
	).Scan(&p.ID, &p.UserID, &p.Name, &photo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}
	if photo != nil {
		p.PhotoURL = *photo
	}
	return &p, nil
}

func (s *PGSource) SupplierIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM supplier_profiles WHERE user_id = $1`, userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrActorNotFound
		}
		return "", err
	}
	return id, nil
}

const bookingColumns = `id, client_id, supplier_id, package_id, package_name, package_price,
	event_date, status, paid_amount, total_price, COALESCE(reason, ''),
	COALESCE(transitioned_by, ''), transitioned_at, created_at, updated_at`

func (s *PGSource) bookingsBy(ctx context.Context, column, actorID string, limit int) ([]*booking.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+column+` = $1
		 ORDER BY created_at DESC, id LIMIT $2`, actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*booking.Booking
	for rows.Next() {
		var b booking.Booking
		err := rows.Scan(
			&b.ID, &b.ClientID, &b.SupplierID, &b.PackageID, &b.PackageName, &b.PackagePrice,
			&b.EventDate, &b.Status, &b.PaidAmount, &b.TotalPrice, &b.Reason,
			&b.TransitionedBy, &b.TransitionedAt, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (s *PGSource) BookingsByClient(ctx context.Context, clientID string, limit int) ([]*booking.Booking, error) {
	return s.bookingsBy(ctx, "client_id", clientID, limit)
}

func (s *PGSource) BookingsBySupplier(ctx context.Context, supplierID string, limit int) ([]*booking.Booking, error) {
	return s.bookingsBy(ctx, "supplier_id", supplierID, limit)
}

func (s *PGSource) ClientDisplay(ctx context.Context, clientID string) (Counterparty, error) {
	var cp Counterparty
	var photo *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, photo_url FROM users WHERE id = $1`, clientID,
	).Scan(&cp.ID, &cp.Name, &photo)
	if photo != nil {
		cp.PhotoURL = *photo
	}
	return cp, err
}

func (s *PGSource) SupplierDisplay(ctx context.Context, supplierID string) (Counterparty, error) {
	var cp Counterparty
	var photo *string
	err := s.pool.QueryRow(ctx,
		`SELECT sp.id, sp.business_name, u.photo_url
		 FROM supplier_profiles sp JOIN users u ON u.id = sp.user_id
		 WHERE sp.id = $1`, supplierID,
	).Scan(&cp.ID, &cp.Name, &photo)
	if photo != nil {
		cp.PhotoURL = *photo
	}
	return cp, err
}

func (s *PGSource) ReviewedBookings(ctx context.Context, bookingIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT booking_id FROM reviews WHERE booking_id = ANY($1)`, bookingIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *PGSource) UnreadMessageCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`, userID,
	).Scan(&n)
	return n, err
}

func (s *PGSource) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID,
	).Scan(&n)
	return n, err
}

func (s *PGSource) escrowHeld(ctx context.Context, column, actorID string) (int64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(e.amount), 0) FROM escrows e
		 JOIN bookings b ON b.id = e.booking_id
		 WHERE b.`+column+` = $1 AND e.status NOT IN ('refunded','released')`, actorID,
	).Scan(&sum)
	return sum, err
}

func (s *PGSource) EscrowHeldByClient(ctx context.Context, clientID string) (int64, error) {
	return s.escrowHeld(ctx, "client_id", clientID)
}

func (s *PGSource) EscrowHeldBySupplier(ctx context.Context, supplierID string) (int64, error) {
	return s.escrowHeld(ctx, "supplier_id", supplierID)
}

func (s *PGSource) BlockedDayCount(ctx context.Context, supplierID string, from time.Time, windowDays int) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT day) FROM blocked_dates
		 WHERE supplier_id = $1 AND source = 'manual'
		   AND day >= $2::date AND day < $2::date + $3`,
		supplierID, from.Format("2006-01-02"), windowDays,
	).Scan(&n)
	return n, err
}

func (s *PGSource) ReservedDayCount(ctx context.Context, supplierID string, from time.Time, windowDays int) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT event_date) FROM bookings
		 WHERE supplier_id = $1 AND status IN ('pending','confirmed')
		   AND event_date >= $2::date AND event_date < $2::date + $3`,
		supplierID, from.Format("2006-01-02"), windowDays,
	).Scan(&n)
	return n, err
}

func (s *PGSource) UnavailableDayCount(ctx context.Context, supplierID string, from time.Time, windowDays int) (int, error) {
	// UNION dedups, so a day that is both blocked and reserved counts once.
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM (
		   SELECT day FROM blocked_dates
		    WHERE supplier_id = $1 AND source = 'manual'
		      AND day >= $2::date AND day < $2::date + $3
		   UNION
		   SELECT event_date FROM bookings
		    WHERE supplier_id = $1 AND status IN ('pending','confirmed')
		      AND event_date >= $2::date AND event_date < $2::date + $3
		 ) days`,
		supplierID, from.Format("2006-01-02"), windowDays,
	).Scan(&n)
	return n, err
}

func (s *PGSource) SupplierRating(ctx context.Context, supplierID string) (Rating, error) {
	var r Rating
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(ROUND(AVG(rating)::numeric, 2), 0)
		 FROM reviews WHERE supplier_id = $1`, supplierID,
	).Scan(&r.Count, &r.Average)
	return r, err
}

// PGViewStore persists view documents as JSONB rows, replaced wholesale.
type PGViewStore struct {
	pool *pgxpool.Pool
}

func NewPGViewStore(pool *pgxpool.Pool) *PGViewStore {
	return &PGViewStore{pool: pool}
}

func (s *PGViewStore) SaveClientView(ctx context.Context, v *ClientView) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal client view: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO client_views (client_id, doc, source_version, reason, rebuilt_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (client_id) DO UPDATE
		 SET doc = EXCLUDED.doc, source_version = EXCLUDED.source_version,
		     reason = EXCLUDED.reason, rebuilt_at = EXCLUDED.rebuilt_at`,
		v.ClientID, doc, v.Meta.SourceVersion, v.Meta.Reason, v.Meta.RebuiltAt,
	)
	return err
}

func (s *PGViewStore) SaveSupplierView(ctx context.Context, v *SupplierView) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal supplier view: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO supplier_views (supplier_id, doc, source_version, reason, rebuilt_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (supplier_id) DO UPDATE
		 SET doc = EXCLUDED.doc, source_version = EXCLUDED.source_version,
		     reason = EXCLUDED.reason, rebuilt_at = EXCLUDED.rebuilt_at`,
		v.SupplierID, doc, v.Meta.SourceVersion, v.Meta.Reason, v.Meta.RebuiltAt,
	)
	return err
}

func (s *PGViewStore) GetClientView(ctx context.Context, clientID string) (*ClientView, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM client_views WHERE client_id = $1`, clientID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}
	var v ClientView
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PGViewStore) GetSupplierView(ctx context.Context, supplierID string) (*SupplierView, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM supplier_views WHERE supplier_id = $1`, supplierID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}
	var v SupplierView
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PGViewStore) ListActorIDs(ctx context.Context, kind string, afterID string, limit int) ([]string, error) {
	var query string
	switch kind {
	case "client":
		query = `SELECT id FROM users WHERE role = 'client' AND id > $1 ORDER BY id LIMIT $2`
	case "supplier":
		query = `SELECT id FROM supplier_profiles WHERE id > $1 ORDER BY id LIMIT $2`
	default:
		return nil, fmt.Errorf("unknown actor kind %q", kind)
	}
	if afterID == "" {
		afterID = "00000000-0000-0000-0000-000000000000"
	}
	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PGViewStore) StaleViews(ctx context.Context, cutoff time.Time, limit int) ([]StaleView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT client_id, 'client', rebuilt_at FROM client_views WHERE rebuilt_at < $1
		 UNION ALL
		 SELECT supplier_id, 'supplier', rebuilt_at FROM supplier_views WHERE rebuilt_at < $1
		 ORDER BY rebuilt_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaleView
	for rows.Next() {
		var sv StaleView
		if err := rows.Scan(&sv.ActorID, &sv.Kind, &sv.RebuiltAt); err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}
