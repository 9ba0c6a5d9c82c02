package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema pieces the handlers rely on.
func Init(dsn string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureCoreTables()
	ensureBookingsSchema()
	ensureEscrowsTable()
	ensureViewTables()
	ensureIdempotencyTable()
	ensureNotificationsTable()
	ensureAuditTable()
}

// ensureCoreTables creates the source-entity tables the booking core reads.
func ensureCoreTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('client','supplier','admin')),
			photo_url TEXT NULL,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS supplier_profiles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			business_name TEXT NOT NULL,
			category TEXT NULL,
			lifecycle TEXT NOT NULL DEFAULT 'active' CHECK (lifecycle IN ('active','paused','suspended','deleted')),
			kyc_verified BOOLEAN DEFAULT FALSE,
			payout_ready BOOLEAN DEFAULT FALSE,
			alias_ids UUID[] DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS packages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			supplier_id UUID NOT NULL REFERENCES supplier_profiles(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			price BIGINT NOT NULL,
			status TEXT DEFAULT 'active',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			booking_id UUID NOT NULL,
			amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'succeeded',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS reviews (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			booking_id UUID NOT NULL,
			client_id UUID NOT NULL,
			supplier_id UUID NOT NULL,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment TEXT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (booking_id)
		);
		CREATE TABLE IF NOT EXISTS blocked_dates (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			supplier_id UUID NOT NULL,
			day DATE NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual' CHECK (source IN ('manual','booking')),
			booking_id UUID NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			booking_id UUID NOT NULL,
			sender_id UUID NOT NULL,
			recipient_id UUID NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			read_at TIMESTAMP WITH TIME ZONE NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages(recipient_id) WHERE read_at IS NULL;
		CREATE INDEX IF NOT EXISTS idx_blocked_dates_supplier_day ON blocked_dates(supplier_id, day);
	`)
	if err != nil {
		log.Printf("failed to ensure core tables: %v", err)
	}
}

// ensureBookingsSchema ensures the bookings table and a status constraint that
// matches the transition handlers.
func ensureBookingsSchema() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			client_id UUID NOT NULL,
			supplier_id UUID NOT NULL,
			package_id UUID NOT NULL,
			package_name TEXT NOT NULL,
			package_price BIGINT NOT NULL,
			event_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			paid_amount BIGINT NOT NULL DEFAULT 0,
			total_price BIGINT NOT NULL,
			reason TEXT NULL,
			transitioned_by TEXT NULL,
			transitioned_at TIMESTAMP WITH TIME ZONE NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_bookings_client_created ON bookings(client_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_bookings_supplier_date ON bookings(supplier_id, event_date);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_supplier_active_day
			ON bookings(supplier_id, event_date) WHERE status IN ('pending','confirmed');
	`)
	if err != nil {
		log.Printf("failed to ensure bookings table: %v", err)
	}

	// Replace any older status constraint with the canonical five-state set.
	_, _ = Conn.Exec(ctx, `ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_status_check`)
	_, err = Conn.Exec(ctx, `
		ALTER TABLE bookings
		ADD CONSTRAINT bookings_status_check
		CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled', 'expired'))`)
	if err != nil {
		log.Printf("failed to update bookings status constraint: %v", err)
	}
}

// ensureEscrowsTable creates the escrow ledger if not present.
func ensureEscrowsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS escrows (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			booking_id UUID NOT NULL,
			status TEXT NOT NULL DEFAULT 'funded'
				CHECK (status IN ('funded','service_completed','disputed','refunded','released')),
			amount BIGINT NOT NULL,
			supplier_share BIGINT NOT NULL DEFAULT 0,
			client_share BIGINT NOT NULL DEFAULT 0,
			refunded_by TEXT NULL,
			reason TEXT NULL,
			service_completed_at TIMESTAMP WITH TIME ZONE NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_escrows_booking_active
			ON escrows(booking_id) WHERE status NOT IN ('refunded','released');
	`)
	if err != nil {
		log.Printf("failed to create escrows table: %v", err)
	}
}

// ensureViewTables creates the per-actor denormalized view documents.
func ensureViewTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS client_views (
			client_id UUID PRIMARY KEY,
			doc JSONB NOT NULL,
			source_version INTEGER NOT NULL,
			reason TEXT NOT NULL,
			rebuilt_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS supplier_views (
			supplier_id UUID PRIMARY KEY,
			doc JSONB NOT NULL,
			source_version INTEGER NOT NULL,
			reason TEXT NOT NULL,
			rebuilt_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_client_views_rebuilt ON client_views(rebuilt_at);
		CREATE INDEX IF NOT EXISTS idx_supplier_views_rebuilt ON supplier_views(rebuilt_at);
	`)
	if err != nil {
		log.Printf("failed to create view tables: %v", err)
	}
}

// ensureIdempotencyTable creates the create-booking idempotency key table.
func ensureIdempotencyTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS idempotency_keys (
			key TEXT PRIMARY KEY,
			request_hash TEXT NOT NULL,
			booking_id UUID NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		log.Printf("failed to create idempotency_keys table: %v", err)
	}
}

// ensureNotificationsTable creates notifications table for in-app alerts.
func ensureNotificationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT,
			reference UUID NULL,
			metadata JSONB NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			read_at TIMESTAMP WITH TIME ZONE NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
	`)
	if err != nil {
		log.Printf("failed to create notifications table: %v", err)
	}
}

// ensureAuditTable creates the append-only audit log.
func ensureAuditTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			category TEXT NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			before JSONB NULL,
			after JSONB NULL,
			metadata JSONB NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_log(resource_id, created_at);
	`)
	if err != nil {
		log.Printf("failed to create audit_log table: %v", err)
	}
}
