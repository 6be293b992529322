package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createStudiosTable,
		createMembersTable,
		createSessionsTable,
		createBookingsTable,
		createDropInsTable,
		createBookingsSessionStatusIndex,
		createSessionsStartIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createStudiosTable = `
CREATE TABLE IF NOT EXISTS studios (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

// credits intentionally carries no CHECK (credits >= 0): with the "always"
// promotion debit policy a waitlisted member whose balance dropped to zero
// is still debited and may go negative. Non-negativity for every other path
// is enforced by conditional updates.
const createMembersTable = `
CREATE TABLE IF NOT EXISTS members (
    id SERIAL PRIMARY KEY,
    studio_id INTEGER NOT NULL REFERENCES studios(id),
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'member',
    credits INTEGER NOT NULL DEFAULT 0,
    unlimited BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    joined_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (role IN ('member', 'staff'))
);`

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS class_sessions (
    id SERIAL PRIMARY KEY,
    studio_id INTEGER NOT NULL REFERENCES studios(id),
    title VARCHAR(500) NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    capacity INTEGER NOT NULL,
    cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (capacity > 0)
);`

// One row per (session, member) pair, point blank: a cancelled booking is
// reused on rebook, never duplicated.
const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    session_id INTEGER NOT NULL REFERENCES class_sessions(id),
    member_id INTEGER NOT NULL REFERENCES members(id),
    status VARCHAR(20) NOT NULL,
    credit_deducted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(session_id, member_id),
    CHECK (status IN ('CONFIRMED', 'WAITLIST', 'CANCELLED'))
);`

const createDropInsTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS drop_ins (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    session_id INTEGER NOT NULL REFERENCES class_sessions(id),
    member_id INTEGER NOT NULL REFERENCES members(id),
    credit_deducted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(session_id, member_id)
);`

const createBookingsSessionStatusIndex = `
CREATE INDEX IF NOT EXISTS bookings_session_status_idx
ON bookings (session_id, status);`

const createSessionsStartIndex = `
CREATE INDEX IF NOT EXISTS class_sessions_starts_at_idx
ON class_sessions (starts_at);`
