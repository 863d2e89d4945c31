package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied on open. Statements are idempotent so reopening an
// existing database is safe.
//
// The partial unique index is the store-level guarantee behind idempotent
// materialization: two concurrent creates for the same
// (parent_ref, original_anchor) cannot both commit, and the loser surfaces
// a conflict instead of silently duplicating the row. Soft-deleted rows are
// excluded so a removed slot can be regenerated.
const schema = `
CREATE TABLE IF NOT EXISTS occurrences (
	id                   TEXT PRIMARY KEY,
	calendar_id          TEXT NOT NULL,
	parent_ref           TEXT NOT NULL DEFAULT '',
	original_anchor      TIMESTAMP,
	start_at             TIMESTAMP NOT NULL,
	end_at               TIMESTAMP NOT NULL,
	all_day              INTEGER NOT NULL DEFAULT 0,
	status               TEXT NOT NULL DEFAULT 'uncompleted',
	rule_json            TEXT,
	series_end           TIMESTAMP,
	customer_name        TEXT NOT NULL DEFAULT '',
	customer_phone       TEXT NOT NULL DEFAULT '',
	customer_email       TEXT NOT NULL DEFAULT '',
	contact_name         TEXT NOT NULL DEFAULT '',
	trailer_info         TEXT NOT NULL DEFAULT '',
	notes                TEXT NOT NULL DEFAULT '',
	reminder_weeks_prior INTEGER NOT NULL DEFAULT 0,
	reminder_completed   INTEGER NOT NULL DEFAULT 0,
	deleted_at           TIMESTAMP,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_occurrences_parent_anchor
	ON occurrences(parent_ref, original_anchor)
	WHERE parent_ref != '' AND deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_occurrences_parent
	ON occurrences(parent_ref);

CREATE INDEX IF NOT EXISTS idx_occurrences_calendar
	ON occurrences(calendar_id, start_at);
`

func migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: applying schema: %w", err)
	}
	return nil
}
