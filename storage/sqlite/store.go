// Package sqlite implements storage.Store on SQLite via sqlx.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/storage"
)

// Store implements storage.Store backed by a SQLite database.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the SQLite database at path (":memory:" works for
// tests), applies the schema, and returns the store. A nil logger discards.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// WAL for concurrent readers, busy timeout so parallel writers queue
	// instead of erroring.
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: connecting to %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const occurrenceColumns = `id, calendar_id, parent_ref, original_anchor, start_at, end_at,
	all_day, status, rule_json, series_end,
	customer_name, customer_phone, customer_email, contact_name, trailer_info, notes,
	reminder_weeks_prior, reminder_completed, deleted_at, created_at, updated_at`

func (s *Store) GetOccurrence(ctx context.Context, id string) (*storage.Occurrence, error) {
	var row occurrenceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+occurrenceColumns+` FROM occurrences WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "occurrence not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting occurrence %s: %w", id, err)
	}
	return row.toOccurrence()
}

func (s *Store) FindInstanceByAnchor(ctx context.Context, parentID string, anchor time.Time) (*storage.Occurrence, error) {
	var row occurrenceRow
	// A live row wins over a soft-deleted one when both exist for the slot.
	err := s.db.GetContext(ctx, &row,
		`SELECT `+occurrenceColumns+` FROM occurrences
		 WHERE parent_ref = ? AND original_anchor = ?
		 ORDER BY (deleted_at IS NULL) DESC LIMIT 1`,
		parentID, anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "no instance with that anchor"}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding instance of %s: %w", parentID, err)
	}
	return row.toOccurrence()
}

func (s *Store) ListInstances(ctx context.Context, parentID string, opts storage.ListOptions) ([]*storage.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE parent_ref = ?`
	args := []any{parentID}

	if !opts.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if opts.AnchorFrom != nil {
		query += ` AND date(original_anchor) >= date(?)`
		args = append(args, *opts.AnchorFrom)
	}
	if len(opts.ExcludeStatuses) > 0 {
		in, inArgs, err := sqlx.In(` AND status NOT IN (?)`, opts.ExcludeStatuses)
		if err != nil {
			return nil, fmt.Errorf("sqlite: building status filter: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += ` ORDER BY original_anchor ASC`

	var rows []occurrenceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing instances of %s: %w", parentID, err)
	}

	out := make([]*storage.Occurrence, 0, len(rows))
	for _, row := range rows {
		occ, err := row.toOccurrence()
		if err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	return out, nil
}

// InTx runs fn inside one SQLite transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) CreateOccurrence(ctx context.Context, occ *storage.Occurrence) error {
	row, err := toRow(occ)
	if err != nil {
		return err
	}
	_, err = t.tx.NamedExecContext(ctx,
		`INSERT INTO occurrences (`+occurrenceColumns+`) VALUES
		 (:id, :calendar_id, :parent_ref, :original_anchor, :start_at, :end_at,
		  :all_day, :status, :rule_json, :series_end,
		  :customer_name, :customer_phone, :customer_email, :contact_name, :trailer_info, :notes,
		  :reminder_weeks_prior, :reminder_completed, :deleted_at, :created_at, :updated_at)`,
		row)
	if isUniqueViolation(err) {
		return &storage.Error{
			Type:    storage.ErrConflict,
			Message: "instance with that anchor already exists",
			Err:     err,
		}
	}
	if err != nil {
		return fmt.Errorf("sqlite: creating occurrence %s: %w", occ.ID, err)
	}
	return nil
}

func (t *sqlTx) UpdateOccurrence(ctx context.Context, occ *storage.Occurrence) error {
	row, err := toRow(occ)
	if err != nil {
		return err
	}
	res, err := t.tx.NamedExecContext(ctx,
		`UPDATE occurrences SET
			calendar_id = :calendar_id, parent_ref = :parent_ref,
			original_anchor = :original_anchor, start_at = :start_at, end_at = :end_at,
			all_day = :all_day, status = :status, rule_json = :rule_json,
			series_end = :series_end,
			customer_name = :customer_name, customer_phone = :customer_phone,
			customer_email = :customer_email, contact_name = :contact_name,
			trailer_info = :trailer_info, notes = :notes,
			reminder_weeks_prior = :reminder_weeks_prior,
			reminder_completed = :reminder_completed,
			deleted_at = :deleted_at, updated_at = :updated_at
		 WHERE id = :id`,
		row)
	if err != nil {
		return fmt.Errorf("sqlite: updating occurrence %s: %w", occ.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "occurrence not found"}
	}
	return nil
}

func (t *sqlTx) SoftDeleteOccurrence(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE occurrences SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: soft-deleting occurrence %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already deleted rows are fine; missing rows are not.
		var exists int
		if err := t.tx.GetContext(ctx, &exists,
			`SELECT COUNT(1) FROM occurrences WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: checking occurrence %s: %w", id, err)
		}
		if exists == 0 {
			return &storage.Error{Type: storage.ErrNotFound, Message: "occurrence not found"}
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// occurrenceRow is the flat sqlx mapping of an Occurrence.
type occurrenceRow struct {
	ID             string         `db:"id"`
	CalendarID     string         `db:"calendar_id"`
	ParentRef      string         `db:"parent_ref"`
	OriginalAnchor sql.NullTime   `db:"original_anchor"`
	StartAt        time.Time      `db:"start_at"`
	EndAt          time.Time      `db:"end_at"`
	AllDay         bool           `db:"all_day"`
	Status         string         `db:"status"`
	RuleJSON       sql.NullString `db:"rule_json"`
	SeriesEnd      sql.NullTime   `db:"series_end"`

	storage.Snapshot

	DeletedAt sql.NullTime `db:"deleted_at"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func toRow(occ *storage.Occurrence) (*occurrenceRow, error) {
	row := &occurrenceRow{
		ID:         occ.ID,
		CalendarID: occ.CalendarID,
		ParentRef:  occ.ParentID,
		StartAt:    occ.Start,
		EndAt:      occ.End,
		AllDay:     occ.AllDay,
		Status:     string(occ.Status),
		Snapshot:   occ.Snapshot,
		CreatedAt:  occ.Created,
		UpdatedAt:  occ.Modified,
	}
	if !occ.OriginalAnchor.IsZero() {
		row.OriginalAnchor = sql.NullTime{Time: occ.OriginalAnchor, Valid: true}
	}
	if occ.SeriesEndOverride != nil {
		row.SeriesEnd = sql.NullTime{Time: *occ.SeriesEndOverride, Valid: true}
	}
	if occ.DeletedAt != nil {
		row.DeletedAt = sql.NullTime{Time: *occ.DeletedAt, Valid: true}
	}
	if occ.Rule != nil {
		data, err := json.Marshal(occ.Rule)
		if err != nil {
			return nil, fmt.Errorf("sqlite: encoding rule for %s: %w", occ.ID, err)
		}
		row.RuleJSON = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func (r *occurrenceRow) toOccurrence() (*storage.Occurrence, error) {
	occ := &storage.Occurrence{
		ID:         r.ID,
		CalendarID: r.CalendarID,
		ParentID:   r.ParentRef,
		Start:      r.StartAt,
		End:        r.EndAt,
		AllDay:     r.AllDay,
		Status:     storage.Status(r.Status),
		Snapshot:   r.Snapshot,
		Created:    r.CreatedAt,
		Modified:   r.UpdatedAt,
	}
	if r.OriginalAnchor.Valid {
		occ.OriginalAnchor = r.OriginalAnchor.Time
	}
	if r.SeriesEnd.Valid {
		end := r.SeriesEnd.Time
		occ.SeriesEndOverride = &end
	}
	if r.DeletedAt.Valid {
		at := r.DeletedAt.Time
		occ.DeletedAt = &at
	}
	if r.RuleJSON.Valid {
		var rule recurrence.Rule
		if err := json.Unmarshal([]byte(r.RuleJSON.String), &rule); err != nil {
			return nil, fmt.Errorf("sqlite: decoding rule for %s: %w", r.ID, err)
		}
		occ.Rule = &rule
	}
	return occ, nil
}
