package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS application_state (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS observation_state_slot (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	machine_id  INTEGER NOT NULL,
	begin_at    TEXT NOT NULL,
	end_at      TEXT,
	production  INTEGER,
	UNIQUE (machine_id, begin_at)
);

CREATE INDEX IF NOT EXISTS observation_state_slot_machine_begin
	ON observation_state_slot (machine_id, begin_at);
`

// timeLayout is fixed width so that TEXT comparison orders instants.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements ports.FlagStore and ports.WindowStore in SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ ports.FlagStore   = (*Store)(nil)
	_ ports.WindowStore = (*Store)(nil)
)

// NewStore opens a SQLite database and runs migrations.
// dsn is a file path, or ":memory:" for a private in-memory database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(ports.FlagReader) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	return fn(flagTx{tx: tx})
}

// Update runs fn inside a transaction committed when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(ports.FlagWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(flagTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type flagTx struct {
	tx *sql.Tx
}

func (f flagTx) Lookup(ctx context.Context, key string) (*domain.Flag, error) {
	var (
		flag      = domain.Flag{Key: key}
		updatedAt string
	)
	err := f.tx.QueryRowContext(ctx,
		`SELECT value, updated_at FROM application_state WHERE key = ?`, key,
	).Scan(&flag.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFlagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select flag: %w", err)
	}
	if flag.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &flag, nil
}

func (f flagTx) List(ctx context.Context, prefix string) ([]domain.Flag, error) {
	rows, err := f.tx.QueryContext(ctx,
		`SELECT key, value, updated_at FROM application_state
		 WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Flag, 0)
	for rows.Next() {
		var (
			flag      domain.Flag
			updatedAt string
		)
		if err := rows.Scan(&flag.Key, &flag.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		if flag.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, flag)
	}
	return out, rows.Err()
}

func (f flagTx) Save(ctx context.Context, flag domain.Flag) error {
	_, err := f.tx.ExecContext(ctx,
		`INSERT INTO application_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		flag.Key, flag.Value, formatTime(flag.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save flag: %w", err)
	}
	return nil
}

func (f flagTx) Delete(ctx context.Context, key string) error {
	if _, err := f.tx.ExecContext(ctx, `DELETE FROM application_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete flag: %w", err)
	}
	return nil
}

// FindCovering returns the observation state slot of machineID covering at.
func (s *Store) FindCovering(ctx context.Context, machineID int, at time.Time) (*domain.ProductionWindow, error) {
	var (
		begin      string
		end        sql.NullString
		production sql.NullBool
	)
	ts := formatTime(at)
	err := s.db.QueryRowContext(ctx,
		`SELECT begin_at, end_at, production FROM observation_state_slot
		 WHERE machine_id = ? AND begin_at <= ? AND (end_at IS NULL OR end_at > ?)
		 ORDER BY begin_at DESC LIMIT 1`,
		machineID, ts, ts,
	).Scan(&begin, &end, &production)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWindowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select slot: %w", err)
	}

	w := &domain.ProductionWindow{MachineID: machineID}
	if w.Begin, err = parseTime(begin); err != nil {
		return nil, err
	}
	if end.Valid {
		if w.End, err = parseTime(end.String); err != nil {
			return nil, err
		}
	}
	if production.Valid {
		p := production.Bool
		w.Production = &p
	}
	return w, nil
}

// AddWindow inserts a slot and closes the open slot of the same machine at its begin.
func (s *Store) AddWindow(ctx context.Context, w domain.ProductionWindow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	begin := formatTime(w.Begin)
	if _, err := tx.ExecContext(ctx,
		`UPDATE observation_state_slot SET end_at = ?
		 WHERE machine_id = ? AND end_at IS NULL AND begin_at < ?`,
		begin, w.MachineID, begin,
	); err != nil {
		return fmt.Errorf("close open slot: %w", err)
	}

	var end, production any
	if !w.End.IsZero() {
		end = formatTime(w.End)
	}
	if w.Production != nil {
		production = *w.Production
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO observation_state_slot (machine_id, begin_at, end_at, production)
		 VALUES (?, ?, ?, ?)`,
		w.MachineID, begin, end, production,
	); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
