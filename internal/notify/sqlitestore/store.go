// Package sqlitestore keeps the notification log in a local SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"messmate/internal/notify"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Store implements notify.Store on SQLite.
type Store struct {
	db *sqlx.DB
}

var _ notify.Store = (*Store)(nil)

// Open opens (or creates) the database at path, enables WAL mode and
// applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	current := 0

	var tables int
	err := s.db.Get(&tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tables > 0 {
		if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

type row struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Body      string         `db:"body"`
	Icon      string         `db:"icon"`
	Image     string         `db:"image"`
	Badge     string         `db:"badge"`
	Tag       string         `db:"tag"`
	Data      sql.NullString `db:"data"`
	Actions   sql.NullString `db:"actions"`
	Timestamp int64          `db:"timestamp"`
	Category  string         `db:"category"`
	Priority  string         `db:"priority"`
	UserID    string         `db:"user_id"`
	Read      bool           `db:"read"`
}

func toRow(r *notify.Record) (row, error) {
	out := row{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Icon:      r.Icon,
		Image:     r.Image,
		Badge:     r.Badge,
		Tag:       r.Tag,
		Timestamp: r.Timestamp,
		Category:  string(r.Category),
		Priority:  string(r.Priority),
		UserID:    r.UserID,
		Read:      r.Read,
	}
	if r.Data != nil {
		out.Data = sql.NullString{String: string(r.Data), Valid: true}
	}
	if r.Actions != nil {
		b, err := json.Marshal(r.Actions)
		if err != nil {
			return row{}, fmt.Errorf("marshaling actions for %s: %w", r.ID, err)
		}
		out.Actions = sql.NullString{String: string(b), Valid: true}
	}
	return out, nil
}

func (r row) record() (notify.Record, error) {
	rec := notify.Record{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Icon:      r.Icon,
		Image:     r.Image,
		Badge:     r.Badge,
		Tag:       r.Tag,
		Timestamp: r.Timestamp,
		Category:  notify.Category(r.Category),
		Priority:  notify.Priority(r.Priority),
		UserID:    r.UserID,
		Read:      r.Read,
	}
	if r.Data.Valid {
		rec.Data = json.RawMessage(r.Data.String)
	}
	if r.Actions.Valid {
		if err := json.Unmarshal([]byte(r.Actions.String), &rec.Actions); err != nil {
			return notify.Record{}, fmt.Errorf("unmarshaling actions for %s: %w", r.ID, err)
		}
	}
	return rec, nil
}

// Put inserts or replaces the record with r.ID.
func (s *Store) Put(ctx context.Context, r *notify.Record) error {
	rw, err := toRow(r)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO notifications (
			id, title, body, icon, image, badge, tag,
			data, actions, timestamp, category, priority, user_id, read
		) VALUES (
			:id, :title, :body, :icon, :image, :badge, :tag,
			:data, :actions, :timestamp, :category, :priority, :user_id, :read
		)`, rw)
	if err != nil {
		return fmt.Errorf("upserting notification %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*notify.Record, error) {
	var rw row
	err := s.db.GetContext(ctx, &rw, "SELECT * FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	rec, err := rw.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record, newest first.
func (s *Store) List(ctx context.Context) ([]notify.Record, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM notifications ORDER BY timestamp DESC"); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	out := make([]notify.Record, 0, len(rows))
	for _, rw := range rows {
		rec, err := rw.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}
