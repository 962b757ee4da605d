// Package sqlitestore implements the Store interface on a SQLite database.
// The canonical record bytes are the source of truth; the indexed columns
// (type, phase, owner) exist for queries and are derived from the record on
// every write.
package sqlitestore

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
	"registra.dev/registra/storage"
)

//go:embed schema.sql
var schemaSQL string

// Store persists registers in a single SQLite database file. Updates run
// the optimistic hash check inside the UPDATE statement itself, so two
// writers racing on the same register cannot both win.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlitestore: database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(reg *register.Register) error {
	record, err := storage.EncodeRecord(reg)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO registers (id, resource_type, phase, owner, content_hash, record, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reg.ID.String(), reg.ResourceType, string(reg.State.Phase),
		reg.Ownership.Owner.String(), reg.ContentHash.String(), record,
		reg.Temporal.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, reg.ID)
		}
		return err
	}
	return nil
}

func (s *Store) Get(id register.ID) (*register.Register, error) {
	if !id.Defined() {
		return nil, fmt.Errorf("%w: id is required", storage.ErrInput)
	}
	var record []byte
	err := s.db.QueryRow(`SELECT record FROM registers WHERE id = ?`, id.String()).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	reg, err := storage.DecodeRecord(record)
	if err != nil {
		return nil, err
	}
	if reg.ID != id {
		return nil, fmt.Errorf("%w: record holds %s, row keyed %s", storage.ErrCorrupt, reg.ID, id)
	}
	return reg, nil
}

func (s *Store) Update(reg *register.Register, expected content.Hash) error {
	record, err := storage.EncodeRecord(reg)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE registers
		 SET resource_type = ?, phase = ?, owner = ?, content_hash = ?, record = ?, updated_at = ?
		 WHERE id = ? AND content_hash = ?`,
		reg.ResourceType, string(reg.State.Phase), reg.Ownership.Owner.String(),
		reg.ContentHash.String(), record,
		reg.Temporal.UpdatedAt.UTC().Format(time.RFC3339Nano),
		reg.ID.String(), expected.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// The row was not touched: either the id is unknown or the stored hash
	// moved under the caller.
	var stored string
	err = s.db.QueryRow(`SELECT content_hash FROM registers WHERE id = ?`, reg.ID.String()).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, reg.ID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: register %s is at %s, caller expected %s",
		storage.ErrHashConflict, reg.ID, stored, expected)
}

func (s *Store) Has(id register.ID) bool {
	if !id.Defined() {
		return false
	}
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM registers WHERE id = ?`, id.String()).Scan(&one)
	return err == nil
}

// ListByType returns the ids of all registers of one resource type, sorted.
func (s *Store) ListByType(resourceType string) ([]register.ID, error) {
	rows, err := s.db.Query(
		`SELECT id FROM registers WHERE resource_type = ? ORDER BY id`, resourceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []register.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, register.ID(id))
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures by message; there is no
	// stable sentinel to compare against.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
