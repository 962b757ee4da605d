package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
	"registra.dev/registra/storage"
)

// Store is a local filesystem-backed register store.
//
// Each register lives in its own file, keyed strictly by id. Writes go
// through a temp file, fsync and rename, so a crash leaves either the old
// record or the new one, never a torn file. The store is offline and
// deterministic: it never uses the network and never depends on wall-clock
// time.
type Store struct {
	root string
}

var _ storage.Store = (*Store)(nil)

// New constructs a filesystem store rooted at root. The directory will be
// created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(reg *register.Register) error {
	if reg == nil || !reg.ID.Defined() {
		return fmt.Errorf("%w: register with id is required", storage.ErrInput)
	}
	path := s.pathFor(reg.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, reg.ID)
	}
	return s.write(reg, path)
}

func (s *Store) Get(id register.ID) (*register.Register, error) {
	if !id.Defined() {
		return nil, fmt.Errorf("%w: id is required", storage.ErrInput)
	}
	b, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, err
	}
	reg, err := storage.DecodeRecord(b)
	if err != nil {
		return nil, err
	}
	if reg.ID != id {
		return nil, fmt.Errorf("%w: record holds %s, file keyed %s", storage.ErrCorrupt, reg.ID, id)
	}
	return reg, nil
}

func (s *Store) Update(reg *register.Register, expected content.Hash) error {
	if reg == nil || !reg.ID.Defined() {
		return fmt.Errorf("%w: register with id is required", storage.ErrInput)
	}
	stored, err := s.Get(reg.ID)
	if err != nil {
		return err
	}
	if stored.ContentHash != expected {
		return fmt.Errorf("%w: register %s is at %s, caller expected %s",
			storage.ErrHashConflict, reg.ID, stored.ContentHash, expected)
	}
	return s.write(reg, s.pathFor(reg.ID))
}

func (s *Store) Has(id register.ID) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

func (s *Store) write(reg *register.Register, path string) error {
	record, err := storage.EncodeRecord(reg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".reg-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(record); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *Store) pathFor(id register.ID) string {
	name := fmt.Sprintf("%x", []byte(id))
	if len(name) < 2 {
		return filepath.Join(s.root, name)
	}
	return filepath.Join(s.root, name[:2], name)
}
