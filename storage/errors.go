package storage

import "errors"

var (
	ErrNotFound      = errors.New("storage: register not found")
	ErrAlreadyExists = errors.New("storage: register already exists")
	ErrHashConflict  = errors.New("storage: content hash conflict")
	ErrCorrupt       = errors.New("storage: corrupt record")
	ErrInput         = errors.New("storage: invalid input")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
