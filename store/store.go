// store.go - Persistence for users, tasks and refresh tokens (gorm)

package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("store: record not found")
	ErrEmailTaken = errors.New("store: email already in use")
)

// Store wraps the shared connection pool. It is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrEmailTaken
	default:
		return err
	}
}
