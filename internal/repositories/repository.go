package repositories

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write matched no row because the record changed.
	ErrConflict = errors.New("record was modified concurrently")
)

// Store groups the repositories of one storage backend.
type Store interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository

	// WithinTx runs fn against a Store whose writes are committed together when fn returns nil
	// and discarded when it returns an error.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
