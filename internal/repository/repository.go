package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("record not found")

// Repository wraps the gorm handle shared by the processing ledger, the
// review queue and the job directory.
type Repository struct {
	db *gorm.DB
}

// New creates a Repository
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to an open transaction
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Transaction runs fn inside a database transaction. fn must only use the
// Repository and handle it is given.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB, repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, r.WithTx(tx))
	})
}

// DB exposes the underlying handle for health checks
func (r *Repository) DB() *gorm.DB {
	return r.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
