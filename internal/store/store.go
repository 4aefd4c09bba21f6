// Package store holds the data access functions behind every API route.
// Each exported method is one resource operation: it checks a connection out of the pool
// (via a context-scoped *gorm.DB), runs its statements, and hands the connection back on
// every exit path. Multi-statement writes run inside one transaction that rolls back on
// any error. Failures come back as *apperr.Error so the HTTP layer can map them uniformly.
package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
)

// Store wraps the pooled GORM handle.
type Store struct {
	db *gorm.DB
}

// New returns a Store using db for every operation.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// read runs fn against a request-scoped handle. A transient connection failure
// (the pool handed out a dead connection, or dialing failed) is retried once.
func (s *Store) read(ctx context.Context, fn func(db *gorm.DB) error) error {
	err := fn(s.db.WithContext(ctx))
	if isTransient(err) && ctx.Err() == nil {
		log.Warn().Err(err).Msg("transient database error, retrying once")
		err = fn(s.db.WithContext(ctx))
	}
	return err
}

// write runs fn inside a transaction: commit when fn returns nil, rollback otherwise.
// The retry rules are the same as read's; both transient cases guarantee the failed
// attempt never reached the server, so a replay cannot double-apply.
func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.read(ctx, func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

// isTransient reports whether err means the statement was never delivered.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// classify converts a raw GORM or driver error into the API's error taxonomy.
// conflictMsg is the client-facing message used when the write hit a unique or
// foreign-key constraint.
func classify(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Wrap(apperr.Conflict, conflictMsg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.Storage, "Request timed out", err)
	default:
		return apperr.StorageErr(err)
	}
}

// nonNil keeps empty results serialising as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
