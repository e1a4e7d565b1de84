// Package db is the Store (C2): transactional persistence for guilds, tags,
// equipment, locations, reservations, transfer requests, jobs, managed
// messages, the sent-reminder ledger, and the audit log. Compound
// operations are exposed as single-transaction methods; nothing above this
// package is allowed to see partial writes.
package db

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"lsbgear/logging"

	"gorm.io/gorm"
)

// Store wraps a GORM connection. All domain repo methods (repo_*.go in this
// package) hang off it.
type Store struct {
	DB *gorm.DB
}

func NewStore(conn *gorm.DB) *Store { return &Store{DB: conn} }

// maxTxAttempts/baseBackoff implement §4.2: bounded exponential backoff up
// to ~200ms, <=5 attempts, on transient write conflicts.
const (
	maxTxAttempts = 5
	baseBackoff   = 10 * time.Millisecond
	maxBackoff    = 200 * time.Millisecond
)

// Tx runs fn inside a serializable-equivalent write transaction
// (IMMEDIATE/EXCLUSIVE on SQLite; row locking + overlap query on Postgres),
// retrying on a transient conflict with bounded exponential backoff.
func (s *Store) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff) + 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter):
			}
		}

		err := s.DB.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !isTransientConflict(err) {
			return err
		}
		lastErr = err
		logging.Warnf("store: transient write conflict (attempt %d/%d): %v", attempt+1, maxTxAttempts, err)
	}
	return errors.New("store busy: " + lastErr.Error())
}

// isTransientConflict recognizes SQLite "database is locked"/"busy" and
// Postgres serialization-failure errors. Domain errors returned by fn
// (e.g. *errs.Domain) are never retried — only the underlying driver's
// conflict signal is.
func isTransientConflict(err error) bool {
	msg := err.Error()
	for _, needle := range []string{"database is locked", "SQLITE_BUSY", "could not serialize access", "deadlock detected"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
