package core

import (
	"context"
	"database/sql"
	"fmt"
)

// Do runs fn with one of the store's dispatch permits held. Every
// operation that touches storage goes through here: the weighted
// semaphore bounds how many calls are in flight, and the single-connection
// handle serializes the statements themselves. When all permits are taken
// callers queue (they are not rejected); cancelling ctx while queued
// abandons the wait.
//
// No cross-call transaction is held open. fn must be a complete statement
// or a short bounded sequence committed before it returns.
func (s *Store) Do(ctx context.Context, op string, fn func(context.Context, *sql.DB) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return wrapError(op, fmt.Errorf("%w: %v", ErrConnection, err))
	}
	defer s.sem.Release(1)

	s.mu.RLock()
	closed, db := s.closed, s.db
	s.mu.RUnlock()

	if closed {
		return wrapError(op, ErrStoreClosed)
	}
	if db == nil {
		if err := s.Init(ctx); err != nil {
			return err
		}
		s.mu.RLock()
		db = s.db
		s.mu.RUnlock()
	}

	return fn(ctx, db)
}
