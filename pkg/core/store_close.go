package core

import "context"

// Close releases the storage handle. Waiting for every dispatch permit
// drains in-flight operations before the handle goes away, so Close is
// safe on every exit path. Operations after Close fail with
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Acquire all permits: blocks until in-flight calls finish.
	if err := s.sem.Acquire(context.Background(), int64(s.config.MaxInFlight)); err == nil {
		defer s.sem.Release(int64(s.config.MaxInFlight))
	}

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		if err != nil {
			return wrapError("close", err)
		}
	}

	s.logger.Info("store closed", "path", s.config.Path)
	return nil
}
