package session

import "context"

// Store persists session payloads under opaque identifiers.
//
// Load returns the previously saved payload, or a fresh empty session when
// the identifier is unknown; not-found is not an error. A non-nil error
// always means the backing store itself failed, so callers can tell an
// outage apart from a missing session.
//
// Save upserts the payload. Saving the same payload twice yields the same
// stored state.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, sessionID string, s *Session) error
}
