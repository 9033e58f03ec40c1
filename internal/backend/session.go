package backend

import "github.com/google/uuid"

// Session is the per-episode step counter. One session belongs to exactly
// one generation episode; callers create a fresh one whenever they start
// without a prior cache and never share it across episodes.
type Session struct {
	id    uuid.UUID
	steps int
}

// NewSession starts a fresh episode with the counter at zero.
func NewSession() *Session {
	return &Session{id: uuid.New()}
}

// ID identifies the episode in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Steps returns the number of tokens already decoded in this episode.
// It moves in lock-step with the cache fill pointer.
func (s *Session) Steps() int {
	return s.steps
}

// Advance records that one more token has been decoded.
func (s *Session) Advance() {
	s.steps++
}
