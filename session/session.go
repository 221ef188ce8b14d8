// Package session owns the per-user conversation state machine that gates
// credential collection and batch submission.
package session

import "sync"

// State identifies the conversation step a user is in.
type State string

const (
	// StateAwaitingID means the bot expects the credential id next.
	StateAwaitingID State = "awaiting_id"
	// StateAwaitingSecret means the bot expects the credential secret next.
	StateAwaitingSecret State = "awaiting_secret"
	// StateReady means credentials are set and batches are accepted.
	StateReady State = "ready"
)

// CredentialStanding tracks what is known about the stored credentials.
type CredentialStanding int

const (
	// StandingUnknown means the credentials were never confirmed.
	StandingUnknown CredentialStanding = iota
	// StandingValid means the validator confirmed the credentials.
	StandingValid
	// StandingRejected means the credentials failed validation or died mid-batch.
	StandingRejected
)

// Session is the per-user conversation state. It is mutated only while its
// owner holds the handle returned by Store.Acquire.
type Session struct {
	UserID   int64
	State    State
	APIID    string
	APIHash  string
	Standing CredentialStanding

	mu sync.Mutex
}

// reset returns the session to the first step and clears credential fields.
func (s *Session) reset() {
	s.State = StateAwaitingID
	s.APIID = ""
	s.APIHash = ""
	s.Standing = StandingUnknown
}

func validState(st State) bool {
	switch st {
	case StateAwaitingID, StateAwaitingSecret, StateReady:
		return true
	}
	return false
}

// Store keeps one session per user id. Acquire hands out exclusive ownership
// for the duration of one operation so two concurrent updates from the same
// user can never interleave inside a session.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore constructs an empty in-memory store. Sessions live for the
// process lifetime; there is no expiry.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Acquire returns the user's session under an exclusive lock, creating it at
// the first step on first contact. ok is false when another operation for
// the same user is still in flight; the caller should signal busy rather
// than wait. A session found in an undocumented state is recovered to the
// first step, not treated as an error.
func (s *Store) Acquire(userID int64) (sess *Session, release func(), ok bool) {
	s.mu.Lock()
	sess, found := s.sessions[userID]
	if !found {
		sess = &Session{UserID: userID, State: StateAwaitingID}
		s.sessions[userID] = sess
	}
	s.mu.Unlock()

	if !sess.mu.TryLock() {
		return nil, nil, false
	}
	if !validState(sess.State) {
		sess.reset()
	}
	return sess, sess.mu.Unlock, true
}

// Count reports the number of sessions created so far.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
