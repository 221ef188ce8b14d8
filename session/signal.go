package session

import "github.com/evanlabs/checkerbot/checker"

// SignalKind enumerates the structured outcomes the FSM hands back to the
// transport layer. The core never formats user-facing prose; rendering these
// signals is the collaborator's job.
type SignalKind int

const (
	// SignalPromptID asks for the credential id (fresh or reset session).
	SignalPromptID SignalKind = iota
	// SignalBadID reports an id that fails the configured shape; state unchanged.
	SignalBadID
	// SignalIDAccepted confirms the id and asks for the secret.
	SignalIDAccepted
	// SignalBadSecret reports a secret that fails the configured shape; state unchanged.
	SignalBadSecret
	// SignalValidating is a progress notice emitted before the validation call.
	SignalValidating
	// SignalCredentialsValid confirms validation; batches are now accepted.
	SignalCredentialsValid
	// SignalCredentialsRejected reports definitive rejection; session reset.
	SignalCredentialsRejected
	// SignalChecking is a progress notice emitted when a batch starts.
	SignalChecking
	// SignalEmptyBatch reports a Ready-state payload with no candidate tokens.
	SignalEmptyBatch
	// SignalReport carries the finished batch report.
	SignalReport
	// SignalBusy reports that another operation for this user is in flight.
	SignalBusy
)

// Signal is the FSM's structured reply.
type Signal struct {
	Kind SignalKind
	// State is the session state after handling.
	State State
	// Count carries the candidate count for SignalChecking.
	Count int
	// Report is set for SignalReport.
	Report *checker.BatchReport
}
