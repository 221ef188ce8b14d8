package checker

import "time"

// OutcomeKind is the closed classification of a single probe call. Every
// signal the directory capability can produce maps onto exactly one kind;
// nothing downstream inspects error text.
type OutcomeKind int

const (
	// OutcomeRegistered means the number already has an account.
	OutcomeRegistered OutcomeKind = iota
	// OutcomeNotRegistered means the probe was accepted, so the number is free.
	OutcomeNotRegistered
	// OutcomeInvalidNumber means the directory rejected the number as malformed.
	OutcomeInvalidNumber
	// OutcomeRateLimited means the directory throttled the caller.
	OutcomeRateLimited
	// OutcomeCredentialsDead means the credentials no longer establish a session.
	OutcomeCredentialsDead
	// OutcomeTransientError covers timeouts and unexpected failures.
	OutcomeTransientError
)

// String returns the log-friendly name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRegistered:
		return "registered"
	case OutcomeNotRegistered:
		return "not_registered"
	case OutcomeInvalidNumber:
		return "invalid_number"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeCredentialsDead:
		return "credentials_dead"
	case OutcomeTransientError:
		return "transient_error"
	}
	return "unknown"
}

// ProbeOutcome is the tagged result of one probe. RetryAfter is meaningful
// only for OutcomeRateLimited, Detail only for OutcomeTransientError.
type ProbeOutcome struct {
	Kind       OutcomeKind
	RetryAfter time.Duration
	Detail     string
}
