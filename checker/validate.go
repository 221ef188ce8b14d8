package checker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/evanlabs/checkerbot/core/logger"
	"github.com/evanlabs/checkerbot/mtclient"
)

// Verdict is the tri-state result of validating a credential pair.
type Verdict int

const (
	// VerdictValid means a session was established with the credentials.
	VerdictValid Verdict = iota
	// VerdictInvalid means the directory definitively rejected the credentials.
	VerdictInvalid
	// VerdictIndeterminate covers network failures and unexpected responses.
	VerdictIndeterminate
)

// String returns the log-friendly name of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictInvalid:
		return "invalid"
	case VerdictIndeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// IndeterminatePolicy decides how an indeterminate verdict is resolved.
type IndeterminatePolicy string

const (
	// PolicyOptimistic lets the user proceed when validation could not settle.
	PolicyOptimistic IndeterminatePolicy = "optimistic"
	// PolicyStrict forces re-entry when validation could not settle.
	PolicyStrict IndeterminatePolicy = "strict"
)

// ParseIndeterminatePolicy normalizes a configured policy string.
func ParseIndeterminatePolicy(raw string) (IndeterminatePolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(PolicyOptimistic):
		return PolicyOptimistic, true
	case string(PolicyStrict):
		return PolicyStrict, true
	}
	return "", false
}

// Resolve collapses an indeterminate verdict according to the policy.
func (p IndeterminatePolicy) Resolve(v Verdict) Verdict {
	if v != VerdictIndeterminate {
		return v
	}
	if p == PolicyStrict {
		return VerdictInvalid
	}
	return VerdictValid
}

// CredentialValidator asks the directory whether a credential pair can
// establish a session.
type CredentialValidator struct {
	dialer mtclient.Dialer
}

// NewCredentialValidator builds a validator over the given dialer.
func NewCredentialValidator(dialer mtclient.Dialer) *CredentialValidator {
	return &CredentialValidator{dialer: dialer}
}

// Validate attempts a scoped session with the candidate credentials. The
// probing session is always released before returning.
func (v *CredentialValidator) Validate(ctx context.Context, creds mtclient.Credentials) Verdict {
	conn, err := v.dialer.Dial(ctx, creds)
	if err != nil {
		verdict := classifyValidationError(err)
		logValidation(ctx, verdict, err)
		return verdict
	}
	defer func() { _ = conn.Close() }()

	err = conn.Me(ctx)
	verdict := classifyValidationError(err)
	logValidation(ctx, verdict, err)
	return verdict
}

func classifyValidationError(err error) Verdict {
	switch {
	case err == nil:
		return VerdictValid
	case errors.Is(err, mtclient.ErrAuthRevoked), errors.Is(err, mtclient.ErrAPIIDInvalid):
		return VerdictInvalid
	default:
		return VerdictIndeterminate
	}
}

func logValidation(ctx context.Context, verdict Verdict, err error) {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("verdict", verdict.String()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Debug(ctx, "service.checker", "credentials.validate", attrs...)
}
