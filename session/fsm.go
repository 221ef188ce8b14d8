package session

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/evanlabs/checkerbot/checker"
	"github.com/evanlabs/checkerbot/core/logger"
	"github.com/evanlabs/checkerbot/mtclient"
)

// Validator settles whether a credential pair can establish a session.
type Validator interface {
	Validate(ctx context.Context, creds mtclient.Credentials) checker.Verdict
}

// BatchRunner executes one rate-limited batch of candidates.
type BatchRunner interface {
	CheckBatch(ctx context.Context, creds mtclient.Credentials, candidates []string) *checker.BatchReport
}

// Config describes the accepted credential shapes.
type Config struct {
	IDMinDigits     int `yaml:"id_min_digits" envconfig:"SESSION_ID_MIN_DIGITS"`
	IDMaxDigits     int `yaml:"id_max_digits" envconfig:"SESSION_ID_MAX_DIGITS"`
	SecretHexLength int `yaml:"secret_hex_length" envconfig:"SESSION_SECRET_HEX_LENGTH"`
}

// NormalizeConfig validates shape settings and applies defaults.
func NormalizeConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil session config")
	}
	if cfg.IDMinDigits == 0 {
		cfg.IDMinDigits = 6
	}
	if cfg.IDMaxDigits == 0 {
		cfg.IDMaxDigits = 8
	}
	if cfg.SecretHexLength == 0 {
		cfg.SecretHexLength = 32
	}
	if cfg.IDMinDigits < 1 || cfg.IDMaxDigits < cfg.IDMinDigits {
		return fmt.Errorf("session id digit range %d-%d is invalid", cfg.IDMinDigits, cfg.IDMaxDigits)
	}
	if cfg.SecretHexLength < 1 {
		return fmt.Errorf("session.secret_hex_length must be >= 1")
	}
	return nil
}

// ProgressFunc lets the FSM announce long-running phases (validation, batch
// start) before they complete. A nil ProgressFunc is allowed.
type ProgressFunc func(Signal)

// FSM drives the per-user conversation state machine.
type FSM struct {
	store     *Store
	validator Validator
	batches   BatchRunner
	policy    checker.IndeterminatePolicy

	idRe     *regexp.Regexp
	secretRe *regexp.Regexp
}

// New builds the FSM. Config must already be normalized.
func New(store *Store, validator Validator, batches BatchRunner, cfg Config, policy checker.IndeterminatePolicy) *FSM {
	return &FSM{
		store:     store,
		validator: validator,
		batches:   batches,
		policy:    policy,
		idRe:      regexp.MustCompile(fmt.Sprintf(`^\d{%d,%d}$`, cfg.IDMinDigits, cfg.IDMaxDigits)),
		secretRe:  regexp.MustCompile(fmt.Sprintf(`^[a-f0-9]{%d}$`, cfg.SecretHexLength)),
	}
}

// HandleText routes one text payload to the handler for the user's current
// state. It holds the session exclusively for the whole operation, including
// validation calls and batch runs; a concurrent message from the same user
// gets SignalBusy.
func (f *FSM) HandleText(ctx context.Context, userID int64, text string, progress ProgressFunc) Signal {
	sess, release, ok := f.store.Acquire(userID)
	if !ok {
		return Signal{Kind: SignalBusy}
	}
	defer release()

	text = strings.TrimSpace(text)
	from := sess.State

	var sig Signal
	switch sess.State {
	case StateAwaitingSecret:
		sig = f.handleSecret(ctx, sess, text, progress)
	case StateReady:
		sig = f.handleBatch(ctx, sess, text, progress)
	default:
		sig = f.handleID(ctx, sess, text)
	}

	if sess.State != from {
		logger.Debug(ctx, "service.sessions", "fsm.transition",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.String("from_state", string(from)),
			slog.String("to_state", string(sess.State)),
		)
	}
	return sig
}

// Reset forces the session back to the first step, clearing credentials.
// A reset arriving while a batch is in flight yields SignalBusy rather than
// interrupting the batch.
func (f *FSM) Reset(ctx context.Context, userID int64) Signal {
	sess, release, ok := f.store.Acquire(userID)
	if !ok {
		return Signal{Kind: SignalBusy}
	}
	defer release()

	sess.reset()
	logger.Debug(ctx, "service.sessions", "fsm.reset",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return Signal{Kind: SignalPromptID, State: sess.State}
}

// ActiveSessions reports how many sessions exist.
func (f *FSM) ActiveSessions() int {
	return f.store.Count()
}

func (f *FSM) handleID(_ context.Context, sess *Session, text string) Signal {
	if !f.idRe.MatchString(text) {
		return Signal{Kind: SignalBadID, State: sess.State}
	}
	sess.APIID = text
	sess.State = StateAwaitingSecret
	return Signal{Kind: SignalIDAccepted, State: sess.State}
}

func (f *FSM) handleSecret(ctx context.Context, sess *Session, text string, progress ProgressFunc) Signal {
	secret := strings.ToLower(text)
	if !f.secretRe.MatchString(secret) {
		return Signal{Kind: SignalBadSecret, State: sess.State}
	}

	if progress != nil {
		progress(Signal{Kind: SignalValidating, State: sess.State})
	}

	verdict := f.policy.Resolve(f.validator.Validate(ctx, mtclient.Credentials{
		APIID:   sess.APIID,
		APIHash: secret,
	}))
	if verdict != checker.VerdictValid {
		sess.reset()
		return Signal{Kind: SignalCredentialsRejected, State: sess.State}
	}

	sess.APIHash = secret
	sess.Standing = StandingValid
	sess.State = StateReady
	return Signal{Kind: SignalCredentialsValid, State: sess.State}
}

func (f *FSM) handleBatch(ctx context.Context, sess *Session, text string, progress ProgressFunc) Signal {
	candidates := SplitCandidates(text)
	if len(candidates) == 0 {
		return Signal{Kind: SignalEmptyBatch, State: sess.State}
	}

	if progress != nil {
		progress(Signal{Kind: SignalChecking, State: sess.State, Count: len(candidates)})
	}

	report := f.batches.CheckBatch(ctx, mtclient.Credentials{APIID: sess.APIID, APIHash: sess.APIHash}, candidates)
	if report.CredentialsInvalidated {
		sess.reset()
		sess.Standing = StandingRejected
	}
	return Signal{Kind: SignalReport, State: sess.State, Report: report}
}

// SplitCandidates tokenizes a batch payload. Any run of commas, semicolons,
// pipes, or whitespace counts as a single separator.
func SplitCandidates(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
}
