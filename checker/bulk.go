package checker

import (
	"context"
	"log/slog"
	"time"

	"github.com/evanlabs/checkerbot/core/logger"
	"github.com/evanlabs/checkerbot/mtclient"
)

// TransientFailure records a candidate whose probe failed without settling
// the registration question.
type TransientFailure struct {
	Phone  string
	Detail string
}

// BatchReport aggregates one submitted batch. It is built once per batch and
// never mutated after CheckBatch returns.
type BatchReport struct {
	// Submitted counts candidates before truncation.
	Submitted int
	// Truncated counts candidates dropped by the batch-size cap.
	Truncated int

	Registered        []string
	NotRegistered     []string
	InvalidFormat     []string
	TransientFailures []TransientFailure

	// CredentialsInvalidated is set when a probe reported credential death;
	// the remainder of the batch was not processed.
	CredentialsInvalidated bool
}

// Checked counts candidates whose registration status was settled.
func (r *BatchReport) Checked() int {
	return len(r.Registered) + len(r.NotRegistered)
}

// Prober is the single-probe seam BulkChecker orchestrates over.
type Prober interface {
	Probe(ctx context.Context, creds mtclient.Credentials, phone string) ProbeOutcome
}

// SleepFunc suspends the calling operation for at least d, honoring ctx.
// Injected so the batch schedule is testable with virtual time.
type SleepFunc func(ctx context.Context, d time.Duration) error

// BulkChecker runs a batch of candidates through normalization and
// sequential rate-limited probes. Probes are deliberately serialized with an
// inter-call delay; the throttle keeps the directory's abuse detection quiet
// and must not be parallelized away.
type BulkChecker struct {
	prober     Prober
	normalizer *Normalizer

	maxBatchSize   int
	interCallDelay time.Duration

	sleep SleepFunc
}

// NewBulkChecker builds the orchestrator. maxBatchSize <= 0 disables the cap.
func NewBulkChecker(prober Prober, normalizer *Normalizer, maxBatchSize int, interCallDelay time.Duration) *BulkChecker {
	return &BulkChecker{
		prober:         prober,
		normalizer:     normalizer,
		maxBatchSize:   maxBatchSize,
		interCallDelay: interCallDelay,
		sleep:          sleepWithContext,
	}
}

// CheckBatch processes candidates strictly in input order and returns the
// aggregated report. A credential-death outcome aborts the remaining batch;
// everything else degrades to a report entry.
func (b *BulkChecker) CheckBatch(ctx context.Context, creds mtclient.Credentials, candidates []string) *BatchReport {
	report := &BatchReport{Submitted: len(candidates)}

	if b.maxBatchSize > 0 && len(candidates) > b.maxBatchSize {
		report.Truncated = len(candidates) - b.maxBatchSize
		candidates = candidates[:b.maxBatchSize]
	}

	start := time.Now()
	for i, raw := range candidates {
		phone, ok := b.normalizer.Normalize(raw)
		if !ok {
			report.InvalidFormat = append(report.InvalidFormat, raw)
			continue
		}

		out := b.prober.Probe(ctx, creds, phone)
		if out.Kind == OutcomeRateLimited {
			wait := out.RetryAfter
			if wait < b.interCallDelay {
				wait = b.interCallDelay
			}
			logger.Info(ctx, "service.checker", "batch.flood_wait",
				slog.String("status", "rate_limited"),
				slog.String("phone", phone),
				slog.Duration("retry_after", wait),
			)
			if err := b.sleep(ctx, wait); err != nil {
				report.TransientFailures = append(report.TransientFailures, TransientFailure{Phone: phone, Detail: err.Error()})
				b.logSummary(ctx, report, start)
				return report
			}
			out = b.prober.Probe(ctx, creds, phone)
			if out.Kind == OutcomeRateLimited {
				// Still throttled after one retry; do not loop.
				out = ProbeOutcome{Kind: OutcomeTransientError, Detail: "rate limited after retry"}
			}
		}

		switch out.Kind {
		case OutcomeRegistered:
			report.Registered = append(report.Registered, phone)
		case OutcomeNotRegistered:
			report.NotRegistered = append(report.NotRegistered, phone)
		case OutcomeInvalidNumber:
			report.InvalidFormat = append(report.InvalidFormat, phone)
		case OutcomeCredentialsDead:
			report.CredentialsInvalidated = true
			logger.Warn(ctx, "service.checker", "batch.credentials_dead",
				slog.String("status", "fail"),
				slog.String("phone", phone),
			)
			b.logSummary(ctx, report, start)
			return report
		case OutcomeTransientError:
			report.TransientFailures = append(report.TransientFailures, TransientFailure{Phone: phone, Detail: out.Detail})
		}

		if i < len(candidates)-1 {
			if err := b.sleep(ctx, b.interCallDelay); err != nil {
				b.logSummary(ctx, report, start)
				return report
			}
		}
	}

	b.logSummary(ctx, report, start)
	return report
}

func (b *BulkChecker) logSummary(ctx context.Context, report *BatchReport, start time.Time) {
	logger.Info(ctx, "service.checker", "batch.done",
		slog.String("status", "ok"),
		slog.Int("submitted", report.Submitted),
		slog.Int("truncated", report.Truncated),
		slog.Int("checked", report.Checked()),
		slog.Int("registered", len(report.Registered)),
		slog.Int("not_registered", len(report.NotRegistered)),
		slog.Int("invalid_format", len(report.InvalidFormat)),
		slog.Int("transient", len(report.TransientFailures)),
		slog.Duration("duration", logger.Took(start)),
	)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
