package checker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/evanlabs/checkerbot/core/logger"
	"github.com/evanlabs/checkerbot/mtclient"
)

// ProbeRunner wraps one directory probe with outcome classification. Every
// call dials its own gateway session and releases it before returning; the
// directory API state is unreliable across probes under connection reuse.
type ProbeRunner struct {
	dialer mtclient.Dialer
}

// NewProbeRunner builds a runner over the given dialer.
func NewProbeRunner(dialer mtclient.Dialer) *ProbeRunner {
	return &ProbeRunner{dialer: dialer}
}

// Probe checks a single canonical number and classifies the result.
func (r *ProbeRunner) Probe(ctx context.Context, creds mtclient.Credentials, phone string) ProbeOutcome {
	conn, err := r.dialer.Dial(ctx, creds)
	if err != nil {
		out := classifyProbeError(err)
		logProbe(ctx, phone, out)
		return out
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Debug(ctx, "service.checker", "probe.close",
				slog.String("status", "fail"),
				slog.String("err", closeErr.Error()),
			)
		}
	}()

	out := classifyProbeError(conn.Probe(ctx, phone))
	logProbe(ctx, phone, out)
	return out
}

func classifyProbeError(err error) ProbeOutcome {
	if err == nil {
		return ProbeOutcome{Kind: OutcomeNotRegistered}
	}

	switch {
	case errors.Is(err, mtclient.ErrPhoneOccupied):
		return ProbeOutcome{Kind: OutcomeRegistered}
	case errors.Is(err, mtclient.ErrPhoneInvalid):
		return ProbeOutcome{Kind: OutcomeInvalidNumber}
	case errors.Is(err, mtclient.ErrAuthRevoked), errors.Is(err, mtclient.ErrAPIIDInvalid):
		return ProbeOutcome{Kind: OutcomeCredentialsDead}
	}

	var flood *mtclient.FloodWaitError
	if errors.As(err, &flood) {
		return ProbeOutcome{Kind: OutcomeRateLimited, RetryAfter: flood.RetryAfter}
	}

	return ProbeOutcome{Kind: OutcomeTransientError, Detail: err.Error()}
}

func logProbe(ctx context.Context, phone string, out ProbeOutcome) {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("phone", phone),
		slog.String("result", out.Kind.String()),
	}
	if out.RetryAfter > 0 {
		attrs = append(attrs, slog.Duration("retry_after", out.RetryAfter))
	}
	if out.Detail != "" {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(out.Detail, 256)))
	}
	logger.Debug(ctx, "service.checker", "probe.done", attrs...)
}
