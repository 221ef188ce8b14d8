package checker

import (
	"context"
	"testing"
	"time"

	"github.com/evanlabs/checkerbot/mtclient"
)

// scriptedProber replays a sequence of outcomes per phone and records the
// order in which numbers were probed.
type scriptedProber struct {
	outcomes map[string][]ProbeOutcome
	probed   []string
}

func (p *scriptedProber) Probe(_ context.Context, _ mtclient.Credentials, phone string) ProbeOutcome {
	p.probed = append(p.probed, phone)
	queue := p.outcomes[phone]
	if len(queue) == 0 {
		return ProbeOutcome{Kind: OutcomeTransientError, Detail: "unscripted probe"}
	}
	out := queue[0]
	p.outcomes[phone] = queue[1:]
	return out
}

// recordedSleep captures sleep requests instead of waiting.
type recordedSleep struct {
	waits []time.Duration
	err   error
}

func (s *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func newTestBulk(p Prober, maxBatch int, delay time.Duration, sleep *recordedSleep) *BulkChecker {
	b := NewBulkChecker(p, testNormalizer(), maxBatch, delay)
	b.sleep = sleep.sleep
	return b
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCheckBatchOrderAndCounts(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345678": {{Kind: OutcomeRegistered}},
		"+8801812345678": {{Kind: OutcomeNotRegistered}},
	}}
	sleep := &recordedSleep{}
	b := newTestBulk(prober, 50, 1500*time.Millisecond, sleep)

	report := b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{
		"+8801712345678", "badtoken", "01812345678",
	})

	if report.Submitted != 3 || report.Truncated != 0 {
		t.Fatalf("submitted=%d truncated=%d", report.Submitted, report.Truncated)
	}
	if !equalStrings(report.Registered, []string{"+8801712345678"}) {
		t.Fatalf("registered = %v", report.Registered)
	}
	if !equalStrings(report.NotRegistered, []string{"+8801812345678"}) {
		t.Fatalf("not registered = %v", report.NotRegistered)
	}
	if !equalStrings(report.InvalidFormat, []string{"badtoken"}) {
		t.Fatalf("invalid format = %v, expected raw token preserved", report.InvalidFormat)
	}
	if report.Checked() != 2 {
		t.Fatalf("checked = %d", report.Checked())
	}
	if !equalStrings(prober.probed, []string{"+8801712345678", "+8801812345678"}) {
		t.Fatalf("probe order = %v", prober.probed)
	}
	// One inter-call delay after the first probe; the rejected token costs nothing.
	if len(sleep.waits) != 1 || sleep.waits[0] != 1500*time.Millisecond {
		t.Fatalf("sleeps = %v", sleep.waits)
	}
}

func TestCheckBatchTruncation(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345671": {{Kind: OutcomeNotRegistered}},
		"+8801712345672": {{Kind: OutcomeNotRegistered}},
	}}
	b := newTestBulk(prober, 2, 0, &recordedSleep{})

	report := b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{
		"+8801712345671", "+8801712345672", "+8801712345673", "+8801712345674",
	})

	if report.Submitted != 4 || report.Truncated != 2 {
		t.Fatalf("submitted=%d truncated=%d", report.Submitted, report.Truncated)
	}
	if len(prober.probed) != 2 {
		t.Fatalf("probed %d candidates, expected 2", len(prober.probed))
	}
	if report.Checked() != 2 {
		t.Fatalf("checked = %d", report.Checked())
	}
}

func TestCheckBatchRateLimitRetrySucceeds(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345678": {
			{Kind: OutcomeRateLimited, RetryAfter: 5 * time.Second},
			{Kind: OutcomeRegistered},
		},
	}}
	sleep := &recordedSleep{}
	b := newTestBulk(prober, 50, time.Second, sleep)

	report := b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{"+8801712345678"})

	if !equalStrings(report.Registered, []string{"+8801712345678"}) {
		t.Fatalf("registered = %v", report.Registered)
	}
	if len(prober.probed) != 2 {
		t.Fatalf("probe count = %d, expected retry", len(prober.probed))
	}
	// The backoff honors the larger of retry_after and the inter-call delay.
	if len(sleep.waits) != 1 || sleep.waits[0] != 5*time.Second {
		t.Fatalf("sleeps = %v", sleep.waits)
	}
}

func TestCheckBatchRateLimitRetryFloorsAtInterCallDelay(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345678": {
			{Kind: OutcomeRateLimited, RetryAfter: 100 * time.Millisecond},
			{Kind: OutcomeNotRegistered},
		},
	}}
	sleep := &recordedSleep{}
	b := newTestBulk(prober, 50, 2*time.Second, sleep)

	b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{"+8801712345678"})

	if len(sleep.waits) != 1 || sleep.waits[0] != 2*time.Second {
		t.Fatalf("sleeps = %v, expected floor at inter-call delay", sleep.waits)
	}
}

func TestCheckBatchRateLimitPersistsAfterRetry(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345678": {
			{Kind: OutcomeRateLimited, RetryAfter: time.Second},
			{Kind: OutcomeRateLimited, RetryAfter: time.Second},
		},
	}}
	b := newTestBulk(prober, 50, 0, &recordedSleep{})

	report := b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{"+8801712345678"})

	if len(prober.probed) != 2 {
		t.Fatalf("probe count = %d, expected exactly one retry", len(prober.probed))
	}
	if len(report.TransientFailures) != 1 {
		t.Fatalf("transient failures = %v", report.TransientFailures)
	}
	if report.TransientFailures[0].Phone != "+8801712345678" {
		t.Fatalf("failure phone = %s", report.TransientFailures[0].Phone)
	}
}

func TestCheckBatchCredentialsDeathAborts(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345671": {{Kind: OutcomeRegistered}},
		"+8801712345672": {{Kind: OutcomeCredentialsDead}},
		"+8801712345673": {{Kind: OutcomeRegistered}},
	}}
	b := newTestBulk(prober, 50, 0, &recordedSleep{})

	report := b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{
		"+8801712345671", "+8801712345672", "+8801712345673",
	})

	if !report.CredentialsInvalidated {
		t.Fatal("expected CredentialsInvalidated")
	}
	if !equalStrings(prober.probed, []string{"+8801712345671", "+8801712345672"}) {
		t.Fatalf("probed = %v, remainder must be skipped", prober.probed)
	}
	// Partial results before the death survive.
	if !equalStrings(report.Registered, []string{"+8801712345671"}) {
		t.Fatalf("registered = %v", report.Registered)
	}
}

func TestCheckBatchStopsWhenSleepCancelled(t *testing.T) {
	prober := &scriptedProber{outcomes: map[string][]ProbeOutcome{
		"+8801712345671": {{Kind: OutcomeNotRegistered}},
		"+8801712345672": {{Kind: OutcomeNotRegistered}},
	}}
	sleep := &recordedSleep{err: context.Canceled}
	b := newTestBulk(prober, 50, time.Second, sleep)

	report := b.CheckBatch(context.Background(), mtclient.Credentials{}, []string{
		"+8801712345671", "+8801712345672",
	})

	if len(prober.probed) != 1 {
		t.Fatalf("probed = %v, expected stop after cancelled sleep", prober.probed)
	}
	if report.Checked() != 1 {
		t.Fatalf("checked = %d", report.Checked())
	}
}
