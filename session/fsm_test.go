package session

import (
	"context"
	"testing"

	"github.com/evanlabs/checkerbot/checker"
	"github.com/evanlabs/checkerbot/mtclient"
)

type stubValidator struct {
	verdict checker.Verdict
	calls   int
	creds   mtclient.Credentials
}

func (v *stubValidator) Validate(_ context.Context, creds mtclient.Credentials) checker.Verdict {
	v.calls++
	v.creds = creds
	return v.verdict
}

type stubBatchRunner struct {
	report     *checker.BatchReport
	candidates []string
	creds      mtclient.Credentials
}

func (r *stubBatchRunner) CheckBatch(_ context.Context, creds mtclient.Credentials, candidates []string) *checker.BatchReport {
	r.creds = creds
	r.candidates = candidates
	if r.report == nil {
		return &checker.BatchReport{Submitted: len(candidates)}
	}
	return r.report
}

func newTestFSM(v Validator, b BatchRunner, policy checker.IndeterminatePolicy) *FSM {
	cfg := Config{}
	if err := NormalizeConfig(&cfg); err != nil {
		panic(err)
	}
	return New(NewStore(), v, b, cfg, policy)
}

// drive walks a session to the Ready state.
func drive(t *testing.T, f *FSM, userID int64) {
	t.Helper()
	ctx := context.Background()
	if sig := f.HandleText(ctx, userID, "1234567", nil); sig.Kind != SignalIDAccepted {
		t.Fatalf("id step signal = %d", sig.Kind)
	}
	sig := f.HandleText(ctx, userID, "0123456789abcdef0123456789abcdef", nil)
	if sig.Kind != SignalCredentialsValid {
		t.Fatalf("secret step signal = %d", sig.Kind)
	}
}

func TestHandleTextRejectsMalformedID(t *testing.T) {
	f := newTestFSM(&stubValidator{}, &stubBatchRunner{}, checker.PolicyOptimistic)
	ctx := context.Background()

	for _, bad := range []string{"123", "123456789", "12a4567", ""} {
		sig := f.HandleText(ctx, 1, bad, nil)
		if sig.Kind != SignalBadID {
			t.Fatalf("HandleText(%q) signal = %d, expected bad id", bad, sig.Kind)
		}
		if sig.State != StateAwaitingID {
			t.Fatalf("state = %s after bad id", sig.State)
		}
	}
}

func TestHandleTextAcceptsIDAndAdvances(t *testing.T) {
	f := newTestFSM(&stubValidator{}, &stubBatchRunner{}, checker.PolicyOptimistic)

	sig := f.HandleText(context.Background(), 1, "  1234567  ", nil)
	if sig.Kind != SignalIDAccepted {
		t.Fatalf("signal = %d", sig.Kind)
	}
	if sig.State != StateAwaitingSecret {
		t.Fatalf("state = %s, expected awaiting_secret", sig.State)
	}
}

func TestHandleTextRejectsMalformedSecret(t *testing.T) {
	v := &stubValidator{verdict: checker.VerdictValid}
	f := newTestFSM(v, &stubBatchRunner{}, checker.PolicyOptimistic)
	ctx := context.Background()

	f.HandleText(ctx, 1, "1234567", nil)
	for _, bad := range []string{"zzz", "0123456789abcdef", "0123456789ABCDEF0123456789abcdeg"} {
		sig := f.HandleText(ctx, 1, bad, nil)
		if sig.Kind != SignalBadSecret {
			t.Fatalf("HandleText(%q) signal = %d, expected bad secret", bad, sig.Kind)
		}
	}
	if v.calls != 0 {
		t.Fatalf("validator called %d times for malformed secrets", v.calls)
	}
}

func TestHandleTextUppercaseSecretIsNormalized(t *testing.T) {
	v := &stubValidator{verdict: checker.VerdictValid}
	f := newTestFSM(v, &stubBatchRunner{}, checker.PolicyOptimistic)
	ctx := context.Background()

	f.HandleText(ctx, 1, "1234567", nil)
	sig := f.HandleText(ctx, 1, "0123456789ABCDEF0123456789ABCDEF", nil)
	if sig.Kind != SignalCredentialsValid {
		t.Fatalf("signal = %d", sig.Kind)
	}
	if v.creds.APIHash != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("validator saw hash %q", v.creds.APIHash)
	}
}

func TestHandleTextCredentialsRejectedResets(t *testing.T) {
	f := newTestFSM(&stubValidator{verdict: checker.VerdictInvalid}, &stubBatchRunner{}, checker.PolicyOptimistic)
	ctx := context.Background()

	f.HandleText(ctx, 1, "1234567", nil)
	sig := f.HandleText(ctx, 1, "0123456789abcdef0123456789abcdef", nil)
	if sig.Kind != SignalCredentialsRejected {
		t.Fatalf("signal = %d", sig.Kind)
	}
	if sig.State != StateAwaitingID {
		t.Fatalf("state = %s, expected reset to awaiting_id", sig.State)
	}
	// The rejected id must not leak into the next attempt.
	if next := f.HandleText(ctx, 1, "1234567", nil); next.Kind != SignalIDAccepted {
		t.Fatalf("fresh id after reset signal = %d", next.Kind)
	}
}

func TestHandleTextIndeterminateVerdictFollowsPolicy(t *testing.T) {
	cases := []struct {
		policy checker.IndeterminatePolicy
		want   SignalKind
	}{
		{checker.PolicyOptimistic, SignalCredentialsValid},
		{checker.PolicyStrict, SignalCredentialsRejected},
	}
	for _, tc := range cases {
		f := newTestFSM(&stubValidator{verdict: checker.VerdictIndeterminate}, &stubBatchRunner{}, tc.policy)
		ctx := context.Background()
		f.HandleText(ctx, 1, "1234567", nil)
		sig := f.HandleText(ctx, 1, "0123456789abcdef0123456789abcdef", nil)
		if sig.Kind != tc.want {
			t.Fatalf("policy %s signal = %d, expected %d", tc.policy, sig.Kind, tc.want)
		}
	}
}

func TestHandleTextReadyRunsBatch(t *testing.T) {
	runner := &stubBatchRunner{report: &checker.BatchReport{
		Submitted:     2,
		Registered:    []string{"+8801712345678"},
		NotRegistered: []string{"+8801812345678"},
	}}
	f := newTestFSM(&stubValidator{verdict: checker.VerdictValid}, runner, checker.PolicyOptimistic)
	drive(t, f, 1)

	var progressed []SignalKind
	sig := f.HandleText(context.Background(), 1, "+8801712345678, +8801812345678", func(s Signal) {
		progressed = append(progressed, s.Kind)
	})

	if sig.Kind != SignalReport || sig.Report == nil {
		t.Fatalf("signal = %d, report = %v", sig.Kind, sig.Report)
	}
	if sig.State != StateReady {
		t.Fatalf("state = %s, expected ready after a clean batch", sig.State)
	}
	if len(runner.candidates) != 2 {
		t.Fatalf("runner candidates = %v", runner.candidates)
	}
	if runner.creds.APIID != "1234567" {
		t.Fatalf("runner creds = %+v", runner.creds)
	}
	if len(progressed) != 1 || progressed[0] != SignalChecking {
		t.Fatalf("progress signals = %v", progressed)
	}
}

func TestHandleTextEmptyBatch(t *testing.T) {
	runner := &stubBatchRunner{}
	f := newTestFSM(&stubValidator{verdict: checker.VerdictValid}, runner, checker.PolicyOptimistic)
	drive(t, f, 1)

	sig := f.HandleText(context.Background(), 1, " ,;| ", nil)
	if sig.Kind != SignalEmptyBatch {
		t.Fatalf("signal = %d", sig.Kind)
	}
	if runner.candidates != nil {
		t.Fatalf("runner was invoked with %v", runner.candidates)
	}
}

func TestHandleTextCredentialsDeathResetsSession(t *testing.T) {
	runner := &stubBatchRunner{report: &checker.BatchReport{
		Submitted:              2,
		Registered:             []string{"+8801712345678"},
		CredentialsInvalidated: true,
	}}
	f := newTestFSM(&stubValidator{verdict: checker.VerdictValid}, runner, checker.PolicyOptimistic)
	drive(t, f, 1)
	ctx := context.Background()

	sig := f.HandleText(ctx, 1, "+8801712345678 +8801812345678", nil)
	if sig.Kind != SignalReport {
		t.Fatalf("signal = %d", sig.Kind)
	}
	if sig.State != StateAwaitingID {
		t.Fatalf("state = %s, expected reset after credential death", sig.State)
	}
	if !sig.Report.CredentialsInvalidated {
		t.Fatal("report lost the invalidation flag")
	}
	// Next message starts credential collection over.
	if next := f.HandleText(ctx, 1, "1234567", nil); next.Kind != SignalIDAccepted {
		t.Fatalf("signal after death = %d", next.Kind)
	}
}

func TestHandleTextBusyWhileHeld(t *testing.T) {
	store := NewStore()
	cfg := Config{}
	if err := NormalizeConfig(&cfg); err != nil {
		t.Fatal(err)
	}
	f := New(store, &stubValidator{}, &stubBatchRunner{}, cfg, checker.PolicyOptimistic)

	_, release, ok := store.Acquire(1)
	if !ok {
		t.Fatal("first acquire failed")
	}
	defer release()

	if sig := f.HandleText(context.Background(), 1, "1234567", nil); sig.Kind != SignalBusy {
		t.Fatalf("signal = %d, expected busy", sig.Kind)
	}
	if sig := f.Reset(context.Background(), 1); sig.Kind != SignalBusy {
		t.Fatalf("reset signal = %d, expected busy", sig.Kind)
	}
}

func TestResetClearsCredentials(t *testing.T) {
	f := newTestFSM(&stubValidator{verdict: checker.VerdictValid}, &stubBatchRunner{}, checker.PolicyOptimistic)
	drive(t, f, 1)
	ctx := context.Background()

	sig := f.Reset(ctx, 1)
	if sig.Kind != SignalPromptID || sig.State != StateAwaitingID {
		t.Fatalf("reset signal = %d state = %s", sig.Kind, sig.State)
	}
	if next := f.HandleText(ctx, 1, "7654321", nil); next.Kind != SignalIDAccepted {
		t.Fatalf("signal after reset = %d", next.Kind)
	}
}

func TestSplitCandidates(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"a,b;c|d e\nf", []string{"a", "b", "c", "d", "e", "f"}},
		{" ,,;; ", nil},
		{"+8801712345678", []string{"+8801712345678"}},
		{"x,,,y", []string{"x", "y"}},
	}
	for _, tc := range cases {
		got := SplitCandidates(tc.raw)
		if len(got) != len(tc.want) {
			t.Fatalf("SplitCandidates(%q) = %v, expected %v", tc.raw, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitCandidates(%q)[%d] = %q, expected %q", tc.raw, i, got[i], tc.want[i])
			}
		}
	}
}

func TestActiveSessions(t *testing.T) {
	f := newTestFSM(&stubValidator{}, &stubBatchRunner{}, checker.PolicyOptimistic)
	ctx := context.Background()

	f.HandleText(ctx, 1, "1234567", nil)
	f.HandleText(ctx, 2, "1234567", nil)
	f.HandleText(ctx, 1, "garbage", nil)

	if got := f.ActiveSessions(); got != 2 {
		t.Fatalf("active sessions = %d, expected 2", got)
	}
}
