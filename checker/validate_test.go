package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/evanlabs/checkerbot/mtclient"
)

func TestValidateVerdicts(t *testing.T) {
	cases := []struct {
		name    string
		dialErr error
		meErr   error
		want    Verdict
	}{
		{"session established", nil, nil, VerdictValid},
		{"api id rejected on dial", mtclient.ErrAPIIDInvalid, nil, VerdictInvalid},
		{"auth revoked on me", nil, mtclient.ErrAuthRevoked, VerdictInvalid},
		{"gateway unreachable", errors.New("dial tcp: refused"), nil, VerdictIndeterminate},
		{"unexpected me failure", nil, errors.New("internal"), VerdictIndeterminate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := &stubConn{me: tc.meErr}
			v := NewCredentialValidator(&stubDialer{dialErr: tc.dialErr, conn: conn})
			got := v.Validate(context.Background(), mtclient.Credentials{APIID: "1234567", APIHash: "aa"})
			if got != tc.want {
				t.Fatalf("verdict = %s, expected %s", got, tc.want)
			}
			if tc.dialErr == nil && !conn.closed {
				t.Fatal("validation session was not released")
			}
		})
	}
}

func TestIndeterminatePolicyResolve(t *testing.T) {
	if got := PolicyOptimistic.Resolve(VerdictIndeterminate); got != VerdictValid {
		t.Fatalf("optimistic resolve = %s, expected valid", got)
	}
	if got := PolicyStrict.Resolve(VerdictIndeterminate); got != VerdictInvalid {
		t.Fatalf("strict resolve = %s, expected invalid", got)
	}
	// Settled verdicts pass through untouched.
	if got := PolicyStrict.Resolve(VerdictValid); got != VerdictValid {
		t.Fatalf("strict resolve of valid = %s", got)
	}
	if got := PolicyOptimistic.Resolve(VerdictInvalid); got != VerdictInvalid {
		t.Fatalf("optimistic resolve of invalid = %s", got)
	}
}

func TestParseIndeterminatePolicy(t *testing.T) {
	cases := []struct {
		raw  string
		want IndeterminatePolicy
		ok   bool
	}{
		{"", PolicyOptimistic, true},
		{"optimistic", PolicyOptimistic, true},
		{" Strict ", PolicyStrict, true},
		{"lenient", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseIndeterminatePolicy(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseIndeterminatePolicy(%q) = %q, %v; expected %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
