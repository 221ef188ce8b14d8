package checker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evanlabs/checkerbot/mtclient"
)

// stubConn answers probes from a scripted error map.
type stubConn struct {
	me     error
	probes map[string]error
	closed bool
}

func (c *stubConn) Me(context.Context) error { return c.me }

func (c *stubConn) Probe(_ context.Context, phone string) error {
	return c.probes[phone]
}

func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

type stubDialer struct {
	dialErr error
	conn    *stubConn
	dials   int
}

func (d *stubDialer) Dial(context.Context, mtclient.Credentials) (mtclient.Conn, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.conn, nil
}

func TestProbeClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want OutcomeKind
	}{
		{"accepted means unoccupied", nil, OutcomeNotRegistered},
		{"occupied means registered", mtclient.ErrPhoneOccupied, OutcomeRegistered},
		{"invalid number", mtclient.ErrPhoneInvalid, OutcomeInvalidNumber},
		{"auth revoked", mtclient.ErrAuthRevoked, OutcomeCredentialsDead},
		{"api id invalid", mtclient.ErrAPIIDInvalid, OutcomeCredentialsDead},
		{"network failure", errors.New("connection reset"), OutcomeTransientError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := &stubConn{probes: map[string]error{"+8801712345678": tc.err}}
			runner := NewProbeRunner(&stubDialer{conn: conn})
			out := runner.Probe(context.Background(), mtclient.Credentials{}, "+8801712345678")
			if out.Kind != tc.want {
				t.Fatalf("outcome = %s, expected %s", out.Kind, tc.want)
			}
			if !conn.closed {
				t.Fatal("probe session was not released")
			}
		})
	}
}

func TestProbeFloodWaitCarriesRetryAfter(t *testing.T) {
	conn := &stubConn{probes: map[string]error{
		"+8801712345678": &mtclient.FloodWaitError{RetryAfter: 7 * time.Second},
	}}
	runner := NewProbeRunner(&stubDialer{conn: conn})
	out := runner.Probe(context.Background(), mtclient.Credentials{}, "+8801712345678")
	if out.Kind != OutcomeRateLimited {
		t.Fatalf("outcome = %s, expected %s", out.Kind, OutcomeRateLimited)
	}
	if out.RetryAfter != 7*time.Second {
		t.Fatalf("retry_after = %s, expected 7s", out.RetryAfter)
	}
}

func TestProbeDialFailure(t *testing.T) {
	runner := NewProbeRunner(&stubDialer{dialErr: mtclient.ErrAuthRevoked})
	out := runner.Probe(context.Background(), mtclient.Credentials{}, "+8801712345678")
	if out.Kind != OutcomeCredentialsDead {
		t.Fatalf("outcome = %s, expected %s", out.Kind, OutcomeCredentialsDead)
	}
}
