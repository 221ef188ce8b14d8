package mtclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newGateway(t *testing.T, probeErrCode string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.APIID == "" || req.APIHash == "" {
			writeGatewayError(w, http.StatusUnauthorized, "API_ID_INVALID")
			return
		}
		_ = json.NewEncoder(w).Encode(sessionResponse{SessionID: "s-1"})
	})
	mux.HandleFunc("POST /v1/sessions/s-1/me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/sessions/s-1/probe", func(w http.ResponseWriter, _ *http.Request) {
		if probeErrCode == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeGatewayError(w, http.StatusConflict, probeErrCode)
	})
	mux.HandleFunc("DELETE /v1/sessions/s-1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeGatewayError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: code})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := Config{BaseURL: baseURL, TimeoutSeconds: 5}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return NewClient(cfg)
}

func TestDialAndProbeLifecycle(t *testing.T) {
	srv := newGateway(t, "")
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	conn, err := c.Dial(ctx, Credentials{APIID: "1234567", APIHash: "aa"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.Me(ctx); err != nil {
		t.Fatalf("me: %v", err)
	}
	if err := conn.Probe(ctx, "+8801712345678"); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDialRejectedCredentials(t *testing.T) {
	srv := newGateway(t, "")
	c := newTestClient(t, srv.URL)

	_, err := c.Dial(context.Background(), Credentials{})
	if !errors.Is(err, ErrAPIIDInvalid) {
		t.Fatalf("err = %v, expected ErrAPIIDInvalid", err)
	}
}

func TestProbeErrorMapping(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"PHONE_NUMBER_OCCUPIED", ErrPhoneOccupied},
		{"PHONE_NUMBER_INVALID", ErrPhoneInvalid},
		{"PHONE_NUMBER_BANNED", ErrPhoneInvalid},
		{"AUTH_KEY_UNREGISTERED", ErrAuthRevoked},
		{"SESSION_REVOKED", ErrAuthRevoked},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := newGateway(t, tc.code)
			c := newTestClient(t, srv.URL)
			ctx := context.Background()

			conn, err := c.Dial(ctx, Credentials{APIID: "1234567", APIHash: "aa"})
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			err = conn.Probe(ctx, "+8801712345678")
			if !errors.Is(err, tc.want) {
				t.Fatalf("probe err = %v, expected %v", err, tc.want)
			}
		})
	}
}

func TestProbeFloodWait(t *testing.T) {
	srv := newGateway(t, "FLOOD_WAIT_42")
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	conn, err := c.Dial(ctx, Credentials{APIID: "1234567", APIHash: "aa"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.Probe(ctx, "+8801712345678")
	var flood *FloodWaitError
	if !errors.As(err, &flood) {
		t.Fatalf("probe err = %v, expected FloodWaitError", err)
	}
	if flood.RetryAfter != 42*time.Second {
		t.Fatalf("retry_after = %s, expected 42s", flood.RetryAfter)
	}
}

func TestUnknownGatewayErrorStaysGeneric(t *testing.T) {
	srv := newGateway(t, "INTERNAL_SERVER_ERROR")
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	conn, err := c.Dial(ctx, Credentials{APIID: "1234567", APIHash: "aa"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.Probe(ctx, "+8801712345678")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sentinel := range []error{ErrPhoneOccupied, ErrPhoneInvalid, ErrAuthRevoked, ErrAPIIDInvalid} {
		if errors.Is(err, sentinel) {
			t.Fatalf("unknown code mapped to %v", sentinel)
		}
	}
}

func TestMapRPCError(t *testing.T) {
	if err := mapRPCError("flood_wait_7", ""); err != nil {
		var flood *FloodWaitError
		if !errors.As(err, &flood) || flood.RetryAfter != 7*time.Second {
			t.Fatalf("lowercase flood code = %v", err)
		}
	}
	if !errors.Is(mapRPCError(" api_hash_invalid ", ""), ErrAPIIDInvalid) {
		t.Fatal("api_hash_invalid should map to ErrAPIIDInvalid")
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{BaseURL: " http://gw:1/ "}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.BaseURL != "http://gw:1" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Fatalf("timeout = %d, expected default 30", cfg.TimeoutSeconds)
	}

	empty := Config{}
	if err := empty.Normalize(); err == nil {
		t.Fatal("empty base url must be rejected")
	}
}
