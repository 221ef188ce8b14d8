// Package mtclient talks to a local MTProto gateway sidecar that performs the
// actual account-directory operations. The bot never speaks MTProto itself;
// it opens one short-lived gateway session per operation and tears it down
// before returning, because the directory API misbehaves under casual
// connection reuse.
package mtclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Credentials identify a user-supplied application on the directory service.
type Credentials struct {
	APIID   string
	APIHash string
}

// Conn is a single authorized gateway session scoped to one operation.
type Conn interface {
	// Me verifies that a session can be established with the credentials.
	Me(ctx context.Context) error
	// Probe attempts the registration side channel for the given number.
	// It returns nil when the operation was accepted (number unoccupied),
	// ErrPhoneOccupied when the number is already in use, ErrPhoneInvalid
	// for malformed numbers, and FloodWaitError when throttled.
	Probe(ctx context.Context, phone string) error
	Close() error
}

// Dialer establishes gateway sessions. It is the seam the checker is tested
// against.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Conn, error)
}

// Config holds gateway connection settings.
type Config struct {
	BaseURL        string `yaml:"base_url" envconfig:"MTPROTO_GATEWAY_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"MTPROTO_GATEWAY_TIMEOUT_SECONDS"`
}

// Normalize validates the gateway configuration and applies defaults.
func (c *Config) Normalize() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("mtproto gateway base_url is required")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("mtproto gateway timeout_seconds must be >= 0")
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Client implements Dialer over the gateway HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a gateway client. Unlike the bot's Telegram transport the
// client performs no transport-level retries: a probe must hit the directory
// exactly once per call.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: transport,
		},
	}
}

type sessionRequest struct {
	APIID   string `json:"api_id"`
	APIHash string `json:"api_hash"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type probeRequest struct {
	Phone string `json:"phone"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Dial opens an in-memory gateway session for the given credentials.
func (c *Client) Dial(ctx context.Context, creds Credentials) (Conn, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/sessions", sessionRequest{
		APIID:   creds.APIID,
		APIHash: creds.APIHash,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("mtclient: gateway returned empty session id")
	}
	return &gatewayConn{client: c, sessionID: resp.SessionID}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mtclient: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("mtclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mtclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("mtclient: decode response: %w", err)
		}
		return nil
	}

	var gwErr errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &gwErr) == nil && gwErr.Error != "" {
		return mapRPCError(gwErr.Error, gwErr.Message)
	}
	return fmt.Errorf("mtclient: gateway status %s", resp.Status)
}

type gatewayConn struct {
	client    *Client
	sessionID string
}

func (g *gatewayConn) Me(ctx context.Context) error {
	return g.client.do(ctx, http.MethodPost, "/v1/sessions/"+g.sessionID+"/me", nil, nil)
}

func (g *gatewayConn) Probe(ctx context.Context, phone string) error {
	return g.client.do(ctx, http.MethodPost, "/v1/sessions/"+g.sessionID+"/probe", probeRequest{Phone: phone}, nil)
}

// Close releases the gateway session. The request is bounded so a wedged
// gateway cannot hold a batch open.
func (g *gatewayConn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.client.do(ctx, http.MethodDelete, "/v1/sessions/"+g.sessionID, nil, nil)
}
