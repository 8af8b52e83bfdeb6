// Package hardware is a client for the remote quantum runtime. Work is
// grouped into sessions: a session is opened on one device, receives
// estimator calls and must be closed to release the reservation.
package hardware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/molsim-ai/molsim/pkg/quantum"
)

// DefaultOptimizationLevel is the transpiler level requested for circuits.
const DefaultOptimizationLevel = 3

// Client is an authenticated runtime connection.
type Client struct {
	baseURL           string
	token             string
	device            string
	optimizationLevel int
	client            *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	Device            string
	OptimizationLevel int
	Timeout           time.Duration
}

// NewClient returns a runtime client. It does not contact the service.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("hardware: token is required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("hardware: base url is required")
	}
	if opts.OptimizationLevel == 0 {
		opts.OptimizationLevel = DefaultOptimizationLevel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		token:             opts.Token,
		device:            opts.Device,
		optimizationLevel: opts.OptimizationLevel,
		client:            &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Device is the backend sessions are opened on.
func (c *Client) Device() string { return c.device }

// Probe checks that the token is accepted and the device is online.
func (c *Client) Probe(ctx context.Context) error {
	var status struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/backends/"+c.device, nil, &status); err != nil {
		return fmt.Errorf("probe %s: %w", c.device, err)
	}
	if status.Status != "" && status.Status != "online" {
		return fmt.Errorf("probe %s: device is %s", c.device, status.Status)
	}
	return nil
}

// OpenSession reserves the device for a sequence of estimator calls.
func (c *Client) OpenSession(ctx context.Context) (*Session, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]any{"backend": c.device, "mode": "dedicated"}
	if err := c.do(ctx, http.MethodPost, "/sessions", body, &out); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("open session: runtime returned no session id")
	}
	return &Session{client: c, id: out.ID}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx runtime response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("runtime returned %d", e.Code)
	}
	return fmt.Sprintf("runtime returned %d: %s", e.Code, e.Body)
}

// Session is an open device reservation. It implements quantum.Estimator.
type Session struct {
	client *Client
	id     string
}

// ID is the runtime's session identifier.
func (s *Session) ID() string { return s.id }

// Estimate runs the bound circuit on the device and returns the measured
// expectation value of h.
func (s *Session) Estimate(ctx context.Context, c *quantum.Circuit, params []float64, h *quantum.PauliSum) (float64, error) {
	qasm, err := c.QASM(params)
	if err != nil {
		return 0, err
	}
	body := map[string]any{
		"circuit":            qasm,
		"observable":         h.Terms,
		"optimization_level": s.client.optimizationLevel,
	}
	var out struct {
		Value float64 `json:"value"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/sessions/"+s.id+"/estimate", body, &out); err != nil {
		return 0, fmt.Errorf("estimate: %w", err)
	}
	return out.Value, nil
}

// Close ends the session.
func (s *Session) Close(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodDelete, "/sessions/"+s.id, nil, nil); err != nil {
		return fmt.Errorf("close session %s: %w", s.id, err)
	}
	return nil
}
