package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
)

const (
	DefaultWakeTimeout  = 5 * time.Second
	DefaultProbeTimeout = 3 * time.Second

	maxBodyBytes = 64 << 10
)

// ProbeResult is the typed outcome of a liveness probe. It is never an error.
// Responded is set whenever the agent answered, even with a failure status;
// Latency is meaningful only then.
type ProbeResult struct {
	Reachable bool
	Responded bool
	Latency   time.Duration
	Response  map[string]interface{}
	Err       error
}

// Client talks to relay agents
type Client struct {
	wakeClient  *http.Client
	probeClient *http.Client
}

// NewClient creates a client with bounded timeouts. Zero durations use the defaults.
func NewClient(wakeTimeout, probeTimeout time.Duration) *Client {
	if wakeTimeout <= 0 {
		wakeTimeout = DefaultWakeTimeout
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Client{
		wakeClient:  &http.Client{Timeout: wakeTimeout},
		probeClient: &http.Client{Timeout: probeTimeout},
	}
}

// Endpoint joins an agent base URL and a path, dropping trailing slashes
func Endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// Wake asks the agent at baseURL to send a magic packet. Transport failures
// are RelayUnavailable, non-2xx answers are RelayRejected.
func (c *Client) Wake(ctx context.Context, baseURL, token string, req WakeRequest) (*WakeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wake request: %w", err)
	}

	url := Endpoint(baseURL, WakePath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRelayUnavailable, err, "failed to create request for %s", url)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(TokenHeader, token)

	resp, err := c.wakeClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRelayUnavailable, err, "agent at %s unavailable", url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRelayUnavailable, err, "failed to read response from %s", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, rejection(url, resp.StatusCode, data)
	}

	var wakeResp WakeResponse
	if err := json.Unmarshal(data, &wakeResp); err != nil {
		return nil, apperr.Wrap(apperr.KindRelayUnavailable, err, "invalid response from %s", url)
	}

	logger.Log.Debugf("Agent %s confirmed wake of %s", baseURL, wakeResp.MAC)
	return &wakeResp, nil
}

func rejection(url string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}
	if status == http.StatusUnauthorized {
		return &apperr.Error{Kind: apperr.KindRelayRejected, Message: fmt.Sprintf("agent at %s rejected the token", url)}
	}
	return &apperr.Error{
		Kind:    apperr.KindRelayRejected,
		Message: fmt.Sprintf("agent at %s returned status %d: %s", url, status, msg),
	}
}

// Probe checks the agent's liveness endpoint and measures round-trip latency
func (c *Client) Probe(ctx context.Context, baseURL string) ProbeResult {
	url := Endpoint(baseURL, HealthPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{Err: err}
	}

	start := time.Now()
	resp, err := c.probeClient.Do(req)
	if err != nil {
		return ProbeResult{Err: err}
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProbeResult{Responded: true, Latency: latency, Err: fmt.Errorf("agent returned status %d", resp.StatusCode)}
	}

	var body map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return ProbeResult{Responded: true, Latency: latency, Err: fmt.Errorf("failed to decode health response: %w", err)}
	}

	return ProbeResult{Reachable: true, Responded: true, Latency: latency, Response: body}
}
