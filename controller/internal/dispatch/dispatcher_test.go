package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/registry"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/relay"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/wol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	hosts  map[string]models.Host
	agents map[string]models.Agent
}

func (f *fakeLookup) Host(id string) (models.Host, error) {
	if h, ok := f.hosts[id]; ok {
		return h, nil
	}
	return models.Host{}, apperr.NotFound("host %q not found", id)
}

func (f *fakeLookup) Agent(id string) (models.Agent, error) {
	if a, ok := f.agents[id]; ok {
		return a, nil
	}
	return models.Agent{}, apperr.NotFound("agent %q not found", id)
}

type fakeSender struct {
	calls []string
	err   error
}

func (f *fakeSender) Wake(ctx context.Context, mac string, t wol.Target) (wol.Result, error) {
	f.calls = append(f.calls, mac)
	if f.err != nil {
		return wol.Result{}, f.err
	}
	res := wol.Result{MAC: mac, Broadcast: wol.DefaultBroadcast, Port: wol.DefaultPort}
	if t.Broadcast != "" {
		res.Broadcast = t.Broadcast
	}
	if t.Port != 0 {
		res.Port = t.Port
	}
	return res, nil
}

type relayCall struct {
	baseURL string
	token   string
	req     relay.WakeRequest
}

type fakeRelay struct {
	mu    sync.Mutex
	calls []relayCall
	err   error
	probe relay.ProbeResult
}

func (f *fakeRelay) Wake(ctx context.Context, baseURL, token string, req relay.WakeRequest) (*relay.WakeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, relayCall{baseURL, token, req})
	if f.err != nil {
		return nil, f.err
	}
	return &relay.WakeResponse{OK: true, MAC: req.MAC, Broadcast: wol.DefaultBroadcast, Port: wol.DefaultPort}, nil
}

func (f *fakeRelay) Probe(ctx context.Context, baseURL string) relay.ProbeResult {
	return f.probe
}

type fakeHistory struct {
	entries []*models.WakeEvent
}

func (f *fakeHistory) RecordWake(ev *models.WakeEvent) error {
	f.entries = append(f.entries, ev)
	return nil
}

func newFixture() (*fakeLookup, *fakeSender, *fakeRelay, *fakeHistory, *Dispatcher) {
	agentID := "agent_x"
	lookup := &fakeLookup{
		hosts: map[string]models.Host{
			"host_local":    {ID: "host_local", Name: "pc", MAC: "00:11:22:33:44:55"},
			"host_remote":   {ID: "host_remote", Name: "nas", MAC: "aa:bb:cc:dd:ee:ff", AgentID: &agentID},
			"host_dangling": {ID: "host_dangling", Name: "ghost", MAC: "aa:aa:aa:aa:aa:aa", AgentID: models.StringPtr("agent_gone")},
		},
		agents: map[string]models.Agent{
			agentID: {ID: agentID, Name: "vlan2", URL: "http://10.0.2.5:3001", Token: "secret123"},
		},
	}
	sender := &fakeSender{}
	rc := &fakeRelay{}
	history := &fakeHistory{}
	return lookup, sender, rc, history, New(lookup, sender, rc, history, nil)
}

func TestWakeLocalNeverCallsRelay(t *testing.T) {
	_, sender, rc, history, d := newFixture()

	res, err := d.Wake(context.Background(), "host_local", Options{Broadcast: "192.168.1.255", Port: 7})
	require.NoError(t, err)

	assert.Equal(t, ViaLocal, res.Via)
	require.NotNil(t, res.Local)
	assert.Equal(t, "192.168.1.255", res.Local.Broadcast)
	assert.Equal(t, 7, res.Local.Port)
	assert.Equal(t, []string{"00:11:22:33:44:55"}, sender.calls)
	assert.Empty(t, rc.calls)

	require.Len(t, history.entries, 1)
	assert.True(t, history.entries[0].Success)
	assert.Equal(t, ViaLocal, history.entries[0].Via)
}

func TestWakeRemoteCallsRelayOnce(t *testing.T) {
	_, sender, rc, history, d := newFixture()

	res, err := d.Wake(context.Background(), "host_remote", Options{})
	require.NoError(t, err)

	assert.Equal(t, ViaAgent, res.Via)
	assert.Equal(t, "agent_x", res.AgentID)
	require.NotNil(t, res.Relay)
	assert.Empty(t, sender.calls)

	require.Len(t, rc.calls, 1)
	assert.Equal(t, "http://10.0.2.5:3001", rc.calls[0].baseURL)
	assert.Equal(t, "secret123", rc.calls[0].token)
	assert.Equal(t, relay.WakeRequest{MAC: "aa:bb:cc:dd:ee:ff"}, rc.calls[0].req)

	require.Len(t, history.entries, 1)
	assert.Equal(t, "agent_x", history.entries[0].AgentID)
}

func TestWakeUnknownHost(t *testing.T) {
	_, sender, rc, history, d := newFixture()

	_, err := d.Wake(context.Background(), "host_nope", Options{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, sender.calls)
	assert.Empty(t, rc.calls)
	assert.Empty(t, history.entries)
}

func TestWakeUnknownHostBeforeOverrideCheck(t *testing.T) {
	_, sender, _, _, d := newFixture()

	_, err := d.Wake(context.Background(), "host_nope", Options{Broadcast: "not-an-ip", Port: -1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, sender.calls)
}

func TestWakeDanglingAgentIsIntegrityError(t *testing.T) {
	_, sender, rc, history, d := newFixture()

	_, err := d.Wake(context.Background(), "host_dangling", Options{})
	assert.True(t, apperr.Is(err, apperr.KindIntegrity))
	assert.Empty(t, sender.calls, "must not fall back to local")
	assert.Empty(t, rc.calls)

	require.Len(t, history.entries, 1)
	assert.False(t, history.entries[0].Success)
}

func TestWakeRelayFailureSurfaces(t *testing.T) {
	_, _, rc, history, d := newFixture()
	cause := errors.New("connection refused")
	rc.err = apperr.Wrap(apperr.KindRelayUnavailable, cause, "agent unavailable")

	_, err := d.Wake(context.Background(), "host_remote", Options{})
	assert.True(t, apperr.Is(err, apperr.KindRelayUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Len(t, rc.calls, 1, "no automatic retry")

	require.Len(t, history.entries, 1)
	assert.Contains(t, history.entries[0].Error, "connection refused")
}

func TestWakeLocalTransportError(t *testing.T) {
	_, sender, _, _, d := newFixture()
	sender.err = apperr.Wrap(apperr.KindTransport, errors.New("network unreachable"), "send failed")

	_, err := d.Wake(context.Background(), "host_local", Options{})
	assert.True(t, apperr.Is(err, apperr.KindTransport))
}

func TestWakeRejectsBadOverrides(t *testing.T) {
	_, sender, _, _, d := newFixture()

	_, err := d.Wake(context.Background(), "host_local", Options{Port: -1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = d.Wake(context.Background(), "host_local", Options{Broadcast: "not-an-ip"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, sender.calls)
}

func TestCheckAgentHealth(t *testing.T) {
	_, _, rc, _, d := newFixture()

	rc.probe = relay.ProbeResult{Reachable: true, Latency: 12 * time.Millisecond, Response: map[string]interface{}{"mode": "agent"}}
	health, err := d.CheckAgentHealth(context.Background(), "agent_x")
	require.NoError(t, err)
	assert.True(t, health.Reachable)
	require.NotNil(t, health.LatencyMs)
	assert.Equal(t, int64(12), *health.LatencyMs)

	rc.probe = relay.ProbeResult{Err: errors.New("dial tcp: i/o timeout")}
	health, err = d.CheckAgentHealth(context.Background(), "agent_x")
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.False(t, health.Reachable)
	assert.Equal(t, "dial tcp: i/o timeout", health.Error)
	assert.Nil(t, health.LatencyMs, "no answer, no latency")

	rc.probe = relay.ProbeResult{Responded: true, Latency: 8 * time.Millisecond, Err: errors.New("agent returned status 503")}
	health, err = d.CheckAgentHealth(context.Background(), "agent_x")
	require.NoError(t, err)
	assert.False(t, health.Reachable)
	assert.Equal(t, "agent returned status 503", health.Error)
	require.NotNil(t, health.LatencyMs)
	assert.Equal(t, int64(8), *health.LatencyMs)

	_, err = d.CheckAgentHealth(context.Background(), "agent_nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// End to end through the real registry and relay client
func TestWakeThroughRegistryAndRelay(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]interface{}
	agentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get(relay.TokenHeader)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(relay.WakeResponse{OK: true, MAC: "aa:bb:cc:dd:ee:ff", Broadcast: "255.255.255.255", Port: 9})
	}))
	defer agentServer.Close()

	store, err := registry.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	reg := registry.New(store, nil)

	agentID, err := reg.CreateAgent(context.Background(), models.CreateAgentRequest{
		Name: "vlan2", URL: agentServer.URL + "/", Token: "secret123",
	})
	require.NoError(t, err)
	hostID, err := reg.CreateHost(context.Background(), models.CreateHostRequest{
		Name: "nas", MAC: "AA-BB-CC-DD-EE-FF", AgentID: &agentID,
	})
	require.NoError(t, err)

	sender := &fakeSender{}
	d := New(reg, sender, relay.NewClient(time.Second, time.Second), nil, nil)

	res, err := d.Wake(context.Background(), hostID, Options{})
	require.NoError(t, err)
	assert.Equal(t, ViaAgent, res.Via)
	assert.Equal(t, agentID, res.AgentID)
	assert.Equal(t, "/wake", gotPath)
	assert.Equal(t, "secret123", gotToken)
	assert.Equal(t, map[string]interface{}{"mac": "aa:bb:cc:dd:ee:ff"}, gotBody)
	assert.Empty(t, sender.calls)
}
