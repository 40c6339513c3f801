// Package dispatch routes wake requests either to the local packet sender or
// to the relay agent a host is assigned to.
package dispatch

import (
	"context"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/events"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/relay"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/wol"
)

const (
	ViaLocal = "local"
	ViaAgent = "agent"
)

// Lookup resolves hosts and agents. Agent must return the token.
type Lookup interface {
	Host(id string) (models.Host, error)
	Agent(id string) (models.Agent, error)
}

// PacketSender sends a magic packet on the local segment
type PacketSender interface {
	Wake(ctx context.Context, mac string, t wol.Target) (wol.Result, error)
}

// RelayClient speaks the agent wire contract
type RelayClient interface {
	Wake(ctx context.Context, baseURL, token string, req relay.WakeRequest) (*relay.WakeResponse, error)
	Probe(ctx context.Context, baseURL string) relay.ProbeResult
}

// History records wake attempts
type History interface {
	RecordWake(ev *models.WakeEvent) error
}

// Options override the packet destination. Zero values use the sender's or
// the agent's defaults.
type Options struct {
	Broadcast string
	Port      int
}

// Result describes how a wake was carried out
type Result struct {
	Via     string
	AgentID string
	Local   *wol.Result
	Relay   *relay.WakeResponse
}

// Dispatcher decides where a wake request goes
type Dispatcher struct {
	lookup  Lookup
	sender  PacketSender
	relay   RelayClient
	history History
	events  *events.Fanout
}

// New creates a dispatcher. history and ev may be nil.
func New(lookup Lookup, sender PacketSender, relayClient RelayClient, history History, ev *events.Fanout) *Dispatcher {
	return &Dispatcher{
		lookup:  lookup,
		sender:  sender,
		relay:   relayClient,
		history: history,
		events:  ev,
	}
}

// Wake sends a magic packet for hostID. Hosts without an agent are woken in
// process; hosts with an agent cause exactly one authenticated relay call.
// Failures are not retried.
func (d *Dispatcher) Wake(ctx context.Context, hostID string, opts Options) (*Result, error) {
	host, err := d.lookup.Host(hostID)
	if err != nil {
		return nil, err
	}

	if err := wol.ValidateTarget(wol.Target{Broadcast: opts.Broadcast, Port: opts.Port}); err != nil {
		return nil, err
	}

	res, err := d.route(ctx, host, opts)
	d.record(ctx, host, opts, res, err)
	return res, err
}

func (d *Dispatcher) route(ctx context.Context, host models.Host, opts Options) (*Result, error) {
	if host.IsLocal() {
		sent, err := d.sender.Wake(ctx, host.MAC, wol.Target{Broadcast: opts.Broadcast, Port: opts.Port})
		if err != nil {
			return nil, err
		}
		return &Result{Via: ViaLocal, Local: &sent}, nil
	}

	agentID := *host.AgentID
	agent, err := d.lookup.Agent(agentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			logger.Log.Errorf("Host %s references missing agent %s", host.ID, agentID)
			return nil, apperr.Integrity("host %q references missing agent %q", host.ID, agentID)
		}
		return nil, err
	}

	resp, err := d.relay.Wake(ctx, agent.URL, agent.Token, relay.WakeRequest{
		MAC:       host.MAC,
		Broadcast: opts.Broadcast,
		Port:      opts.Port,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Via: ViaAgent, AgentID: agent.ID, Relay: resp}, nil
}

// record writes the history entry and publishes the outcome. Neither may
// fail the wake itself.
func (d *Dispatcher) record(ctx context.Context, host models.Host, opts Options, res *Result, wakeErr error) {
	entry := &models.WakeEvent{
		HostID:    host.ID,
		HostName:  host.Name,
		MAC:       host.MAC,
		Via:       ViaLocal,
		Broadcast: opts.Broadcast,
		Port:      opts.Port,
		Success:   wakeErr == nil,
		CreatedAt: time.Now().UTC(),
	}
	if host.AgentID != nil {
		entry.Via = ViaAgent
		entry.AgentID = *host.AgentID
	}
	switch {
	case res != nil && res.Local != nil:
		entry.Broadcast, entry.Port = res.Local.Broadcast, res.Local.Port
	case res != nil && res.Relay != nil:
		entry.Broadcast, entry.Port = res.Relay.Broadcast, res.Relay.Port
	}

	ev := events.Event{Type: events.WakeSent, ID: host.ID, Via: entry.Via, AgentID: entry.AgentID, MAC: host.MAC}
	if wakeErr != nil {
		entry.Error = wakeErr.Error()
		ev.Type = events.WakeFailed
		ev.Error = entry.Error
		logger.Log.Warnf("Wake of host %s via %s failed: %v", host.ID, entry.Via, wakeErr)
	} else {
		logger.Log.Infof("Wake of host %s (%s) dispatched via %s", host.ID, host.MAC, entry.Via)
	}

	if d.history != nil {
		if err := d.history.RecordWake(entry); err != nil {
			logger.Log.Warnf("Failed to record wake of host %s: %v", host.ID, err)
		}
	}
	d.events.Emit(ctx, ev)
}

// CheckAgentHealth probes the agent's liveness endpoint. An unknown agent is
// NotFound; an unreachable one is a normal result, never an error.
func (d *Dispatcher) CheckAgentHealth(ctx context.Context, agentID string) (models.AgentHealth, error) {
	agent, err := d.lookup.Agent(agentID)
	if err != nil {
		return models.AgentHealth{}, err
	}
	return ProbeToHealth(d.relay.Probe(ctx, agent.URL)), nil
}

// ProbeToHealth converts a probe result into the API shape. Latency is
// reported whenever the agent answered, including failure statuses.
func ProbeToHealth(p relay.ProbeResult) models.AgentHealth {
	if !p.Reachable {
		msg := "unreachable"
		if p.Err != nil {
			msg = p.Err.Error()
		}
		health := models.AgentHealth{OK: true, Reachable: false, Error: msg}
		if p.Responded {
			latency := p.Latency.Milliseconds()
			health.LatencyMs = &latency
		}
		return health
	}
	latency := p.Latency.Milliseconds()
	return models.AgentHealth{OK: true, Reachable: true, LatencyMs: &latency, Response: p.Response}
}
