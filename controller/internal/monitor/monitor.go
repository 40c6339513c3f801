// Package monitor periodically probes every registered agent and keeps the
// last known reachability of each one. Unreachable agents are probed less
// often, following an exponential backoff, until they answer again.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/backoff"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/relay"
)

// AgentSource lists the agents to watch
type AgentSource interface {
	Agents() ([]models.Agent, error)
}

// Prober performs one liveness probe
type Prober interface {
	Probe(ctx context.Context, baseURL string) relay.ProbeResult
}

type agentState struct {
	status  models.AgentStatus
	backoff *backoff.Backoff
}

// Monitor tracks agent reachability. Safe for concurrent use.
type Monitor struct {
	source   AgentSource
	prober   Prober
	interval time.Duration
	maxDelay time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	agents map[string]*agentState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor that checks agents every interval. Failing agents
// back off from interval up to maxDelay.
func New(source AgentSource, prober Prober, interval, maxDelay time.Duration) *Monitor {
	if maxDelay < interval {
		maxDelay = interval
	}
	return &Monitor{
		source:   source,
		prober:   prober,
		interval: interval,
		maxDelay: maxDelay,
		now:      time.Now,
		agents:   make(map[string]*agentState),
	}
}

// Start runs the check loop in a goroutine until Stop or ctx cancellation
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		logger.Log.Infof("Agent monitor started with interval %v", m.interval)
		m.CheckAll(ctx)

		for {
			select {
			case <-ticker.C:
				m.CheckAll(ctx)
			case <-ctx.Done():
				logger.Log.Info("Agent monitor stopped")
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for it to finish
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// CheckAll probes every agent that is due and forgets deleted agents
func (m *Monitor) CheckAll(ctx context.Context) {
	agents, err := m.source.Agents()
	if err != nil {
		logger.Log.Errorf("Agent monitor failed to load agents: %v", err)
		return
	}

	current := make(map[string]bool, len(agents))
	var wg sync.WaitGroup
	for _, a := range agents {
		current[a.ID] = true
		if !m.due(a.ID) {
			continue
		}
		wg.Add(1)
		go func(agent models.Agent) {
			defer wg.Done()
			m.check(ctx, agent)
		}(a)
	}
	wg.Wait()

	m.mu.Lock()
	for id := range m.agents {
		if !current[id] {
			delete(m.agents, id)
			logger.Log.Debugf("Removed agent %s from monitoring", id)
		}
	}
	m.mu.Unlock()
}

func (m *Monitor) due(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.agents[id]
	// Ticks land a little before NextCheck when it was computed after the
	// previous tick started
	return !ok || !m.now().Add(m.interval/4).Before(st.status.NextCheck)
}

func (m *Monitor) check(ctx context.Context, agent models.Agent) {
	started := m.now()
	res := m.prober.Probe(ctx, agent.URL)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.agents[agent.ID]
	if !ok {
		st = &agentState{
			status:  models.AgentStatus{AgentID: agent.ID},
			backoff: backoff.New(m.interval, m.maxDelay, 2.0),
		}
		m.agents[agent.ID] = st
	}

	st.status.LastCheck = now
	if res.Reachable {
		if st.status.ConsecutiveFails > 0 {
			logger.Log.Infof("Agent %s (%s) is reachable again", agent.ID, agent.Name)
		}
		st.status.Reachable = true
		st.status.LatencyMs = res.Latency.Milliseconds()
		st.status.Error = ""
		st.status.LastReachable = now
		st.status.ConsecutiveFails = 0
		st.status.NextCheck = started.Add(m.interval)
		st.backoff.Reset()
		return
	}

	st.status.Reachable = false
	st.status.LatencyMs = 0
	if res.Responded {
		st.status.LatencyMs = res.Latency.Milliseconds()
	}
	if res.Err != nil {
		st.status.Error = res.Err.Error()
	}
	st.status.ConsecutiveFails++
	st.status.NextCheck = started.Add(st.backoff.Next())
	logger.Log.Warnf("Agent %s (%s) unreachable (%d consecutive): %s",
		agent.ID, agent.Name, st.status.ConsecutiveFails, st.status.Error)
}

// Status returns the last result for one agent
func (m *Monitor) Status(agentID string) (models.AgentStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.agents[agentID]
	if !ok {
		return models.AgentStatus{}, false
	}
	return st.status, true
}

// Statuses returns a copy of every known agent status
func (m *Monitor) Statuses() map[string]models.AgentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.AgentStatus, len(m.agents))
	for id, st := range m.agents {
		out[id] = st.status
	}
	return out
}
