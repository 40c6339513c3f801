// Package registry owns the agents and hosts and enforces their invariants:
// unique ids, unique canonical MACs, and host agent references that always
// point at an existing agent.
//
// Every mutation loads the persisted document, applies the change, validates
// the result and writes the whole document back. A registry-wide mutex
// serializes these read-modify-write cycles within the process; running two
// controller processes against one file is not supported.
package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/events"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/wol"
)

const (
	agentIDPrefix = "agent_"
	hostIDPrefix  = "host_"
)

// Registry is the only writer of the agent and host collections
type Registry struct {
	mu     sync.Mutex
	store  Store
	events *events.Fanout
	newID  func(prefix string) string
}

// New creates a registry over store. events may be nil.
func New(store Store, ev *events.Fanout) *Registry {
	return &Registry{
		store:  store,
		events: ev,
		newID: func(prefix string) string {
			return prefix + uuid.New().String()
		},
	}
}

// State returns the sanitized registry
func (r *Registry) State() (*models.StateView, error) {
	state, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	view := &models.StateView{
		Agents: make([]models.AgentView, 0, len(state.Agents)),
		Hosts:  state.Hosts,
	}
	for _, a := range state.Agents {
		view.Agents = append(view.Agents, a.View())
	}
	return view, nil
}

// ListAgents returns agents without their tokens
func (r *Registry) ListAgents() ([]models.AgentView, error) {
	view, err := r.State()
	if err != nil {
		return nil, err
	}
	return view.Agents, nil
}

// ListHosts returns all hosts in stored order
func (r *Registry) ListHosts() ([]models.Host, error) {
	state, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	return state.Hosts, nil
}

// Agent returns the full agent record, token included. Only dispatch uses it.
func (r *Registry) Agent(id string) (models.Agent, error) {
	state, err := r.store.Load()
	if err != nil {
		return models.Agent{}, err
	}
	if i := findAgent(state, id); i >= 0 {
		return state.Agents[i], nil
	}
	return models.Agent{}, apperr.NotFound("agent %q not found", id)
}

// Agents returns full agent records for internal callers such as the monitor
func (r *Registry) Agents() ([]models.Agent, error) {
	state, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	return state.Agents, nil
}

// Host returns one host
func (r *Registry) Host(id string) (models.Host, error) {
	state, err := r.store.Load()
	if err != nil {
		return models.Host{}, err
	}
	if i := findHost(state, id); i >= 0 {
		return state.Hosts[i], nil
	}
	return models.Host{}, apperr.NotFound("host %q not found", id)
}

// CreateAgent validates and stores a new agent and returns its id
func (r *Registry) CreateAgent(ctx context.Context, req models.CreateAgentRequest) (string, error) {
	agent := models.Agent{
		Name:  strings.TrimSpace(req.Name),
		URL:   strings.TrimSpace(req.URL),
		Token: req.Token,
	}
	if err := validateAgent(agent); err != nil {
		return "", err
	}

	var id string
	err := r.mutate(func(state *models.State) error {
		id = r.uniqueID(agentIDPrefix, func(c string) bool { return findAgent(state, c) >= 0 })
		agent.ID = id
		state.Agents = append(state.Agents, agent)
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Log.Infof("Agent registered: %s (%s)", id, agent.URL)
	r.events.Emit(ctx, events.Event{Type: events.AgentCreated, ID: id})
	return id, nil
}

// UpdateAgent merges patch over the stored agent and re-validates the result
func (r *Registry) UpdateAgent(ctx context.Context, id string, patch models.AgentPatch) error {
	err := r.mutate(func(state *models.State) error {
		i := findAgent(state, id)
		if i < 0 {
			return apperr.NotFound("agent %q not found", id)
		}
		merged := state.Agents[i]
		if patch.Name != nil {
			merged.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.URL != nil {
			merged.URL = strings.TrimSpace(*patch.URL)
		}
		if patch.Token != nil {
			merged.Token = *patch.Token
		}
		if err := validateAgent(merged); err != nil {
			return err
		}
		state.Agents[i] = merged
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Infof("Agent updated: %s", id)
	r.events.Emit(ctx, events.Event{Type: events.AgentUpdated, ID: id})
	return nil
}

// DeleteAgent removes the agent and, in the same write, points every host
// that referenced it back at the local segment. Hosts are never deleted.
func (r *Registry) DeleteAgent(ctx context.Context, id string) error {
	var detached []string
	err := r.mutate(func(state *models.State) error {
		i := findAgent(state, id)
		if i < 0 {
			return apperr.NotFound("agent %q not found", id)
		}
		state.Agents = append(state.Agents[:i], state.Agents[i+1:]...)
		for j := range state.Hosts {
			if ref := state.Hosts[j].AgentID; ref != nil && *ref == id {
				state.Hosts[j].AgentID = nil
				detached = append(detached, state.Hosts[j].ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Infof("Agent deleted: %s (%d hosts moved to local)", id, len(detached))
	r.events.Emit(ctx, events.Event{Type: events.AgentDeleted, ID: id})
	for _, hostID := range detached {
		r.events.Emit(ctx, events.Event{Type: events.HostUpdated, ID: hostID})
	}
	return nil
}

// CreateHost canonicalizes the MAC, checks uniqueness and the agent
// reference, then stores the host
func (r *Registry) CreateHost(ctx context.Context, req models.CreateHostRequest) (string, error) {
	host := models.Host{
		Name:    strings.TrimSpace(req.Name),
		MAC:     req.MAC,
		AgentID: normalizeRef(req.AgentID),
	}

	var id string
	err := r.mutate(func(state *models.State) error {
		canonical, err := validateHost(state, host, "")
		if err != nil {
			return err
		}
		host.MAC = canonical
		id = r.uniqueID(hostIDPrefix, func(c string) bool { return findHost(state, c) >= 0 })
		host.ID = id
		state.Hosts = append(state.Hosts, host)
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Log.Infof("Host registered: %s (%s)", id, host.MAC)
	r.events.Emit(ctx, events.Event{Type: events.HostCreated, ID: id, MAC: host.MAC})
	return id, nil
}

// UpdateHost merges patch over the stored host. All host invariants are
// checked on the merged record whichever fields the patch carries.
func (r *Registry) UpdateHost(ctx context.Context, id string, patch models.HostPatch) error {
	var mac string
	err := r.mutate(func(state *models.State) error {
		i := findHost(state, id)
		if i < 0 {
			return apperr.NotFound("host %q not found", id)
		}
		merged := state.Hosts[i]
		if patch.Name != nil {
			merged.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.MAC != nil {
			merged.MAC = *patch.MAC
		}
		if patch.AgentID.Set {
			merged.AgentID = normalizeRef(patch.AgentID.Value)
		}
		canonical, err := validateHost(state, merged, id)
		if err != nil {
			return err
		}
		merged.MAC = canonical
		mac = canonical
		state.Hosts[i] = merged
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Infof("Host updated: %s", id)
	r.events.Emit(ctx, events.Event{Type: events.HostUpdated, ID: id, MAC: mac})
	return nil
}

// DeleteHost removes a host
func (r *Registry) DeleteHost(ctx context.Context, id string) error {
	err := r.mutate(func(state *models.State) error {
		i := findHost(state, id)
		if i < 0 {
			return apperr.NotFound("host %q not found", id)
		}
		state.Hosts = append(state.Hosts[:i], state.Hosts[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Infof("Host deleted: %s", id)
	r.events.Emit(ctx, events.Event{Type: events.HostDeleted, ID: id})
	return nil
}

// mutate runs one serialized load-apply-save cycle. Nothing is written when
// fn fails.
func (r *Registry) mutate(fn func(state *models.State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.store.Load()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	if err := r.store.Save(state); err != nil {
		return fmt.Errorf("failed to persist registry: %w", err)
	}
	return nil
}

func (r *Registry) uniqueID(prefix string, taken func(string) bool) string {
	for {
		id := r.newID(prefix)
		if !taken(id) {
			return id
		}
	}
}

func validateAgent(a models.Agent) error {
	if a.Name == "" {
		return apperr.Validation("agent name is required")
	}
	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("agent url must be an http or https URL")
	}
	if a.Token == "" {
		return apperr.Validation("agent token is required")
	}
	return nil
}

// validateHost checks h against state, ignoring the host with id self, and
// returns the canonical MAC
func validateHost(state *models.State, h models.Host, self string) (string, error) {
	if h.Name == "" {
		return "", apperr.Validation("host name is required")
	}
	mac, err := wol.NormalizeMAC(h.MAC)
	if err != nil {
		return "", err
	}
	for _, other := range state.Hosts {
		if other.ID != self && other.MAC == mac {
			return "", apperr.Conflict("MAC address %s is already used by host %q", mac, other.Name)
		}
	}
	if h.AgentID != nil && findAgent(state, *h.AgentID) < 0 {
		return "", apperr.Validation("agent %q does not exist", *h.AgentID)
	}
	return mac, nil
}

// normalizeRef treats an empty agent id as "local"
func normalizeRef(ref *string) *string {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil
	}
	v := strings.TrimSpace(*ref)
	return &v
}

func findAgent(state *models.State, id string) int {
	for i, a := range state.Agents {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func findHost(state *models.State, id string) int {
	for i, h := range state.Hosts {
		if h.ID == id {
			return i
		}
	}
	return -1
}
