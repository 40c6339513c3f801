package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRegistry(t *testing.T) (*Registry, *FileStore) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data", "state.json"))
	require.NoError(t, err)
	return New(store, nil), store
}

func createAgent(t *testing.T, r *Registry, name string) string {
	id, err := r.CreateAgent(context.Background(), models.CreateAgentRequest{
		Name: name, URL: "http://10.0.2.5:3001", Token: "secret123",
	})
	require.NoError(t, err)
	return id
}

func TestCreateAgent(t *testing.T) {
	r, _ := setupTestRegistry(t)

	id := createAgent(t, r, "vlan2")
	assert.Contains(t, id, "agent_")

	agents, err := r.ListAgents()
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, models.AgentView{ID: id, Name: "vlan2", URL: "http://10.0.2.5:3001"}, agents[0])

	full, err := r.Agent(id)
	require.NoError(t, err)
	assert.Equal(t, "secret123", full.Token)
}

func TestCreateAgentValidation(t *testing.T) {
	r, store := setupTestRegistry(t)

	tests := []models.CreateAgentRequest{
		{Name: "", URL: "http://a", Token: "t"},
		{Name: "   ", URL: "http://a", Token: "t"},
		{Name: "a", URL: "ftp://a", Token: "t"},
		{Name: "a", URL: "10.0.0.1:3001", Token: "t"},
		{Name: "a", URL: "http://", Token: "t"},
		{Name: "a", URL: "https://a", Token: ""},
	}
	for _, req := range tests {
		_, err := r.CreateAgent(context.Background(), req)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v", req)
	}

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "nothing should be persisted")
}

func TestUpdateAgent(t *testing.T) {
	r, _ := setupTestRegistry(t)
	id := createAgent(t, r, "vlan2")

	err := r.UpdateAgent(context.Background(), id, models.AgentPatch{URL: models.StringPtr("https://relay.lan/")})
	require.NoError(t, err)

	agent, err := r.Agent(id)
	require.NoError(t, err)
	assert.Equal(t, "vlan2", agent.Name)
	assert.Equal(t, "https://relay.lan/", agent.URL)
	assert.Equal(t, "secret123", agent.Token)

	err = r.UpdateAgent(context.Background(), id, models.AgentPatch{Token: models.StringPtr("")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = r.UpdateAgent(context.Background(), "agent_missing", models.AgentPatch{Name: models.StringPtr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateHostCanonicalizesMAC(t *testing.T) {
	r, _ := setupTestRegistry(t)
	agentID := createAgent(t, r, "vlan2")

	id, err := r.CreateHost(context.Background(), models.CreateHostRequest{
		Name: "nas", MAC: "AA-BB-CC-DD-EE-FF", AgentID: &agentID,
	})
	require.NoError(t, err)

	host, err := r.Host(id)
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", host.MAC)
	require.NotNil(t, host.AgentID)
	assert.Equal(t, agentID, *host.AgentID)
}

func TestCreateHostDuplicateMAC(t *testing.T) {
	r, _ := setupTestRegistry(t)

	_, err := r.CreateHost(context.Background(), models.CreateHostRequest{Name: "nas", MAC: "aa:bb:cc:dd:ee:ff"})
	require.NoError(t, err)

	for _, mac := range []string{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff", "Aa-Bb-Cc-Dd-Ee-Ff"} {
		_, err := r.CreateHost(context.Background(), models.CreateHostRequest{Name: "dup", MAC: mac})
		assert.True(t, apperr.Is(err, apperr.KindConflict), mac)
	}

	hosts, err := r.ListHosts()
	require.NoError(t, err)
	assert.Len(t, hosts, 1)
}

func TestCreateHostDanglingAgent(t *testing.T) {
	r, store := setupTestRegistry(t)

	_, err := r.CreateHost(context.Background(), models.CreateHostRequest{
		Name: "nas", MAC: "aa:bb:cc:dd:ee:ff", AgentID: models.StringPtr("agent_nope"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Hosts)
}

func TestCreateHostEmptyAgentIsLocal(t *testing.T) {
	r, _ := setupTestRegistry(t)

	id, err := r.CreateHost(context.Background(), models.CreateHostRequest{
		Name: "pc", MAC: "00:11:22:33:44:55", AgentID: models.StringPtr(""),
	})
	require.NoError(t, err)

	host, err := r.Host(id)
	require.NoError(t, err)
	assert.True(t, host.IsLocal())
}

func TestCreateHostInvalid(t *testing.T) {
	r, _ := setupTestRegistry(t)

	_, err := r.CreateHost(context.Background(), models.CreateHostRequest{Name: "", MAC: "aa:bb:cc:dd:ee:ff"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = r.CreateHost(context.Background(), models.CreateHostRequest{Name: "x", MAC: "aabbccddeeff"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateHost(t *testing.T) {
	r, _ := setupTestRegistry(t)
	agentID := createAgent(t, r, "vlan2")

	id1, err := r.CreateHost(context.Background(), models.CreateHostRequest{Name: "a", MAC: "00:00:00:00:00:01"})
	require.NoError(t, err)
	_, err = r.CreateHost(context.Background(), models.CreateHostRequest{Name: "b", MAC: "00:00:00:00:00:02"})
	require.NoError(t, err)

	// Keeping its own MAC is not a conflict
	err = r.UpdateHost(context.Background(), id1, models.HostPatch{MAC: models.StringPtr("00-00-00-00-00-01")})
	require.NoError(t, err)

	err = r.UpdateHost(context.Background(), id1, models.HostPatch{MAC: models.StringPtr("00:00:00:00:00:02")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	err = r.UpdateHost(context.Background(), id1, models.HostPatch{
		AgentID: models.NullableString{Set: true, Value: &agentID},
	})
	require.NoError(t, err)
	host, _ := r.Host(id1)
	require.NotNil(t, host.AgentID)
	assert.Equal(t, agentID, *host.AgentID)

	// Absent agentId leaves the reference alone
	err = r.UpdateHost(context.Background(), id1, models.HostPatch{Name: models.StringPtr("renamed")})
	require.NoError(t, err)
	host, _ = r.Host(id1)
	assert.Equal(t, "renamed", host.Name)
	assert.NotNil(t, host.AgentID)

	// Explicit null moves it back to local
	err = r.UpdateHost(context.Background(), id1, models.HostPatch{AgentID: models.NullableString{Set: true}})
	require.NoError(t, err)
	host, _ = r.Host(id1)
	assert.True(t, host.IsLocal())

	err = r.UpdateHost(context.Background(), id1, models.HostPatch{
		AgentID: models.NullableString{Set: true, Value: models.StringPtr("agent_nope")},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = r.UpdateHost(context.Background(), "host_missing", models.HostPatch{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteAgentCascades(t *testing.T) {
	r, _ := setupTestRegistry(t)
	agentID := createAgent(t, r, "vlan2")
	otherID := createAgent(t, r, "vlan3")

	for i := 0; i < 3; i++ {
		_, err := r.CreateHost(context.Background(), models.CreateHostRequest{
			Name: fmt.Sprintf("h%d", i), MAC: fmt.Sprintf("00:00:00:00:00:0%d", i), AgentID: &agentID,
		})
		require.NoError(t, err)
	}
	keptID, err := r.CreateHost(context.Background(), models.CreateHostRequest{
		Name: "other", MAC: "00:00:00:00:00:ff", AgentID: &otherID,
	})
	require.NoError(t, err)

	require.NoError(t, r.DeleteAgent(context.Background(), agentID))

	hosts, err := r.ListHosts()
	require.NoError(t, err)
	require.Len(t, hosts, 4)
	for _, h := range hosts {
		if h.ID == keptID {
			require.NotNil(t, h.AgentID)
			assert.Equal(t, otherID, *h.AgentID)
			continue
		}
		assert.Nil(t, h.AgentID, h.Name)
	}

	agents, err := r.ListAgents()
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, otherID, agents[0].ID)

	err = r.DeleteAgent(context.Background(), agentID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteHost(t *testing.T) {
	r, _ := setupTestRegistry(t)
	id, err := r.CreateHost(context.Background(), models.CreateHostRequest{Name: "a", MAC: "00:00:00:00:00:01"})
	require.NoError(t, err)

	require.NoError(t, r.DeleteHost(context.Background(), id))
	_, err = r.Host(id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = r.DeleteHost(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestConcurrentCreatesKeepMACUnique(t *testing.T) {
	r, _ := setupTestRegistry(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := r.CreateHost(context.Background(), models.CreateHostRequest{
				Name: fmt.Sprintf("h%d", n), MAC: "aa:bb:cc:dd:ee:ff",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.Is(err, apperr.KindConflict))
		}
	}
	assert.Equal(t, 1, succeeded)

	hosts, err := r.ListHosts()
	require.NoError(t, err)
	assert.Len(t, hosts, 1)
}

func TestRegistryReadsPersistedState(t *testing.T) {
	r, store := setupTestRegistry(t)
	agentID := createAgent(t, r, "vlan2")
	_, err := r.CreateHost(context.Background(), models.CreateHostRequest{Name: "nas", MAC: "aa:bb:cc:dd:ee:ff", AgentID: &agentID})
	require.NoError(t, err)

	// A second registry over the same file sees the same data
	other := New(store, nil)
	view, err := other.State()
	require.NoError(t, err)
	assert.Len(t, view.Agents, 1)
	assert.Len(t, view.Hosts, 1)
}
