package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/dispatch"
	"github.com/kazuhidet/Web-Interface-for-WoL/controller/internal/registry"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/auth"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
)

func init() {
	// Request bodies with fields we don't know are rejected, not ignored
	binding.EnableDecoderDisallowUnknownFields = true
}

// Waker is the part of the dispatcher the API needs
type Waker interface {
	Wake(ctx context.Context, hostID string, opts dispatch.Options) (*dispatch.Result, error)
	CheckAgentHealth(ctx context.Context, agentID string) (models.AgentHealth, error)
}

// WakeHistory lists recorded wake attempts
type WakeHistory interface {
	RecentWakes(hostID string, limit int) ([]models.WakeEvent, error)
}

// StatusProvider exposes the background monitor results
type StatusProvider interface {
	Statuses() map[string]models.AgentStatus
}

// Broker is an event publisher whose connection health is reported on /health
type Broker interface {
	HealthCheck() error
}

type Handler struct {
	registry      *registry.Registry
	waker         Waker
	history       WakeHistory
	monitor       StatusProvider
	brokers       map[string]Broker
	adminUsername string
	adminPassword string
}

// NewHandler wires the API. history and monitor may be nil.
func NewHandler(reg *registry.Registry, waker Waker, history WakeHistory, monitor StatusProvider) *Handler {
	return &Handler{
		registry: reg,
		waker:    waker,
		history:  history,
		monitor:  monitor,
		brokers:  make(map[string]Broker),
	}
}

// AddBroker includes a publisher in the health report
func (h *Handler) AddBroker(name string, b Broker) {
	h.brokers[name] = b
}

// SetAdminCredentials enables Basic auth on the API. An empty password
// disables it.
func (h *Handler) SetAdminCredentials(username, password string) {
	h.adminUsername = username
	h.adminPassword = password
}

// AdminAuthMiddleware validates the operator credentials when configured
func (h *Handler) AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminPassword == "" {
			c.Next()
			return
		}
		if !auth.ValidateBasicAuth(c.GetHeader("Authorization"), h.adminUsername, h.adminPassword) {
			c.Header("WWW-Authenticate", `Basic realm="wol"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Log.Warnf("%s %s rejected: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error(), "kind": apperr.KindOf(err)})
}

func bindBody(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

// GetState godoc
// @Summary Get registry state
// @Description List all agents (without tokens) and hosts
// @Tags state
// @Produce json
// @Success 200 {object} models.StateView
// @Failure 500 {object} map[string]interface{}
// @Router /api/state [get]
func (h *Handler) GetState(c *gin.Context) {
	state, err := h.registry.State()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// CreateAgent godoc
// @Summary Register a relay agent
// @Tags agents
// @Accept json
// @Produce json
// @Param request body models.CreateAgentRequest true "Agent"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/agents [post]
func (h *Handler) CreateAgent(c *gin.Context) {
	var req models.CreateAgentRequest
	if !bindBody(c, &req) {
		return
	}

	id, err := h.registry.CreateAgent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// UpdateAgent godoc
// @Summary Update a relay agent
// @Tags agents
// @Accept json
// @Produce json
// @Param id path string true "Agent ID"
// @Param request body models.AgentPatch true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/agents/{id} [put]
func (h *Handler) UpdateAgent(c *gin.Context) {
	var patch models.AgentPatch
	if !bindBody(c, &patch) {
		return
	}

	if err := h.registry.UpdateAgent(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteAgent godoc
// @Summary Delete a relay agent
// @Description Hosts assigned to the agent are moved back to local wake
// @Tags agents
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/agents/{id} [delete]
func (h *Handler) DeleteAgent(c *gin.Context) {
	if err := h.registry.DeleteAgent(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AgentHealth godoc
// @Summary Probe a relay agent
// @Description Unreachable agents are reported with reachable=false, not as an error
// @Tags agents
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} models.AgentHealth
// @Failure 404 {object} map[string]interface{}
// @Router /api/agents/{id}/health [get]
func (h *Handler) AgentHealth(c *gin.Context) {
	health, err := h.waker.CheckAgentHealth(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, health)
}

// AgentStatuses godoc
// @Summary Background monitor results
// @Tags agents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/agents/status [get]
func (h *Handler) AgentStatuses(c *gin.Context) {
	statuses := map[string]models.AgentStatus{}
	if h.monitor != nil {
		statuses = h.monitor.Statuses()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "enabled": h.monitor != nil, "agents": statuses})
}

// CreateHost godoc
// @Summary Register a host
// @Tags hosts
// @Accept json
// @Produce json
// @Param request body models.CreateHostRequest true "Host"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/hosts [post]
func (h *Handler) CreateHost(c *gin.Context) {
	var req models.CreateHostRequest
	if !bindBody(c, &req) {
		return
	}

	id, err := h.registry.CreateHost(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// UpdateHost godoc
// @Summary Update a host
// @Description agentId null or "" moves the host back to local wake
// @Tags hosts
// @Accept json
// @Produce json
// @Param id path string true "Host ID"
// @Param request body models.HostPatch true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/hosts/{id} [put]
func (h *Handler) UpdateHost(c *gin.Context) {
	var patch models.HostPatch
	if !bindBody(c, &patch) {
		return
	}

	if err := h.registry.UpdateHost(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteHost godoc
// @Summary Delete a host
// @Tags hosts
// @Produce json
// @Param id path string true "Host ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/hosts/{id} [delete]
func (h *Handler) DeleteHost(c *gin.Context) {
	if err := h.registry.DeleteHost(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WakeHost godoc
// @Summary Wake a host
// @Description Sends the magic packet locally or through the host's relay agent
// @Tags wake
// @Accept json
// @Produce json
// @Param hostId path string true "Host ID"
// @Param request body models.WakeRequest false "Destination overrides"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/wake/{hostId} [post]
func (h *Handler) WakeHost(c *gin.Context) {
	var req models.WakeRequest
	if c.Request.ContentLength != 0 && c.Request.Body != nil && c.Request.Body != http.NoBody {
		if !bindBody(c, &req) {
			return
		}
	}

	res, err := h.waker.Wake(c.Request.Context(), c.Param("hostId"), dispatch.Options{
		Broadcast: req.Broadcast,
		Port:      req.Port,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Via == dispatch.ViaAgent {
		c.JSON(http.StatusOK, gin.H{"ok": true, "via": res.Via, "agentId": res.AgentID, "result": res.Relay})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"via":       res.Via,
		"mac":       res.Local.MAC,
		"broadcast": res.Local.Broadcast,
		"port":      res.Local.Port,
	})
}

// ListWakes godoc
// @Summary Wake history
// @Tags wake
// @Produce json
// @Param hostId query string false "Only this host"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/wakes [get]
func (h *Handler) ListWakes(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "events": []models.WakeEvent{}})
		return
	}

	limit := 0
	if l := c.Query("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val < 0 {
			respondError(c, apperr.Validation("invalid limit %q", l))
			return
		}
		limit = val
	}

	events, err := h.history.RecentWakes(c.Query("hostId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "events": events})
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports the controller mode and, when configured, each event broker's connection state
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{"ok": true, "mode": "controller"}
	if len(h.brokers) > 0 {
		brokers := make(map[string]string, len(h.brokers))
		for name, b := range h.brokers {
			if err := b.HealthCheck(); err != nil {
				brokers[name] = err.Error()
				continue
			}
			brokers[name] = "ok"
		}
		resp["brokers"] = brokers
	}
	c.JSON(http.StatusOK, resp)
}
