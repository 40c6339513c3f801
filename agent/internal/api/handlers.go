package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/auth"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/relay"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/wol"
)

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// PacketSender transmits a magic packet on the agent's segment
type PacketSender interface {
	Wake(ctx context.Context, mac string, t wol.Target) (wol.Result, error)
}

type Handler struct {
	sender PacketSender
	token  string
}

func NewHandler(sender PacketSender, token string) *Handler {
	return &Handler{
		sender: sender,
		token:  token,
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), relay.ErrorResponse{OK: false, Error: err.Error()})
}

// Wake godoc
// @Summary Send a magic packet
// @Description Broadcast a Wake-on-LAN packet on this agent's network segment
// @Tags wake
// @Accept json
// @Produce json
// @Param X-Agent-Token header string true "Shared agent token"
// @Param request body relay.WakeRequest true "Target MAC and optional destination"
// @Success 200 {object} relay.WakeResponse
// @Failure 400 {object} relay.ErrorResponse
// @Failure 401 {object} relay.ErrorResponse
// @Failure 500 {object} relay.ErrorResponse
// @Router /wake [post]
func (h *Handler) Wake(c *gin.Context) {
	if !auth.ValidateToken(c.GetHeader(auth.TokenHeader), h.token) {
		logger.Log.Warnf("Rejected wake request from %s: bad token", c.ClientIP())
		respondError(c, apperr.Unauthorized("Unauthorized"))
		return
	}

	var req relay.WakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	mac, err := wol.NormalizeMAC(req.MAC)
	if err != nil {
		respondError(c, err)
		return
	}

	target := wol.Target{Broadcast: req.Broadcast, Port: req.Port}
	if err := wol.ValidateTarget(target); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.sender.Wake(c.Request.Context(), mac, target)
	if err != nil {
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
			logger.Log.Errorf("Wake of %s failed: %v", mac, err)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, relay.WakeResponse{
		OK:        true,
		MAC:       res.MAC,
		Broadcast: res.Broadcast,
		Port:      res.Port,
	})
}

// HealthCheck godoc
// @Summary Health check
// @Description Liveness probe used by the controller; requires no token
// @Tags health
// @Produce json
// @Success 200 {object} relay.HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, relay.HealthResponse{OK: true, Mode: relay.ModeAgent})
}
