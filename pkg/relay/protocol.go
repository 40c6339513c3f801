// Package relay implements the controller side of the agent wire contract:
// an unauthenticated liveness probe and an authenticated wake request.
package relay

import "github.com/kazuhidet/Web-Interface-for-WoL/pkg/auth"

const (
	HealthPath = "/health"
	WakePath   = "/wake"

	// ModeAgent identifies a relay agent in its health response
	ModeAgent = "agent"
)

// TokenHeader is re-exported so both ends share one definition
const TokenHeader = auth.TokenHeader

// WakeRequest is the body of POST /wake
type WakeRequest struct {
	MAC       string `json:"mac"`
	Broadcast string `json:"broadcast,omitempty"`
	Port      int    `json:"port,omitempty"`
}

// WakeResponse confirms the packet an agent sent
type WakeResponse struct {
	OK        bool   `json:"ok"`
	MAC       string `json:"mac"`
	Broadcast string `json:"broadcast"`
	Port      int    `json:"port"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	OK   bool   `json:"ok"`
	Mode string `json:"mode"`
}

// ErrorResponse is returned by an agent on any failure
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
