package models

import "time"

// State is the persisted registry document
type State struct {
	Agents []Agent `json:"agents"`
	Hosts  []Host  `json:"hosts"`
}

// StateView is the sanitized registry returned by GET /api/state
type StateView struct {
	Agents []AgentView `json:"agents"`
	Hosts  []Host      `json:"hosts"`
}

// WakeRequest is the optional body of POST /api/wake/:hostId
type WakeRequest struct {
	Broadcast string `json:"broadcast,omitempty"`
	Port      int    `json:"port,omitempty"`
}

// WakeEvent is one entry of the wake history
type WakeEvent struct {
	ID        int64     `json:"id"`
	HostID    string    `json:"hostId"`
	HostName  string    `json:"hostName"`
	MAC       string    `json:"mac"`
	Via       string    `json:"via"`
	AgentID   string    `json:"agentId,omitempty"`
	Broadcast string    `json:"broadcast,omitempty"`
	Port      int       `json:"port,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AgentStatus is the last result of the background health monitor for one agent
type AgentStatus struct {
	AgentID          string    `json:"agentId"`
	Reachable        bool      `json:"reachable"`
	LatencyMs        int64     `json:"latencyMs,omitempty"`
	Error            string    `json:"error,omitempty"`
	LastCheck        time.Time `json:"lastCheck"`
	LastReachable    time.Time `json:"lastReachable,omitempty"`
	ConsecutiveFails int       `json:"consecutiveFails"`
	NextCheck        time.Time `json:"nextCheck"`
}
