package models

// Agent is a relay endpoint living inside one broadcast domain
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Token string `json:"token"`
}

// AgentView is the sanitized form of an Agent returned to read callers
type AgentView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// View strips the shared secret
func (a Agent) View() AgentView {
	return AgentView{ID: a.ID, Name: a.Name, URL: a.URL}
}

// CreateAgentRequest represents the agent registration request
type CreateAgentRequest struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Token string `json:"token"`
}

// AgentPatch carries the fields of a partial agent update. Nil means unchanged.
type AgentPatch struct {
	Name  *string `json:"name,omitempty"`
	URL   *string `json:"url,omitempty"`
	Token *string `json:"token,omitempty"`
}

// AgentHealth is the outcome of a liveness probe against an agent
type AgentHealth struct {
	OK        bool                   `json:"ok"`
	Reachable bool                   `json:"reachable"`
	LatencyMs *int64                 `json:"latencyMs,omitempty"`
	Response  map[string]interface{} `json:"response,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
