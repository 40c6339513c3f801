package models

import (
	"bytes"
	"encoding/json"
)

// Host is a wakeable machine. A nil AgentID means the controller wakes it
// from its own segment.
type Host struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	MAC     string  `json:"mac"`
	AgentID *string `json:"agentId"`
}

// IsLocal reports whether the host is woken without a relay
func (h Host) IsLocal() bool {
	return h.AgentID == nil
}

// CreateHostRequest represents the host registration request
type CreateHostRequest struct {
	Name    string  `json:"name"`
	MAC     string  `json:"mac"`
	AgentID *string `json:"agentId"`
}

// HostPatch carries the fields of a partial host update
type HostPatch struct {
	Name    *string        `json:"name,omitempty"`
	MAC     *string        `json:"mac,omitempty"`
	AgentID NullableString `json:"agentId"`
}

// NullableString distinguishes an absent JSON field from an explicit null.
// Set is true whenever the field appeared in the document.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records presence and accepts either a string or null
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// MarshalJSON writes the value or null
func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// StringPtr is a small helper for building optional fields
func StringPtr(s string) *string {
	return &s
}
