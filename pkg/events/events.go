// Package events describes the notifications the controller emits after
// registry changes and wake attempts, and fans them out to publishers.
package events

import (
	"context"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
)

// Type names an event
type Type string

const (
	AgentCreated Type = "agent.created"
	AgentUpdated Type = "agent.updated"
	AgentDeleted Type = "agent.deleted"
	HostCreated  Type = "host.created"
	HostUpdated  Type = "host.updated"
	HostDeleted  Type = "host.deleted"
	WakeSent     Type = "wake.sent"
	WakeFailed   Type = "wake.failed"
)

// Event is published as JSON. Tokens never appear in events.
type Event struct {
	Type      Type      `json:"type"`
	ID        string    `json:"id"`
	Via       string    `json:"via,omitempty"`
	AgentID   string    `json:"agentId,omitempty"`
	MAC       string    `json:"mac,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to a broker
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every configured publisher. Failures are logged and
// never propagated: notifications are best effort.
type Fanout struct {
	publishers []Publisher
}

// NewFanout ignores nil publishers so disabled brokers can be passed as is
func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil && !isNilPublisher(p) {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Len returns the number of active publishers
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Emit stamps the event and publishes it everywhere
func (f *Fanout) Emit(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	for _, p := range f.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			logger.Log.Warnf("Failed to publish %s event for %s: %v", ev.Type, ev.ID, err)
		}
	}
}

// nilChecker lets typed-nil clients opt out, matching the nil-receiver style
// of the broker clients
type nilChecker interface {
	IsNil() bool
}

func isNilPublisher(p Publisher) bool {
	if nc, ok := p.(nilChecker); ok {
		return nc.IsNil()
	}
	return false
}
