// Package messaging describes the change events the graph server emits after
// each successful mutation.
package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
)

// Source is the event source name used on every bus.
const Source = "concept-graph.server"

const (
	TypeNodeAdded    = "NodeAdded"
	TypeNodeUpdated  = "NodeUpdated"
	TypeEdgeLinked   = "EdgeLinked"
	TypeEdgeUnlinked = "EdgeUnlinked"
)

// GraphEvent is one mutation of the graph.
type GraphEvent struct {
	EventID   string     `json:"eventId"`
	Type      string     `json:"type"`
	NodeID    node.ID    `json:"nodeId,omitempty"`
	Field     node.Field `json:"field,omitempty"`
	Parent    node.ID    `json:"parent,omitempty"`
	Child     node.ID    `json:"child,omitempty"`
	TwoWay    bool       `json:"twoWay,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// AggregateID names the node the event is about.
func (e GraphEvent) AggregateID() node.ID {
	if !e.NodeID.IsZero() {
		return e.NodeID
	}
	return e.Parent
}

func newEvent(typ string) GraphEvent {
	return GraphEvent{EventID: uuid.NewString(), Type: typ, Timestamp: time.Now().UTC()}
}

func NodeAdded(rec node.Record, parent node.ID) GraphEvent {
	e := newEvent(TypeNodeAdded)
	e.NodeID, e.Parent = rec.ID, parent
	return e
}

func NodeUpdated(id node.ID, field node.Field) GraphEvent {
	e := newEvent(TypeNodeUpdated)
	e.NodeID, e.Field = id, field
	return e
}

func EdgeLinked(parent, child node.ID, twoWay bool) GraphEvent {
	e := newEvent(TypeEdgeLinked)
	e.Parent, e.Child, e.TwoWay = parent, child, twoWay
	return e
}

func EdgeUnlinked(parent, child node.ID, twoWay bool) GraphEvent {
	e := newEvent(TypeEdgeUnlinked)
	e.Parent, e.Child, e.TwoWay = parent, child, twoWay
	return e
}

// Publisher delivers graph events.
type Publisher interface {
	Publish(ctx context.Context, events ...GraphEvent) error
}

// Noop drops every event. It is used when no event bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, ...GraphEvent) error { return nil }
