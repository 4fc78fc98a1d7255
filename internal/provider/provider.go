// Package provider defines the node-provider contract the client core
// consumes, and an adapter that serves it from a graph store in-process.
package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
	"github.com/jm289765/concept-graph-web/internal/observability"
)

// Provider is the remote side of the node cache. Every call may fail; write
// responses are payloads so the cache normalizes them in one place.
type Provider interface {
	GetNode(ctx context.Context, id node.ID) (node.Payload, error)
	GetNeighbors(ctx context.Context, id node.ID) (node.Neighborhood, error)
	AddNode(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (node.Payload, error)
	UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.Payload, error)
	LinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error
	UnlinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error
	Search(ctx context.Context, query string) ([]node.SearchResult, error)
	ListNodeIDs(ctx context.Context) ([]node.ID, error)
}

// Local serves the provider contract directly from a graph store.
type Local struct {
	store   graphstore.Store
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ Provider = (*Local)(nil)

func NewLocal(store graphstore.Store, metrics *observability.Collector, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{store: store, metrics: metrics, logger: logger}
}

func (l *Local) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		l.logger.Debug("local provider call failed", zap.String("op", op), zap.Error(err))
	}
	l.metrics.ProviderRequest(op, status, time.Since(start))
}

func (l *Local) GetNode(ctx context.Context, id node.ID) (p node.Payload, err error) {
	defer func(start time.Time) { l.observe("get-node", start, err) }(time.Now())
	rec, err := l.store.GetNode(ctx, id)
	if err != nil {
		return node.Payload{}, err
	}
	return node.NewPayload(rec), nil
}

func (l *Local) GetNeighbors(ctx context.Context, id node.ID) (n node.Neighborhood, err error) {
	defer func(start time.Time) { l.observe("get-neighbors", start, err) }(time.Now())
	return l.store.Neighbors(ctx, id)
}

func (l *Local) AddNode(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (p node.Payload, err error) {
	defer func(start time.Time) { l.observe("add", start, err) }(time.Now())
	rec, err := l.store.AddNode(ctx, graphstore.NewNode{
		Type: typ, Title: title, Content: content, Tags: tags, Parent: parent,
	})
	if err != nil {
		return node.Payload{}, err
	}
	return node.NewPayload(rec), nil
}

func (l *Local) UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (p node.Payload, err error) {
	defer func(start time.Time) { l.observe("update", start, err) }(time.Now())
	rec, err := l.store.UpdateNode(ctx, id, field, val)
	if err != nil {
		return node.Payload{}, err
	}
	return node.NewPayload(rec), nil
}

func (l *Local) LinkNode(ctx context.Context, parent, child node.ID, twoWay bool) (err error) {
	defer func(start time.Time) { l.observe("link", start, err) }(time.Now())
	return l.store.Link(ctx, parent, child, twoWay)
}

func (l *Local) UnlinkNode(ctx context.Context, parent, child node.ID, twoWay bool) (err error) {
	defer func(start time.Time) { l.observe("unlink", start, err) }(time.Now())
	return l.store.Unlink(ctx, parent, child, twoWay)
}

func (l *Local) Search(ctx context.Context, query string) (r []node.SearchResult, err error) {
	defer func(start time.Time) { l.observe("search", start, err) }(time.Now())
	return l.store.Search(ctx, query)
}

func (l *Local) ListNodeIDs(ctx context.Context) (ids []node.ID, err error) {
	defer func(start time.Time) { l.observe("get-all-node-ids", start, err) }(time.Now())
	return l.store.ListIDs(ctx)
}
