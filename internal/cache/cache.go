// Package cache is the process-wide node cache. Records are fetched lazily
// from a provider and overwritten whole on every response; nothing is
// evicted during a session.
package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/observability"
	"github.com/jm289765/concept-graph-web/internal/provider"
)

// NodeCache memoizes node records by canonical id. It is safe for concurrent
// use; the last response to land for an id wins.
type NodeCache struct {
	mu       sync.RWMutex
	nodes    map[node.ID]node.Record
	provider provider.Provider
	metrics  *observability.Collector
	logger   *zap.Logger
}

// New creates an empty cache backed by p.
func New(p provider.Provider, metrics *observability.Collector, logger *zap.Logger) *NodeCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeCache{
		nodes:    make(map[node.ID]node.Record),
		provider: p,
		metrics:  metrics,
		logger:   logger,
	}
}

// Get returns the cached record for id, fetching it on a miss. It reports
// false for an invalid id or when the provider has nothing.
func (c *NodeCache) Get(ctx context.Context, id node.ID) (node.Record, bool) {
	key, ok := node.Canonical(id)
	if !ok {
		return node.Record{}, false
	}
	if rec, ok := c.load(key); ok {
		c.metrics.CacheHit()
		return rec, true
	}
	c.metrics.CacheMiss()
	if !c.Update(ctx, key) {
		return node.Record{}, false
	}
	return c.load(key)
}

// Put overwrites the record stored under id. It reports false and stores
// nothing when id is invalid.
func (c *NodeCache) Put(id node.ID, rec node.Record) bool {
	key, ok := node.Canonical(id)
	if !ok {
		return false
	}
	c.store(key, rec)
	return true
}

// Has reports membership without fetching.
func (c *NodeCache) Has(id node.ID) bool {
	key, ok := node.Canonical(id)
	if !ok {
		return false
	}
	_, ok = c.load(key)
	return ok
}

// Len reports how many records are cached.
func (c *NodeCache) Len() int {
	return c.size()
}

// Update fetches id from the provider and ingests the response. It reports
// whether anything was ingested.
func (c *NodeCache) Update(ctx context.Context, id node.ID) bool {
	key, ok := node.Canonical(id)
	if !ok {
		return false
	}

	ctx, span := observability.Tracer().Start(ctx, "cache.Update",
		trace.WithAttributes(attribute.String("node.id", key.String())))
	defer span.End()

	payload, err := c.provider.GetNode(ctx, key)
	if err != nil {
		c.logFailure("GetNode", key, err)
		return false
	}
	return len(c.Ingest(payload)) > 0
}

// Ingest puts every record of p and returns their ids in input order.
// Records without a valid id are skipped.
func (c *NodeCache) Ingest(p node.Payload) []node.ID {
	ids := make([]node.ID, 0, len(p.Nodes))
	for _, rec := range p.Nodes {
		if key, ok := node.Canonical(rec.ID); ok {
			c.store(key, rec)
			ids = append(ids, key)
		}
	}
	c.metrics.Ingested(len(ids))
	return ids
}

// GetNeighbors fetches the neighborhood of id and ingests its nodes.
func (c *NodeCache) GetNeighbors(ctx context.Context, id node.ID) (node.Neighborhood, bool) {
	key, ok := node.Canonical(id)
	if !ok {
		return node.Neighborhood{}, false
	}

	ctx, span := observability.Tracer().Start(ctx, "cache.GetNeighbors",
		trace.WithAttributes(attribute.String("node.id", key.String())))
	defer span.End()

	hood, err := c.provider.GetNeighbors(ctx, key)
	if err != nil {
		c.logFailure("GetNeighbors", key, err)
		return node.Neighborhood{}, false
	}
	c.Ingest(node.NewPayload(hood.Nodes...))
	return hood, true
}

// CreateNode adds a node through the provider and returns the first
// ingested id.
func (c *NodeCache) CreateNode(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (node.ID, error) {
	if !parent.IsZero() && !node.IsValidID(parent) {
		return node.NoID, apperrors.InvalidID(parent).WithOperation("CreateNode").Build()
	}
	payload, err := c.provider.AddNode(ctx, typ, title, content, tags, parent)
	if err != nil {
		c.logFailure("AddNode", parent, err)
		return node.NoID, err
	}
	return c.first("CreateNode", payload)
}

// UpdateNode writes one attribute through the provider and returns the
// first ingested id.
func (c *NodeCache) UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.ID, error) {
	key, ok := node.Canonical(id)
	if !ok {
		return node.NoID, apperrors.InvalidID(id).WithOperation("UpdateNode").Build()
	}
	payload, err := c.provider.UpdateNode(ctx, key, field, val)
	if err != nil {
		c.logFailure("UpdateNode", key, err)
		return node.NoID, err
	}
	return c.first("UpdateNode", payload)
}

// Delete is not supported by the graph backend.
func (c *NodeCache) Delete(_ context.Context, id node.ID) error {
	err := apperrors.Unimplemented("Delete").
		WithResource("node:" + id.String()).
		Build()
	c.logger.Error("Node deletion is not implemented", zap.String("nodeID", id.String()), zap.Error(err))
	return err
}

func (c *NodeCache) first(op string, payload node.Payload) (node.ID, error) {
	ids := c.Ingest(payload)
	if len(ids) == 0 {
		return node.NoID, apperrors.Transport(apperrors.CodeProviderDecode, "provider returned no nodes").
			WithOperation(op).
			Build()
	}
	return ids[0], nil
}

func (c *NodeCache) logFailure(op string, id node.ID, err error) {
	c.logger.Debug("Provider call failed",
		zap.String("op", op),
		zap.String("nodeID", id.String()),
		zap.Error(err),
	)
}

func (c *NodeCache) load(id node.ID) (node.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.nodes[id]
	return rec, ok
}

func (c *NodeCache) store(id node.ID, rec node.Record) {
	c.mu.Lock()
	c.nodes[id] = rec
	c.mu.Unlock()
}

func (c *NodeCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}
