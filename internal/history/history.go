// Package history keeps the bounded list of visited nodes.
package history

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/bus"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/observability"
)

// DefaultCapacity bounds the list when no capacity is configured.
const DefaultCapacity = 100

// Resolver looks records up, typically the node cache.
type Resolver interface {
	Get(ctx context.Context, id node.ID) (node.Record, bool)
}

// Source emits selection changes. Editors implement it.
type Source interface {
	Subscribe(h bus.Handler[node.ID]) bus.Subscription
}

// Entry is one visit.
type Entry struct {
	ID          node.ID
	DisplayName string
}

// History is a bounded list of visits with consecutive duplicates
// suppressed. The oldest entries are evicted first.
type History struct {
	resolver Resolver
	metrics  *observability.Collector
	logger   *zap.Logger

	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// New returns an empty history that resolves display names through resolver.
func New(resolver Resolver, capacity int, metrics *observability.Collector, logger *zap.Logger) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{resolver: resolver, capacity: capacity, metrics: metrics, logger: logger}
}

// Add records a visit to id. It is a no-op when id repeats the latest entry,
// is invalid, or cannot be resolved. It reports whether an entry was added.
func (h *History) Add(ctx context.Context, id node.ID) bool {
	key, ok := node.Canonical(id)
	if !ok {
		return false
	}
	if h.isLatest(key) {
		return false
	}

	rec, ok := h.resolver.Get(ctx, key)
	if !ok {
		h.logger.Debug("History entry not resolvable", zap.String("nodeID", key.String()))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// another Add may have landed while resolving
	if n := len(h.entries); n > 0 && h.entries[n-1].ID == key {
		return false
	}
	h.entries = append(h.entries, Entry{ID: key, DisplayName: rec.DisplayName()})
	for len(h.entries) > h.capacity {
		h.entries[0] = Entry{}
		h.entries = h.entries[1:]
		h.metrics.HistoryEviction()
	}
	return true
}

func (h *History) isLatest(id node.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.entries)
	return n > 0 && h.entries[n-1].ID == id
}

// Entries returns the visits, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// IDs returns the visited ids, oldest first.
func (h *History) IDs() []node.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]node.ID, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.ID
	}
	return out
}

// Len reports the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Capacity returns the current bound.
func (h *History) Capacity() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capacity
}

// SetCapacity changes the bound, evicting the oldest entries if needed.
func (h *History) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.capacity = capacity
	for len(h.entries) > h.capacity {
		h.entries = h.entries[1:]
		h.metrics.HistoryEviction()
	}
}

// Attach records every selection src publishes. A null selection is
// ignored.
func (h *History) Attach(src Source) bus.Subscription {
	return src.Subscribe(func(id node.ID) {
		if id.IsZero() {
			return
		}
		h.Add(context.Background(), id)
	})
}
