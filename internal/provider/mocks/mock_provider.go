// Package mocks provides a scriptable provider for testing the client core.
package mocks

import (
	"context"
	"sync"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/graphstore/memory"
	"github.com/jm289765/concept-graph-web/internal/provider"
)

// Update records one UpdateNode call.
type Update struct {
	ID    node.ID
	Field node.Field
	Val   string
}

// Link records one LinkNode or UnlinkNode call.
type Link struct {
	Parent, Child node.ID
	TwoWay        bool
}

// MockProvider serves the provider contract from an in-memory graph and lets
// tests inject errors, block calls and inspect writes.
type MockProvider struct {
	inner provider.Provider
	Store *memory.Store

	mu           sync.Mutex
	shouldFailOn map[string]error
	gates        map[string]chan struct{}
	calls        map[string]int
	updates      []Update
	links        []Link
	unlinks      []Link
}

var _ provider.Provider = (*MockProvider)(nil)

// NewMockProvider returns a provider over a fresh memory store holding only
// the root.
func NewMockProvider() *MockProvider {
	store := memory.New(nil)
	return &MockProvider{
		inner:        provider.NewLocal(store, nil, nil),
		Store:        store,
		shouldFailOn: make(map[string]error),
		gates:        make(map[string]chan struct{}),
		calls:        make(map[string]int),
	}
}

// SetError configures the mock to return an error for a specific method.
func (m *MockProvider) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *MockProvider) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

// Block holds every call of method for id until the returned release
// function runs.
func (m *MockProvider) Block(method string, id node.ID) (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gates[method+"|"+id.String()] = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.gates, method+"|"+id.String())
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Calls reports how many times method was invoked.
func (m *MockProvider) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Updates returns the UpdateNode calls in order.
func (m *MockProvider) Updates() []Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Update(nil), m.updates...)
}

// Links returns the LinkNode calls in order.
func (m *MockProvider) Links() []Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Link(nil), m.links...)
}

// Unlinks returns the UnlinkNode calls in order.
func (m *MockProvider) Unlinks() []Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Link(nil), m.unlinks...)
}

func (m *MockProvider) enter(ctx context.Context, method string, id node.ID) error {
	m.mu.Lock()
	m.calls[method]++
	gate := m.gates[method+"|"+id.String()]
	err := m.shouldFailOn[method]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *MockProvider) GetNode(ctx context.Context, id node.ID) (node.Payload, error) {
	if err := m.enter(ctx, "GetNode", id); err != nil {
		return node.Payload{}, err
	}
	return m.inner.GetNode(ctx, id)
}

func (m *MockProvider) GetNeighbors(ctx context.Context, id node.ID) (node.Neighborhood, error) {
	if err := m.enter(ctx, "GetNeighbors", id); err != nil {
		return node.Neighborhood{}, err
	}
	return m.inner.GetNeighbors(ctx, id)
}

func (m *MockProvider) AddNode(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (node.Payload, error) {
	if err := m.enter(ctx, "AddNode", parent); err != nil {
		return node.Payload{}, err
	}
	return m.inner.AddNode(ctx, typ, title, content, tags, parent)
}

func (m *MockProvider) UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.Payload, error) {
	if err := m.enter(ctx, "UpdateNode", id); err != nil {
		return node.Payload{}, err
	}
	m.mu.Lock()
	m.updates = append(m.updates, Update{ID: id, Field: field, Val: val})
	m.mu.Unlock()
	return m.inner.UpdateNode(ctx, id, field, val)
}

func (m *MockProvider) LinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error {
	if err := m.enter(ctx, "LinkNode", parent); err != nil {
		return err
	}
	m.mu.Lock()
	m.links = append(m.links, Link{Parent: parent, Child: child, TwoWay: twoWay})
	m.mu.Unlock()
	return m.inner.LinkNode(ctx, parent, child, twoWay)
}

func (m *MockProvider) UnlinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error {
	if err := m.enter(ctx, "UnlinkNode", parent); err != nil {
		return err
	}
	m.mu.Lock()
	m.unlinks = append(m.unlinks, Link{Parent: parent, Child: child, TwoWay: twoWay})
	m.mu.Unlock()
	return m.inner.UnlinkNode(ctx, parent, child, twoWay)
}

func (m *MockProvider) Search(ctx context.Context, query string) ([]node.SearchResult, error) {
	if err := m.enter(ctx, "Search", node.NoID); err != nil {
		return nil, err
	}
	return m.inner.Search(ctx, query)
}

func (m *MockProvider) ListNodeIDs(ctx context.Context) ([]node.ID, error) {
	if err := m.enter(ctx, "ListNodeIDs", node.NoID); err != nil {
		return nil, err
	}
	return m.inner.ListNodeIDs(ctx)
}
