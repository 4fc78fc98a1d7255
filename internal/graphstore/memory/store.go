// Package memory is an in-process graph store. It is the default backend for
// local development and the fixture for client tests.
package memory

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
)

// Store keeps nodes and edges in memory. Ids are assigned sequentially from 1.
type Store struct {
	mu     sync.RWMutex
	nodes  map[node.ID]node.Record
	order  []node.ID
	edges  []node.Edge
	nextID uint64
	logger *zap.Logger
}

var _ graphstore.Store = (*Store)(nil)

// New returns a store holding only the root and its self-loop.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	root := graphstore.RootRecord()
	return &Store{
		nodes:  map[node.ID]node.Record{root.ID: root},
		order:  []node.ID{root.ID},
		edges:  []node.Edge{node.NewEdge(root.ID, root.ID)},
		nextID: 1,
		logger: logger,
	}
}

func (s *Store) GetNode(_ context.Context, id node.ID) (node.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.nodes[id]
	if !ok {
		return node.Record{}, graphstore.NodeNotFound("GetNode", id)
	}
	return rec, nil
}

// Neighbors returns the focal node, every edge touching it in insertion
// order, and each endpoint once.
func (s *Store) Neighbors(_ context.Context, id node.ID) (node.Neighborhood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	focal, ok := s.nodes[id]
	if !ok {
		return node.Neighborhood{}, graphstore.NodeNotFound("Neighbors", id)
	}

	out := node.Neighborhood{Nodes: []node.Record{focal}, Edges: []node.Edge{}}
	seen := map[node.ID]bool{id: true}
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			continue
		}
		out.Edges = append(out.Edges, e)
		for _, end := range []node.ID{e.Source, e.Target} {
			if !seen[end] {
				seen[end] = true
				out.Nodes = append(out.Nodes, s.nodes[end])
			}
		}
	}
	return out, nil
}

func (s *Store) AddNode(_ context.Context, n graphstore.NewNode) (node.Record, error) {
	n, err := graphstore.PrepareNew(n)
	if err != nil {
		return node.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !n.Parent.IsZero() {
		if _, ok := s.nodes[n.Parent]; !ok {
			return node.Record{}, graphstore.NodeNotFound("AddNode", n.Parent)
		}
	}

	id := node.ID(strconv.FormatUint(s.nextID, 10))
	s.nextID++

	rec := node.Record{ID: id, Title: n.Title, Content: n.Content, Tags: n.Tags, Type: n.Type}
	s.nodes[id] = rec
	s.order = append(s.order, id)
	if !n.Parent.IsZero() {
		s.addEdge(node.NewEdge(n.Parent, id))
	}

	s.logger.Debug("Node added", zap.String("nodeID", id.String()), zap.String("parent", n.Parent.String()))
	return rec, nil
}

func (s *Store) UpdateNode(_ context.Context, id node.ID, field node.Field, val string) (node.Record, error) {
	if err := graphstore.CheckUpdate(id, field, val); err != nil {
		return node.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nodes[id]
	if !ok {
		return node.Record{}, graphstore.NodeNotFound("UpdateNode", id)
	}
	rec = rec.With(field, val)
	s.nodes[id] = rec
	return rec, nil
}

func (s *Store) Link(_ context.Context, parent, child node.ID, twoWay bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []node.ID{parent, child} {
		if _, ok := s.nodes[id]; !ok {
			return graphstore.NodeNotFound("Link", id)
		}
	}
	s.addEdge(node.NewEdge(parent, child))
	if twoWay {
		s.addEdge(node.NewEdge(child, parent))
	}
	return nil
}

func (s *Store) Unlink(_ context.Context, parent, child node.ID, twoWay bool) error {
	if err := graphstore.CheckUnlink(parent, child); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	forward := node.NewEdge(parent, child)
	removed := s.removeEdge(forward)
	if twoWay {
		if s.removeEdge(node.NewEdge(child, parent)) {
			removed = true
		}
	}
	if !removed {
		return graphstore.EdgeNotFound("Unlink", forward)
	}
	return nil
}

// Search matches titles case-insensitively, in id order.
func (s *Store) Search(_ context.Context, query string) ([]node.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []node.SearchResult{}
	for _, id := range s.order {
		rec := s.nodes[id]
		if graphstore.MatchTitle(rec.Title, query) {
			results = append(results, node.SearchResult{ID: rec.ID, Title: rec.Title})
		}
	}
	return results, nil
}

func (s *Store) ListIDs(_ context.Context) ([]node.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]node.ID(nil), s.order...), nil
}

// addEdge appends e unless it already exists. Callers hold mu.
func (s *Store) addEdge(e node.Edge) {
	for _, existing := range s.edges {
		if existing == e {
			return
		}
	}
	s.edges = append(s.edges, e)
}

// removeEdge deletes e and reports whether it was present. Callers hold mu.
func (s *Store) removeEdge(e node.Edge) bool {
	for i, existing := range s.edges {
		if existing == e {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return true
		}
	}
	return false
}
