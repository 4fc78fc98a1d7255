package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
)

func TestStore_SeedsRoot(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	root, err := s.GetNode(ctx, node.RootID)
	require.NoError(t, err)
	assert.Equal(t, "root", root.Title)
	assert.Equal(t, node.TypeRoot, root.Type)

	nb, err := s.Neighbors(ctx, node.RootID)
	require.NoError(t, err)
	assert.Equal(t, []node.Edge{node.NewEdge("0", "0")}, nb.Edges)
	assert.Len(t, nb.Nodes, 1)
}

func TestStore_AddNode(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	t.Run("sequential ids and parent edge", func(t *testing.T) {
		a, err := s.AddNode(ctx, graphstore.NewNode{Title: "A", Parent: node.RootID})
		require.NoError(t, err)
		b, err := s.AddNode(ctx, graphstore.NewNode{Title: "B", Type: node.TypeQuestion, Parent: a.ID})
		require.NoError(t, err)

		assert.Equal(t, node.ID("1"), a.ID)
		assert.Equal(t, node.ID("2"), b.ID)
		assert.Equal(t, node.TypeConcept, a.Type, "empty type defaults to concept")
		assert.Equal(t, node.TypeQuestion, b.Type)

		nb, err := s.Neighbors(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []node.Edge{node.NewEdge("0", "1"), node.NewEdge("1", "2")}, nb.Edges)
		require.Len(t, nb.Nodes, 3)
		assert.Equal(t, a.ID, nb.Nodes[0].ID)
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := s.AddNode(ctx, graphstore.NewNode{Title: "C", Parent: "99"})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("root type rejected", func(t *testing.T) {
		_, err := s.AddNode(ctx, graphstore.NewNode{Title: "R", Type: node.TypeRoot})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("no parent means no edge", func(t *testing.T) {
		rec, err := s.AddNode(ctx, graphstore.NewNode{Title: "lonely"})
		require.NoError(t, err)
		nb, err := s.Neighbors(ctx, rec.ID)
		require.NoError(t, err)
		assert.Empty(t, nb.Edges)
	})
}

func TestStore_UpdateNode(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	rec, err := s.AddNode(ctx, graphstore.NewNode{Title: "old", Parent: node.RootID})
	require.NoError(t, err)

	updated, err := s.UpdateNode(ctx, rec.ID, node.FieldTitle, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)

	got, err := s.GetNode(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = s.UpdateNode(ctx, node.RootID, node.FieldTitle, "hacked")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRootImmutable, apperrors.Code(err))

	_, err = s.UpdateNode(ctx, rec.ID, node.FieldType, "root")
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.UpdateNode(ctx, "42", node.FieldTitle, "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStore_LinkUnlink(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	a, _ := s.AddNode(ctx, graphstore.NewNode{Title: "a"})
	b, _ := s.AddNode(ctx, graphstore.NewNode{Title: "b"})

	require.NoError(t, s.Link(ctx, a.ID, b.ID, true))
	require.NoError(t, s.Link(ctx, a.ID, b.ID, false), "linking twice is idempotent")

	nb, err := s.Neighbors(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []node.Edge{node.NewEdge(a.ID, b.ID), node.NewEdge(b.ID, a.ID)}, nb.Edges)

	require.NoError(t, s.Unlink(ctx, a.ID, b.ID, false))
	nb, _ = s.Neighbors(ctx, a.ID)
	assert.Equal(t, []node.Edge{node.NewEdge(b.ID, a.ID)}, nb.Edges)

	err = s.Unlink(ctx, a.ID, b.ID, false)
	assert.Equal(t, apperrors.CodeEdgeNotFound, apperrors.Code(err))

	err = s.Link(ctx, a.ID, "77", false)
	assert.True(t, apperrors.IsNotFound(err))

	err = s.Unlink(ctx, node.RootID, node.RootID, false)
	assert.Equal(t, apperrors.CodeRootImmutable, apperrors.Code(err))
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	for _, title := range []string{"Graph theory", "cooking", "graphs of functions"} {
		_, err := s.AddNode(ctx, graphstore.NewNode{Title: title})
		require.NoError(t, err)
	}

	hits, err := s.Search(ctx, "GRAPH")
	require.NoError(t, err)
	assert.Equal(t, []node.SearchResult{
		{ID: "1", Title: "Graph theory"},
		{ID: "3", Title: "graphs of functions"},
	}, hits)

	hits, err = s.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, hits)

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []node.ID{"0", "1", "2", "3"}, ids)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddNode(ctx, graphstore.NewNode{Title: "n", Parent: node.RootID})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ids, _ := s.ListIDs(ctx)
	assert.Len(t, ids, 51)
	seen := map[node.ID]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
