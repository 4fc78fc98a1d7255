package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
	"github.com/jm289765/concept-graph-web/internal/provider/mocks"
)

func seeded(t *testing.T, titles ...string) *mocks.MockProvider {
	t.Helper()
	p := mocks.NewMockProvider()
	for _, title := range titles {
		_, err := p.Store.AddNode(context.Background(), graphstore.NewNode{Title: title, Parent: node.RootID})
		require.NoError(t, err)
	}
	return p
}

type selectorFunc func(ctx context.Context, id node.ID) node.ID

func (f selectorFunc) SetSelectedNode(ctx context.Context, id node.ID) node.ID { return f(ctx, id) }

func TestBox_Run(t *testing.T) {
	p := seeded(t, "Graph theory", "Cooking", "graphs in practice")
	b := New(p, time.Hour, nil)
	defer b.Close()

	tests := []struct {
		name  string
		query string
		want  []node.SearchResult
	}{
		{
			name:  "case insensitive in insertion order",
			query: "GRAPH",
			want:  []node.SearchResult{{ID: "1", Title: "Graph theory"}, {ID: "3", Title: "graphs in practice"}},
		},
		{name: "no match", query: "physics", want: []node.SearchResult{}},
		{name: "blank", query: "   ", want: []node.SearchResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Run(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, b.Results())
		})
	}
}

func TestBox_BlankQuerySkipsProvider(t *testing.T) {
	p := seeded(t, "a")
	b := New(p, time.Hour, nil)

	_, err := b.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Calls("Search"))
}

func TestBox_TypeSettles(t *testing.T) {
	p := seeded(t, "alpha", "alphabet", "beta")
	b := New(p, 20*time.Millisecond, nil)
	defer b.Close()

	var (
		mu        sync.Mutex
		published [][]node.SearchResult
	)
	b.OnResults(func(r []node.SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, r)
	})

	b.Type("a")
	b.Type("al")
	b.Type("alph")
	assert.Equal(t, "alph", b.Query())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(published) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, p.Calls("Search"))
	assert.Equal(t, []node.SearchResult{{ID: "1", Title: "alpha"}, {ID: "2", Title: "alphabet"}}, b.Results())
}

func TestBox_Flush(t *testing.T) {
	p := seeded(t, "beta")
	b := New(p, time.Hour, nil)

	b.Type("bet")
	assert.True(t, b.Flush())
	assert.Equal(t, []node.SearchResult{{ID: "1", Title: "beta"}}, b.Results())
	assert.False(t, b.Flush())
}

func TestBox_FailureKeepsResults(t *testing.T) {
	p := seeded(t, "beta")
	b := New(p, time.Hour, nil)

	_, err := b.Run(context.Background(), "beta")
	require.NoError(t, err)

	p.SetError("Search", errors.New("offline"))
	_, err = b.Run(context.Background(), "be")
	assert.Error(t, err)
	assert.Equal(t, []node.SearchResult{{ID: "1", Title: "beta"}}, b.Results())
}

func TestBox_SetWindow(t *testing.T) {
	b := New(seeded(t), 0, nil)
	assert.Equal(t, DefaultWindow, b.Window())

	b.SetWindow(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, b.Window())

	b.SetWindow(-1)
	assert.Equal(t, DefaultWindow, b.Window())
}

func TestOpen(t *testing.T) {
	var got node.ID
	target := selectorFunc(func(_ context.Context, id node.ID) node.ID {
		got = id
		return id
	})

	sel := Open(context.Background(), node.SearchResult{ID: "4", Title: "four"}, target)
	assert.Equal(t, node.ID("4"), sel)
	assert.Equal(t, node.ID("4"), got)
}
