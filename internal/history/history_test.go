package history

import (
	"context"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm289765/concept-graph-web/internal/bus"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/observability"
)

// stubResolver resolves every valid id except those listed as missing.
type stubResolver struct {
	missing map[node.ID]bool
	calls   int
}

func (s *stubResolver) Get(_ context.Context, id node.ID) (node.Record, bool) {
	s.calls++
	if s.missing[id] {
		return node.Record{}, false
	}
	return node.Record{ID: id, Title: "n" + id.String()}, true
}

type busSource struct {
	*bus.Bus[node.ID]
}

func TestHistory_Bound(t *testing.T) {
	metrics := observability.NewCollector("test")
	h := New(&stubResolver{}, 100, metrics, nil)
	ctx := context.Background()

	for i := 1; i <= 150; i++ {
		require.True(t, h.Add(ctx, node.ID(strconv.Itoa(i))))
	}

	ids := h.IDs()
	require.Len(t, ids, 100)
	assert.Equal(t, node.ID("51"), ids[0])
	assert.Equal(t, node.ID("150"), ids[99])
	assert.Equal(t, 50.0, testutil.ToFloat64(metrics.HistoryEvictions))
}

func TestHistory_AdjacencyDedup(t *testing.T) {
	h := New(&stubResolver{}, 0, nil, nil)
	ctx := context.Background()

	for _, id := range []node.ID{"1", "1", "2", "2", "2", "1"} {
		h.Add(ctx, id)
	}
	assert.Equal(t, []node.ID{"1", "2", "1"}, h.IDs())
}

func TestHistory_MixedIDForms(t *testing.T) {
	h := New(&stubResolver{}, 0, nil, nil)
	ctx := context.Background()

	assert.True(t, h.Add(ctx, "7"))
	assert.False(t, h.Add(ctx, "007"))
	assert.Equal(t, []Entry{{ID: "7", DisplayName: "[#7] n7"}}, h.Entries())
}

func TestHistory_UnresolvableAndInvalid(t *testing.T) {
	r := &stubResolver{missing: map[node.ID]bool{"9": true}}
	h := New(r, 2, nil, nil)
	ctx := context.Background()

	assert.True(t, h.Add(ctx, "1"))
	assert.False(t, h.Add(ctx, "9"))
	assert.False(t, h.Add(ctx, "abc"))
	assert.False(t, h.Add(ctx, node.NoID))
	assert.True(t, h.Add(ctx, "2"))
	assert.True(t, h.Add(ctx, "3"))

	assert.Equal(t, []node.ID{"2", "3"}, h.IDs())
	assert.Equal(t, 4, r.calls)
}

func TestHistory_SetCapacity(t *testing.T) {
	h := New(&stubResolver{}, 10, nil, nil)
	for i := 0; i < 5; i++ {
		h.Add(context.Background(), node.ID(strconv.Itoa(i)))
	}
	h.SetCapacity(2)
	assert.Equal(t, []node.ID{"3", "4"}, h.IDs())
}

func TestHistory_Attach(t *testing.T) {
	h := New(&stubResolver{}, 0, nil, nil)
	src := busSource{bus.New[node.ID]()}

	h.Attach(src)
	src.Publish("4")
	src.Publish(node.NoID)
	src.Publish("4")
	src.Publish("5")

	assert.Equal(t, []node.ID{"4", "5"}, h.IDs())
}
