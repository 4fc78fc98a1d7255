package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/graphstore/memory"
	"github.com/jm289765/concept-graph-web/internal/server"
)

func testConfig(baseURL string) config.Provider {
	cfg := config.Default().Provider
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	return cfg
}

func newGraphServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := server.New(memory.New(nil), nil, nil, config.Server{}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_RoundTrip(t *testing.T) {
	ts := newGraphServer(t)
	c, err := New(testConfig(ts.URL), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	root, err := c.GetNode(ctx, node.RootID)
	require.NoError(t, err)
	require.Len(t, root.Nodes, 1)
	assert.Equal(t, "root", root.Nodes[0].Title)

	added, err := c.AddNode(ctx, node.TypeComment, "Child", "body", "x", node.RootID)
	require.NoError(t, err)
	require.Len(t, added.Nodes, 1)
	id := added.Nodes[0].ID
	assert.Equal(t, node.TypeComment, added.Nodes[0].Type)

	got, err := c.GetNode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Nodes[0].Content)

	updated, err := c.UpdateNode(ctx, id, node.FieldTags, "y z")
	require.NoError(t, err)
	assert.Equal(t, "y z", updated.Nodes[0].Tags)

	hood, err := c.GetNeighbors(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []node.Edge{node.NewEdge(node.RootID, id)}, hood.Edges)
	assert.Len(t, hood.Nodes, 2)

	require.NoError(t, c.LinkNode(ctx, id, node.RootID, false))
	require.NoError(t, c.UnlinkNode(ctx, node.RootID, id, true))

	results, err := c.Search(ctx, "chi")
	require.NoError(t, err)
	assert.Equal(t, []node.SearchResult{{ID: id, Title: "Child"}}, results)

	ids, err := c.ListNodeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []node.ID{"0", id}, ids)
}

func TestClient_ErrorMapping(t *testing.T) {
	ts := newGraphServer(t)
	c, err := New(testConfig(ts.URL), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		check func(error) bool
		code  string
	}{
		{
			name:  "missing node",
			call:  func() error { _, err := c.GetNode(ctx, "77"); return err },
			check: apperrors.IsNotFound,
			code:  apperrors.CodeNodeNotFound,
		},
		{
			name:  "root update",
			call:  func() error { _, err := c.UpdateNode(ctx, node.RootID, node.FieldTitle, "x"); return err },
			check: apperrors.IsValidation,
			code:  apperrors.CodeRootImmutable,
		},
		{
			name:  "missing edge",
			call:  func() error { return c.UnlinkNode(ctx, node.RootID, "9", false) },
			check: apperrors.IsNotFound,
			code:  apperrors.CodeEdgeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Equal(t, tt.code, apperrors.Code(err))
		})
	}
}

func TestClient_BreakerTripsOnServerErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.Breaker = config.Breaker{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
	c, err := New(cfg, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.GetNode(context.Background(), node.RootID)
		assert.True(t, apperrors.IsTransport(err))
		assert.Equal(t, apperrors.CodeProviderStatus, apperrors.Code(err))
	}

	_, err = c.GetNode(context.Background(), node.RootID)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, apperrors.CodeProviderUnavailable, apperrors.Code(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_NotFoundDoesNotTrip(t *testing.T) {
	ts := newGraphServer(t)
	cfg := testConfig(ts.URL)
	cfg.Breaker.MinRequests = 1
	cfg.Breaker.FailureThreshold = 0.1
	c, err := New(cfg, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.GetNode(context.Background(), "404")
		assert.True(t, apperrors.IsNotFound(err))
	}
	_, err = c.GetNode(context.Background(), node.RootID)
	assert.NoError(t, err)
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(testConfig(url), nil, nil)
	require.NoError(t, err)
	_, err = c.GetNeighbors(context.Background(), node.RootID)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, apperrors.CodeProviderUnavailable, apperrors.Code(err))
}
