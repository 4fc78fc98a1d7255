package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
	"github.com/jm289765/concept-graph-web/internal/graphstore/memory"
	"github.com/jm289765/concept-graph-web/internal/server"
)

type harness struct {
	url   string
	store *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	store := memory.New(nil)
	ts := httptest.NewServer(server.New(store, nil, nil, config.Server{}, nil).Handler())
	t.Cleanup(ts.Close)
	return &harness{url: ts.URL, store: store}
}

func (h *harness) seed(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, err := h.store.AddNode(context.Background(), graphstore.NewNode{Title: title, Parent: node.RootID})
		require.NoError(t, err)
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--server", h.url}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGet(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "get", "0")
	require.NoError(t, err)
	assert.Equal(t, "[#0] root\ntype: root\n", out)

	_, err = h.run(t, "", "get", "42")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = h.run(t, "", "get", "abc")
	assert.Error(t, err)
}

func TestAddUpdateNeighbors(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "add", "--title", "Graphs", "--parent", "0", "--tags", "math")
	require.NoError(t, err)
	assert.Equal(t, "created [#1] Graphs\n", out)

	out, err = h.run(t, "", "update", "1", "content", "Vertices and edges")
	require.NoError(t, err)
	assert.Equal(t, "[#1] Graphs\ntype: concept\ntags: math\n\nVertices and edges\n", out)

	out, err = h.run(t, "", "neighbors", "1")
	require.NoError(t, err)
	assert.Equal(t, "Parents:\n  [#0] root\nChildren:\n", out)

	out, err = h.run(t, "", "neighbors", "0")
	require.NoError(t, err)
	assert.Equal(t, "Parents:\n  [#0] root\nChildren:\n  [#0] root\n  [#1] Graphs\n", out)
}

func TestAdd_RejectsRootType(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "add", "--title", "x", "--type", "root")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidAttribute, apperrors.Code(err))
}

func TestUpdate_RootRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "update", "0", "title", "renamed")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.run(t, "", "update", "0", "colour", "red")
	assert.ErrorContains(t, err, "unknown node attribute")
}

func TestLinkUnlink(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "one", "two")

	out, err := h.run(t, "", "link", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "linked #1 -> #2\n", out)

	out, err = h.run(t, "n\n", "unlink", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "Are you sure you want to remove #2 from #1? [y/N] ", out)
	hood, err := h.store.Neighbors(context.Background(), "1")
	require.NoError(t, err)
	assert.Contains(t, hood.Edges, node.NewEdge("1", "2"))

	out, err = h.run(t, "y\n", "unlink", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "unlinked #1 -> #2")

	_, err = h.run(t, "", "unlink", "--yes", "1", "2")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = h.run(t, "", "unlink", "--yes", "0", "0")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRootImmutable, apperrors.Code(err))
}

func TestSearchAndIDs(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Graph theory", "Cooking", "Graphs")

	out, err := h.run(t, "", "search", "graph")
	require.NoError(t, err)
	assert.Equal(t, "[#1] Graph theory\n[#3] Graphs\n", out)

	out, err = h.run(t, "", "--json", "ids")
	require.NoError(t, err)
	assert.JSONEq(t, `["0","1","2","3"]`, out)
}

func TestREPL(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Graphs", "Trees")

	script := strings.Join([]string{
		"select 1 1",
		"set 1 title Graph theory",
		"save 1",
		"show 1",
		"search tree",
		"open 2 1",
		"show 2",
		"history",
		"select 9 1",
		"quit",
	}, "\n") + "\n"

	out, err := h.run(t, script, "repl")
	require.NoError(t, err)

	assert.Contains(t, out, "3 editors")
	assert.Contains(t, out, "Editor 1: [#1] Graph theory\n  title: Graph theory\n")
	assert.Contains(t, out, "1. [#2] Trees\n")
	assert.Contains(t, out, "Editor 2: [#2] Trees\n")
	assert.Contains(t, out, "target: editor 1 ([#1] Graph theory)")
	assert.Contains(t, out, "[#0] root\n[#1] Graphs\n[#2] Trees\n")
	assert.Contains(t, out, `error: no editor "9"`)

	rec, err := h.store.GetNode(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Graph theory", rec.Title)
}

func TestREPL_UnlinkAsksFirst(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "one")

	script := "select 1 1\nunlink 1 0 1\nn\nunlink 1 0 1\ny\nshow 1\n"
	out, err := h.run(t, script, "repl")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "Are you sure you want to remove #1 from #0?"))
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "Editor 1: [#1] one\n")

	hood, err := h.store.Neighbors(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, hood.Edges)
}

func TestValueAfter(t *testing.T) {
	tests := []struct {
		line string
		n    int
		want string
	}{
		{"set 1 title Graph  theory\n", 3, "Graph  theory"},
		{"set 1 title", 3, ""},
		{"  search  a b", 1, "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, valueAfter(tt.line, tt.n))
		})
	}
}
