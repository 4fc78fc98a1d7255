// Package workspace assembles the editing session: the shared node cache,
// the editors and their viewers, the visit history and the search box.
package workspace

import (
	"context"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/cache"
	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/editor"
	"github.com/jm289765/concept-graph-web/internal/history"
	"github.com/jm289765/concept-graph-web/internal/observability"
	"github.com/jm289765/concept-graph-web/internal/provider"
	"github.com/jm289765/concept-graph-web/internal/search"
	"github.com/jm289765/concept-graph-web/internal/viewer"
)

// Workspace owns every client-side component of one session.
type Workspace struct {
	Provider provider.Provider
	Cache    *cache.NodeCache
	History  *history.History
	Search   *search.Box

	// editors holds the UI editors followed by the headless one.
	editors []*editor.Editor
	viewers []*viewer.Viewer
	logger  *zap.Logger
}

// New wires a workspace over p. cfg.EditorCount UI editors are created, each
// targeting the next, plus one headless editor. Every editor feeds the
// history and gets a viewer that also follows the other editors.
func New(p provider.Provider, cfg config.Editor, confirm viewer.Confirmer,
	metrics *observability.Collector, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	count := cfg.EditorCount
	if count <= 0 {
		count = 2
	}

	c := cache.New(p, metrics, logger)
	w := &Workspace{
		Provider: p,
		Cache:    c,
		History:  history.New(c, cfg.HistoryCapacity, metrics, logger),
		Search:   search.New(p, cfg.SearchWindow, logger),
		logger:   logger,
	}

	for i := 1; i <= count+1; i++ {
		ed := editor.New(c, p, editor.Options{
			ID:             i,
			Headless:       i == count+1,
			AutosaveWindow: cfg.AutosaveWindow,
		}, metrics, logger)
		w.editors = append(w.editors, ed)
	}
	for i := 0; count > 1 && i < count; i++ {
		w.editors[i].SetTarget(w.editors[(i+1)%count])
	}

	for _, ed := range w.editors {
		w.History.Attach(ed)
		v := viewer.New(ed, c, confirm, logger)
		v.Watch(w.editors...)
		w.viewers = append(w.viewers, v)
	}
	return w
}

// Start makes the initial selections: nothing in the UI editors and the root
// in the headless one.
func (w *Workspace) Start(ctx context.Context) {
	for _, ed := range w.editors {
		if ed.Headless() {
			ed.SetSelectedNode(ctx, node.RootID)
			continue
		}
		ed.SetSelectedNode(ctx, node.NoID)
	}
	w.logger.Info("Workspace started", zap.Int("editors", len(w.editors)))
}

// Editors returns the UI editors followed by the headless one.
func (w *Workspace) Editors() []*editor.Editor {
	return append([]*editor.Editor(nil), w.editors...)
}

// Editor returns the editor numbered n, starting at 1, or nil.
func (w *Workspace) Editor(n int) *editor.Editor {
	if n < 1 || n > len(w.editors) {
		return nil
	}
	return w.editors[n-1]
}

// Viewer returns the viewer of the editor numbered n, or nil.
func (w *Workspace) Viewer(n int) *viewer.Viewer {
	if n < 1 || n > len(w.viewers) {
		return nil
	}
	return w.viewers[n-1]
}

// Headless returns the editor without a UI surface.
func (w *Workspace) Headless() *editor.Editor {
	return w.editors[len(w.editors)-1]
}

// Open selects a search result in the editor numbered n.
func (w *Workspace) Open(ctx context.Context, r node.SearchResult, n int) node.ID {
	ed := w.Editor(n)
	if ed == nil {
		w.logger.Debug("No such editor", zap.Int("editorID", n))
		return node.NoID
	}
	return search.Open(ctx, r, ed)
}

// Apply takes the tunable parts of a reloaded configuration.
func (w *Workspace) Apply(cfg *config.Config) {
	for _, ed := range w.editors {
		ed.SetAutosaveWindow(cfg.Editor.AutosaveWindow)
	}
	w.Search.SetWindow(cfg.Editor.SearchWindow)
	w.History.SetCapacity(cfg.Editor.HistoryCapacity)
	w.logger.Debug("Workspace settings applied",
		zap.Duration("autosaveWindow", cfg.Editor.AutosaveWindow),
		zap.Duration("searchWindow", cfg.Editor.SearchWindow),
		zap.Int("historyCapacity", cfg.Editor.HistoryCapacity),
	)
}

// Follow applies every configuration the watcher reloads.
func (w *Workspace) Follow(watcher *config.Watcher) {
	watcher.OnChange(w.Apply)
}

// Wait blocks until every viewer refresh in flight has finished.
func (w *Workspace) Wait() {
	for _, v := range w.viewers {
		v.Wait()
	}
}

// Close saves pending edits, then detaches the viewers and the search box.
func (w *Workspace) Close(ctx context.Context) {
	for _, ed := range w.editors {
		if _, err := ed.Save(ctx); err != nil {
			w.logger.Warn("Final save failed", zap.Int("editorID", ed.ID()), zap.Error(err))
		}
		ed.Close()
	}
	for _, v := range w.viewers {
		v.Close()
	}
	w.Search.Close()
}
