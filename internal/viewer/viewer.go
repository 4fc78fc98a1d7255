// Package viewer shows the parents and children of the node an editor has
// selected and keeps that display current as editors change.
package viewer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/bus"
	"github.com/jm289765/concept-graph-web/internal/classify"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/editor"
)

// Neighborer fetches neighborhoods, typically the node cache.
type Neighborer interface {
	GetNeighbors(ctx context.Context, id node.ID) (node.Neighborhood, bool)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AutoConfirm accepts every prompt.
var AutoConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// UnlinkPrompt is the question asked before an edge is removed.
func UnlinkPrompt(parent, child node.ID) string {
	return fmt.Sprintf("Are you sure you want to remove #%s from #%s?", child, parent)
}

type subscription struct {
	source *editor.Editor
	sub    bus.Subscription
}

// Viewer is the classified display attached to one editor.
type Viewer struct {
	editor  *editor.Editor
	cache   Neighborer
	confirm Confirmer
	logger  *zap.Logger

	wg   sync.WaitGroup
	subs []subscription

	mu        sync.Mutex
	seq       uint64
	focus     node.ID
	displayed node.Record
	partition classify.Partition
}

// New creates a viewer for ed and subscribes it to ed's nodeupdate events.
func New(ed *editor.Editor, cache Neighborer, confirm Confirmer, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if confirm == nil {
		confirm = AutoConfirm
	}
	v := &Viewer{
		editor:    ed,
		cache:     cache,
		confirm:   confirm,
		logger:    logger.With(zap.Int("editorID", ed.ID())),
		partition: classify.Partition{Parents: []classify.Entry{}, Children: []classify.Entry{}},
	}
	sub := ed.Subscribe(func(id node.ID) {
		v.setFocus(id)
		v.refreshAsync(id)
	})
	v.subs = append(v.subs, subscription{source: ed, sub: sub})
	return v
}

// Watch refreshes the display whenever one of peers publishes, so edits made
// elsewhere show up here. The refresh targets the own editor's latest
// selection, not whatever is still on screen.
func (v *Viewer) Watch(peers ...*editor.Editor) {
	for _, peer := range peers {
		if peer == v.editor {
			continue
		}
		sub := peer.Subscribe(func(node.ID) { v.refreshAsync(v.Focus()) })
		v.subs = append(v.subs, subscription{source: peer, sub: sub})
	}
}

// Close detaches the viewer from every editor and waits for pending
// refreshes.
func (v *Viewer) Close() {
	for _, s := range v.subs {
		s.source.Unsubscribe(s.sub)
	}
	v.subs = nil
	v.Wait()
}

// Wait blocks until every refresh started by a notification has finished.
func (v *Viewer) Wait() {
	v.wg.Wait()
}

func (v *Viewer) setFocus(id node.ID) {
	v.mu.Lock()
	v.focus = id
	v.mu.Unlock()
}

// Focus returns the id of the own editor's most recent nodeupdate. It runs
// ahead of DisplayedID while that node's neighborhood is being fetched.
func (v *Viewer) Focus() node.ID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.focus
}

func (v *Viewer) refreshAsync(id node.ID) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.Refresh(context.Background(), id)
	}()
}

// Refresh displays the neighborhood of id. A null id clears the display.
// When the fetch fails the display is left as it was. Only the most recently
// started refresh may change the display. It reports whether the display
// was updated.
func (v *Viewer) Refresh(ctx context.Context, id node.ID) bool {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	if id.IsZero() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if seq != v.seq {
			return false
		}
		v.displayed = node.Record{}
		v.partition = classify.Partition{Parents: []classify.Entry{}, Children: []classify.Entry{}}
		return true
	}

	hood, ok := v.cache.GetNeighbors(ctx, id)
	if !ok {
		v.logger.Debug("Neighborhood unavailable", zap.String("nodeID", id.String()))
		return false
	}
	partition := classify.Classify(id, hood)

	var focal node.Record
	for _, rec := range hood.Nodes {
		if k, ok := node.Canonical(rec.ID); ok && k == id {
			focal = rec
			break
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		return false
	}
	v.displayed = focal
	v.partition = partition
	return true
}

// Title is "Editor N" with nothing displayed, else "Editor N: [#id] title".
func (v *Viewer) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.displayed.ID.IsZero() {
		return fmt.Sprintf("Editor %d", v.editor.ID())
	}
	return fmt.Sprintf("Editor %d: %s", v.editor.ID(), v.displayed.DisplayName())
}

// DisplayedID returns the id currently shown, or node.NoID.
func (v *Viewer) DisplayedID() node.ID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.displayed.ID
}

// Parents returns the displayed parents in edge order.
func (v *Viewer) Parents() []classify.Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]classify.Entry{}, v.partition.Parents...)
}

// Children returns the displayed children in edge order.
func (v *Viewer) Children() []classify.Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]classify.Entry{}, v.partition.Children...)
}

// Unlink asks for confirmation and removes the entry's edge through the
// editor. It reports whether the edge was removed. The root self-loop is
// never offered for removal, and neither is an edge that does not touch the
// editor's selection.
func (v *Viewer) Unlink(ctx context.Context, entry classify.Entry) (bool, error) {
	if !entry.Unlinkable() || !touches(entry, v.editor.Selected()) {
		return false, nil
	}
	ok, err := v.confirm.Confirm(ctx, UnlinkPrompt(entry.Parent, entry.Child))
	if err != nil || !ok {
		return false, err
	}

	if err := v.editor.Unlink(ctx, entry.Parent, entry.Child); err != nil {
		return false, err
	}
	v.Refresh(ctx, v.Focus())
	return true, nil
}

func touches(entry classify.Entry, sel node.ID) bool {
	if sel.IsZero() {
		return false
	}
	p, _ := node.Canonical(entry.Parent)
	c, _ := node.Canonical(entry.Child)
	return p == sel || c == sel
}
