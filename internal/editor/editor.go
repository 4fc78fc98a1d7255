// Package editor holds the per-surface view-model: which node is selected,
// what the user has staged for it, and the notifications other components
// follow.
package editor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/bus"
	"github.com/jm289765/concept-graph-web/internal/debounce"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/observability"
)

// NodeCache is the subset of the node cache an editor reads and writes
// through.
type NodeCache interface {
	Get(ctx context.Context, id node.ID) (node.Record, bool)
	Update(ctx context.Context, id node.ID) bool
	CreateNode(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (node.ID, error)
	UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.ID, error)
}

// Linker adds and removes edges.
type Linker interface {
	LinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error
	UnlinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error
}

// Options configure an editor.
type Options struct {
	// ID numbers the editor for display, starting at 1.
	ID int
	// Headless editors have no staged fields; Save never writes.
	Headless bool
	// AutosaveWindow is how long text fields must settle before saving.
	AutosaveWindow time.Duration
}

// Editor is one editing surface. All methods are safe for concurrent use.
type Editor struct {
	id       int
	headless bool
	cache    NodeCache
	links    Linker
	events   *bus.Bus[node.ID]
	metrics  *observability.Collector
	logger   *zap.Logger

	// saveMu serializes saves with the flush half of a selection change.
	saveMu sync.Mutex

	mu       sync.Mutex
	selected node.ID
	loaded   node.Record
	seq      uint64
	dirty    map[node.Field]string
	target   *Editor
	autosave map[node.Field]*debounce.Debouncer[string]
}

// New creates an editor with nothing selected.
func New(cache NodeCache, links Linker, opts Options, metrics *observability.Collector, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Editor{
		id:       opts.ID,
		headless: opts.Headless,
		cache:    cache,
		links:    links,
		events:   bus.New[node.ID](),
		metrics:  metrics,
		logger:   logger.With(zap.Int("editorID", opts.ID)),
		dirty:    make(map[node.Field]string),
	}
	if !e.headless {
		e.autosave = make(map[node.Field]*debounce.Debouncer[string], len(node.Fields))
		for _, f := range node.Fields {
			window := opts.AutosaveWindow
			if f == node.FieldType {
				// a type pick is a single discrete change
				window = 0
			}
			field := f
			e.autosave[f] = debounce.New(func(string) { e.autosaveField(field) }, window)
		}
	}
	return e
}

// ID returns the editor's display number.
func (e *Editor) ID() int { return e.id }

// Headless reports whether the editor has no staged fields.
func (e *Editor) Headless() bool { return e.headless }

// Selected returns the selected id, or node.NoID.
func (e *Editor) Selected() node.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Loaded returns the record last resolved for the selection. It is the zero
// record when nothing is selected.
func (e *Editor) Loaded() node.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// ReadOnly reports whether the selection is the root, whose fields cannot be
// edited.
func (e *Editor) ReadOnly() bool {
	return e.Selected().IsRoot()
}

// Subscribe registers h for nodeupdate notifications, which carry the
// selection after each change.
func (e *Editor) Subscribe(h bus.Handler[node.ID]) bus.Subscription {
	return e.events.Subscribe(h)
}

// Unsubscribe removes a handler added with Subscribe.
func (e *Editor) Unsubscribe(s bus.Subscription) bool {
	return e.events.Unsubscribe(s)
}

func (e *Editor) notify(id node.ID) {
	e.logger.Debug("nodeupdate", zap.String("nodeID", id.String()))
	e.events.Publish(id)
}

// SetSelectedNode selects id. Pending edits to the current selection are
// saved first. The node is then resolved through the cache; if it cannot be
// resolved the selection becomes null. Exactly one nodeupdate is published
// unless a newer SetSelectedNode supersedes this one first, in which case the
// newer call publishes instead. Selecting the current id does nothing. An
// invalid id selects null.
func (e *Editor) SetSelectedNode(ctx context.Context, id node.ID) node.ID {
	key, ok := node.Canonical(id)
	if !ok {
		key = node.NoID
	}

	e.mu.Lock()
	if key == e.selected {
		e.mu.Unlock()
		return key
	}
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	e.saveMu.Lock()
	e.flush(ctx)
	e.mu.Lock()
	current := seq == e.seq
	var (
		dropped []string
		old     = e.selected
	)
	if current {
		for f := range e.dirty {
			dropped = append(dropped, string(f))
		}
		e.selected = key
		e.loaded = node.Record{}
		e.dirty = make(map[node.Field]string)
	}
	e.mu.Unlock()
	e.saveMu.Unlock()
	if len(dropped) > 0 {
		e.logger.Warn("Discarding unsaved edits on switch",
			zap.String("nodeID", old.String()),
			zap.Strings("attrs", dropped),
		)
	}
	if !current {
		return e.Selected()
	}

	rec, resolved := node.Record{}, true
	if !key.IsZero() {
		rec, resolved = e.cache.Get(ctx, key)
	}

	e.mu.Lock()
	if seq != e.seq {
		sel := e.selected
		e.mu.Unlock()
		e.logger.Debug("Discarding superseded selection",
			zap.String("nodeID", key.String()),
			zap.Uint64("seq", seq),
		)
		return sel
	}
	if resolved {
		e.loaded = rec
	} else {
		e.logger.Debug("Selection did not resolve", zap.String("nodeID", key.String()))
		e.selected = node.NoID
		e.loaded = node.Record{}
	}
	sel := e.selected
	e.mu.Unlock()

	e.notify(sel)
	return sel
}

// Refresh re-reads the selection from the provider and publishes it. It is
// used after another surface changed the node.
func (e *Editor) Refresh(ctx context.Context) {
	e.mu.Lock()
	id, seq := e.selected, e.seq
	e.mu.Unlock()
	if id.IsZero() {
		return
	}
	if !e.cache.Update(ctx, id) {
		return
	}
	rec, ok := e.cache.Get(ctx, id)
	if !ok {
		return
	}
	e.mu.Lock()
	stale := seq != e.seq
	if !stale {
		e.loaded = rec
	}
	e.mu.Unlock()
	if !stale {
		e.notify(id)
	}
}

// SetTarget sets the peer editor used by the link-as and unlink-as actions.
func (e *Editor) SetTarget(peer *Editor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = peer
}

// Target returns the peer editor, or nil.
func (e *Editor) Target() *Editor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// SetAutosaveWindow changes the settle time of the text fields.
func (e *Editor) SetAutosaveWindow(window time.Duration) {
	for f, d := range e.autosave {
		if f != node.FieldType {
			d.SetWindow(window)
		}
	}
}

// AutosaveWindow returns the settle time of the text fields, or zero for a
// headless editor.
func (e *Editor) AutosaveWindow() time.Duration {
	if d, ok := e.autosave[node.FieldTitle]; ok {
		return d.Window()
	}
	return 0
}

// Close drops pending autosaves without writing them.
func (e *Editor) Close() {
	e.cancelAutosave()
}

func (e *Editor) cancelAutosave() {
	for _, d := range e.autosave {
		d.Cancel()
	}
}
