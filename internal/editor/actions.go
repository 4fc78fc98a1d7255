package editor

import (
	"context"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
)

// Create adds a node and selects it.
func (e *Editor) Create(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (node.ID, error) {
	id, err := e.cache.CreateNode(ctx, typ, title, content, tags, parent)
	if err != nil {
		return node.NoID, err
	}
	e.SetSelectedNode(ctx, id)
	return id, nil
}

// CreateFromStaged creates a node from the values the fields currently show
// and selects it. The pending edits belong to the new node, so they are not
// saved to the current selection. A root or unset type becomes concept; the
// parent is the current selection, or the root when nothing is selected.
func (e *Editor) CreateFromStaged(ctx context.Context) (node.ID, error) {
	typ := node.Type(e.Staged(node.FieldType))
	if !typ.IsAssignable() {
		typ = node.TypeConcept
	}
	title := e.Staged(node.FieldTitle)
	content := e.Staged(node.FieldContent)
	tags := e.Staged(node.FieldTags)

	parent := e.Selected()
	if parent.IsZero() {
		parent = node.RootID
	}

	e.cancelAutosave()
	e.mu.Lock()
	e.dirty = make(map[node.Field]string)
	e.mu.Unlock()

	return e.Create(ctx, typ, title, content, tags, parent)
}

// NewParent creates an empty node, links it as a parent of the selection
// and selects it.
func (e *Editor) NewParent(ctx context.Context) (node.ID, error) {
	sel := e.Selected()
	if sel.IsZero() {
		e.logger.Debug("NewParent without a selection")
		return node.NoID, nil
	}
	id, err := e.cache.CreateNode(ctx, node.TypeConcept, "", "", "", node.NoID)
	if err != nil {
		return node.NoID, err
	}
	if err := e.links.LinkNode(ctx, id, sel, false); err != nil {
		return id, err
	}
	e.SetSelectedNode(ctx, id)
	return id, nil
}

// NewChild creates an empty node under the selection and selects it.
func (e *Editor) NewChild(ctx context.Context) (node.ID, error) {
	sel := e.Selected()
	if sel.IsZero() {
		e.logger.Debug("NewChild without a selection")
		return node.NoID, nil
	}
	return e.Create(ctx, node.TypeConcept, "", "", "", sel)
}

// Link adds the edge parent -> child. One of the two must be the selection;
// otherwise the call is ignored. On success a nodeupdate is published.
func (e *Editor) Link(ctx context.Context, parent, child node.ID) error {
	return e.edge(ctx, "Link", parent, child, e.links.LinkNode)
}

// Unlink removes the edge parent -> child, under the same rules as Link.
func (e *Editor) Unlink(ctx context.Context, parent, child node.ID) error {
	return e.edge(ctx, "Unlink", parent, child, e.links.UnlinkNode)
}

func (e *Editor) edge(ctx context.Context, op string, parent, child node.ID,
	call func(context.Context, node.ID, node.ID, bool) error) error {
	p, pok := node.Canonical(parent)
	c, cok := node.Canonical(child)
	if !pok {
		return apperrors.InvalidID(parent).WithOperation(op).Build()
	}
	if !cok {
		return apperrors.InvalidID(child).WithOperation(op).Build()
	}

	sel := e.Selected()
	if sel.IsZero() || (p != sel && c != sel) {
		e.logger.Debug("Ignoring edge change that does not involve the selection",
			zap.String("op", op),
			zap.String("parent", p.String()),
			zap.String("child", c.String()),
			zap.String("nodeID", sel.String()),
		)
		return nil
	}

	if err := call(ctx, p, c, false); err != nil {
		e.logger.Warn("Edge change failed", zap.String("op", op), zap.Error(err))
		return err
	}
	e.notify(e.Selected())
	return nil
}

// LinkAsParent links the selection as a parent of the target's selection.
func (e *Editor) LinkAsParent(ctx context.Context) error {
	t, ok := e.targetSelection("LinkAsParent")
	if !ok {
		return nil
	}
	return e.Link(ctx, e.Selected(), t)
}

// LinkAsChild links the selection as a child of the target's selection.
func (e *Editor) LinkAsChild(ctx context.Context) error {
	t, ok := e.targetSelection("LinkAsChild")
	if !ok {
		return nil
	}
	return e.Link(ctx, t, e.Selected())
}

// UnlinkAsParent removes the edge selection -> target selection.
func (e *Editor) UnlinkAsParent(ctx context.Context) error {
	t, ok := e.targetSelection("UnlinkAsParent")
	if !ok {
		return nil
	}
	return e.Unlink(ctx, e.Selected(), t)
}

// UnlinkAsChild removes the edge target selection -> selection.
func (e *Editor) UnlinkAsChild(ctx context.Context) error {
	t, ok := e.targetSelection("UnlinkAsChild")
	if !ok {
		return nil
	}
	return e.Unlink(ctx, t, e.Selected())
}

func (e *Editor) targetSelection(op string) (node.ID, bool) {
	peer := e.Target()
	if peer == nil {
		e.logger.Debug("No target editor", zap.String("op", op))
		return node.NoID, false
	}
	t := peer.Selected()
	if t.IsZero() || e.Selected().IsZero() {
		e.logger.Debug("Target action needs two selections", zap.String("op", op))
		return node.NoID, false
	}
	return t, true
}
