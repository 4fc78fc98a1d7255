package editor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
)

// Stage records a user edit of field for the selected node and schedules an
// autosave. It reports false when the edit is refused: headless editors and
// the root accept no edits, and type must be assignable.
func (e *Editor) Stage(field node.Field, val string) bool {
	if e.headless {
		return false
	}
	if field == node.FieldType && !node.Type(val).IsAssignable() {
		return false
	}

	e.mu.Lock()
	if e.selected.IsRoot() {
		e.mu.Unlock()
		return false
	}
	e.dirty[field] = val
	e.mu.Unlock()

	e.autosave[field].Trigger(val)
	return true
}

// Staged returns the value field shows: the pending edit if there is one,
// otherwise the loaded record's value. With nothing selected the type reads
// as node.TypeNone.
func (e *Editor) Staged(field node.Field) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.dirty[field]; ok {
		return v
	}
	if field == node.FieldType && e.selected.IsZero() {
		return string(node.TypeNone)
	}
	return e.loaded.Get(field)
}

// Dirty reports whether any edit is waiting to be saved.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dirty) > 0
}

// Save writes every staged field that differs from the cached record, one
// provider update per field. If anything was written the node is re-fetched
// and a nodeupdate is published. The root is never written.
func (e *Editor) Save(ctx context.Context) (bool, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	return e.save(ctx, true)
}

func (e *Editor) autosaveField(field node.Field) {
	if _, err := e.Save(context.Background()); err != nil {
		e.logger.Warn("Autosave failed", zap.String("attr", string(field)), zap.Error(err))
	}
}

// flush saves pending edits ahead of a selection switch, with saveMu held.
// Edits staged while the first pass was writing get one more pass.
func (e *Editor) flush(ctx context.Context) {
	for pass := 0; pass < 2; pass++ {
		e.cancelAutosave()
		before := e.pending()
		if len(before) == 0 {
			return
		}
		if _, err := e.save(ctx, false); err != nil {
			e.logger.Warn("Failed to save before switching", zap.Error(err))
		}
		if !e.stagedSince(before) {
			return
		}
	}
}

func (e *Editor) pending() map[node.Field]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[node.Field]string, len(e.dirty))
	for f, v := range e.dirty {
		out[f] = v
	}
	return out
}

// stagedSince reports whether dirty holds a value that was not in before.
func (e *Editor) stagedSince(before map[node.Field]string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for f, v := range e.dirty {
		if old, ok := before[f]; !ok || old != v {
			return true
		}
	}
	return false
}

// save runs with saveMu held.
func (e *Editor) save(ctx context.Context, notify bool) (bool, error) {
	if e.headless {
		return false, nil
	}

	e.mu.Lock()
	id := e.selected
	staged := make(map[node.Field]string, len(e.dirty))
	for f, v := range e.dirty {
		staged[f] = v
	}
	if id.IsRoot() {
		e.dirty = make(map[node.Field]string)
	}
	e.mu.Unlock()

	if id.IsZero() || id.IsRoot() || len(staged) == 0 {
		return false, nil
	}

	rec, ok := e.cache.Get(ctx, id)
	if !ok {
		return false, nil
	}

	var (
		wrote bool
		errs  []error
		done  = make(map[node.Field]string, len(staged))
	)
	for _, f := range node.Fields {
		v, ok := staged[f]
		if !ok {
			continue
		}
		if rec.Get(f) == v {
			done[f] = v
			continue
		}
		if _, err := e.cache.UpdateNode(ctx, id, f, v); err != nil {
			e.logger.Warn("Failed to save field",
				zap.String("nodeID", id.String()),
				zap.String("attr", string(f)),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		wrote = true
		done[f] = v
		e.metrics.EditorSave(string(f))
	}

	e.mu.Lock()
	if e.selected == id {
		for f, v := range done {
			if e.dirty[f] == v {
				delete(e.dirty, f)
			}
		}
	}
	e.mu.Unlock()

	if !wrote {
		return false, errors.Join(errs...)
	}

	e.cache.Update(ctx, id)
	if fresh, ok := e.cache.Get(ctx, id); ok {
		e.mu.Lock()
		if e.selected == id {
			e.loaded = fresh
		}
		e.mu.Unlock()
	}
	if notify {
		e.notify(id)
	}
	return true, errors.Join(errs...)
}
