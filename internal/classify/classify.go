// Package classify splits a node's neighborhood into parents and children.
package classify

import (
	"github.com/jm289765/concept-graph-web/internal/domain/node"
)

// Entry is one neighbor together with the edge that would be removed to
// unlink it from the focal node.
type Entry struct {
	Record node.Record
	Parent node.ID
	Child  node.ID
}

// Unlinkable reports whether the entry's edge may be removed. The root's
// self-loop is permanent.
func (e Entry) Unlinkable() bool {
	return !(e.Parent.IsRoot() && e.Child.IsRoot())
}

// Partition is the classified neighborhood of a focal node, in edge order.
type Partition struct {
	Parents  []Entry
	Children []Entry
}

// ParentRecords returns the parent records in order.
func (p Partition) ParentRecords() []node.Record {
	return records(p.Parents)
}

// ChildRecords returns the child records in order.
func (p Partition) ChildRecords() []node.Record {
	return records(p.Children)
}

func records(entries []Entry) []node.Record {
	out := make([]node.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record)
	}
	return out
}

// Classify walks the edges of hood in order. An edge (s, t) makes t a child
// when s is the focal node and s a parent when t is. The first self-loop is
// placed in both lists once; later self-loops are ignored. Edges that do not
// touch the focal node, or whose endpoints are missing from hood.Nodes, are
// skipped. hood is not modified.
func Classify(focal node.ID, hood node.Neighborhood) Partition {
	focal, _ = node.Canonical(focal)

	index := make(map[node.ID]node.Record, len(hood.Nodes))
	for _, rec := range hood.Nodes {
		if id, ok := node.Canonical(rec.ID); ok {
			index[id] = rec
		}
	}

	p := Partition{Parents: []Entry{}, Children: []Entry{}}
	circle := false
	for _, e := range hood.Edges {
		s, sok := node.Canonical(e.Source)
		t, tok := node.Canonical(e.Target)
		if !sok || !tok {
			continue
		}

		if s == t {
			if circle {
				continue
			}
			rec, ok := index[s]
			if !ok {
				continue
			}
			entry := Entry{Record: rec, Parent: s, Child: s}
			p.Parents = append(p.Parents, entry)
			p.Children = append(p.Children, entry)
			circle = true
			continue
		}

		switch focal {
		case s:
			if rec, ok := index[t]; ok {
				p.Children = append(p.Children, Entry{Record: rec, Parent: s, Child: t})
			}
		case t:
			if rec, ok := index[s]; ok {
				p.Parents = append(p.Parents, Entry{Record: rec, Parent: s, Child: t})
			}
		}
	}
	return p
}
