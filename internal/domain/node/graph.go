package node

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Edge is a directed link from Source to Target. On the wire it is the
// two-element array [source, target].
type Edge struct {
	Source ID
	Target ID
}

// NewEdge builds an edge from two canonical ids.
func NewEdge(source, target ID) Edge {
	return Edge{Source: source, Target: target}
}

// IsSelfLoop reports whether the edge links a node to itself.
func (e Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

// String formats the edge as "s->t".
func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.Source, e.Target)
}

// MarshalJSON writes [source, target].
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]ID{e.Source, e.Target})
}

// UnmarshalJSON reads [source, target] where either side may be a number or a
// string.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var pair []ID
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("edge: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("edge: expected 2 ids, got %d", len(pair))
	}
	e.Source, e.Target = pair[0], pair[1]
	return nil
}

// Neighborhood is a focal node's immediate surroundings: every node touched
// by one of the edges, plus the edges themselves.
type Neighborhood struct {
	Nodes []Record `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// Payload is the normalized form of a backend node response. The backend
// answers with a bare list of records, an envelope {"nodes": [...]}, or a
// single record depending on the call; all three decode to the same Nodes.
type Payload struct {
	Nodes []Record
}

// NewPayload wraps records.
func NewPayload(records ...Record) Payload {
	return Payload{Nodes: records}
}

// IsEmpty reports whether the payload carries no records.
func (p Payload) IsEmpty() bool {
	return len(p.Nodes) == 0
}

// MarshalJSON writes the envelope form.
func (p Payload) MarshalJSON() ([]byte, error) {
	nodes := p.Nodes
	if nodes == nil {
		nodes = []Record{}
	}
	return json.Marshal(struct {
		Nodes []Record `json:"nodes"`
	}{Nodes: nodes})
}

// UnmarshalJSON accepts a list, an envelope or a single record.
func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.Nodes = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var list []Record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("payload list: %w", err)
		}
		p.Nodes = list
		return nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return fmt.Errorf("payload object: %w", err)
		}
		if raw, ok := probe["nodes"]; ok {
			var list []Record
			if err := json.Unmarshal(raw, &list); err != nil {
				return fmt.Errorf("payload envelope: %w", err)
			}
			p.Nodes = list
			return nil
		}
		var rec Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return fmt.Errorf("payload record: %w", err)
		}
		p.Nodes = []Record{rec}
		return nil
	}
	return fmt.Errorf("payload: unexpected JSON %q", string(trimmed[:1]))
}

// SearchResult is one hit of a title search.
type SearchResult struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// DisplayName formats the hit like a record.
func (s SearchResult) DisplayName() string {
	return DisplayName(s.ID, s.Title)
}
