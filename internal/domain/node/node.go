package node

import "fmt"

// Type classifies a node.
type Type string

const (
	TypeConcept     Type = "concept"
	TypeExplanation Type = "explanation"
	TypeComment     Type = "comment"
	TypeQuestion    Type = "question"
	TypeRoot        Type = "root"

	// TypeNone is the "no node loaded" value of a type selector.
	TypeNone Type = "null"
)

// Types lists the types a user may assign. TypeRoot is reserved for node 0.
var Types = []Type{TypeConcept, TypeExplanation, TypeComment, TypeQuestion}

// IsAssignable reports whether t may be set on a non-root node.
func (t Type) IsAssignable() bool {
	for _, x := range Types {
		if x == t {
			return true
		}
	}
	return false
}

// Record is a node as the backend reports it. Records are values: the cache
// owns the canonical copy and everyone else reads copies.
type Record struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
	Type    Type   `json:"type"`
}

// DisplayName formats the record the way lists show it, e.g. "[#0] root".
func (r Record) DisplayName() string {
	return DisplayName(r.ID, r.Title)
}

// DisplayName formats an id/title pair, e.g. "[#0] root".
func DisplayName(id ID, title string) string {
	return fmt.Sprintf("[#%s] %s", id, title)
}

// Get returns the value of an editable field.
func (r Record) Get(f Field) string {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldContent:
		return r.Content
	case FieldTags:
		return r.Tags
	case FieldType:
		return string(r.Type)
	}
	return ""
}

// With returns a copy of r with field f set to val.
func (r Record) With(f Field, val string) Record {
	switch f {
	case FieldTitle:
		r.Title = val
	case FieldContent:
		r.Content = val
	case FieldTags:
		r.Tags = val
	case FieldType:
		r.Type = Type(val)
	}
	return r
}

// Field names an editable attribute of a node. The string values are the
// attribute names the backend's update call expects.
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
	FieldTags    Field = "tags"
	FieldType    Field = "type"
)

// Fields is the order in which editors compare and save attributes.
var Fields = []Field{FieldTitle, FieldContent, FieldTags, FieldType}

// ParseField validates an attribute name.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown node attribute %q", s)
}
