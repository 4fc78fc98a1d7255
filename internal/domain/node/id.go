// Package node holds the graph's value types: node identifiers, node records,
// edges, neighborhoods and the heterogeneous payloads the graph backend sends.
//
// Ids travel as JSON numbers in some responses and as numeral strings in
// others. Everything that enters the client goes through Canonical once, so
// the rest of the code compares plain strings.
package node

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// digitsOnly is the validity rule for an id's textual form.
var digitsOnly = regexp.MustCompile(`^\d+$`)

// ID is a node identifier in canonical decimal form.
type ID string

const (
	// NoID is the empty selection.
	NoID ID = ""

	// RootID is the immutable root node.
	RootID ID = "0"
)

// String returns the string representation of the ID
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether id is the empty selection.
func (id ID) IsZero() bool {
	return id == NoID
}

// IsRoot reports whether id denotes the root node.
func (id ID) IsRoot() bool {
	return id == RootID
}

// Equals compares two ids after canonicalization of the other side.
func (id ID) Equals(other any) bool {
	c, ok := Canonical(other)
	if !ok {
		return id == NoID && isNullish(other)
	}
	return id == c
}

// IsValidID reports whether v denotes a usable node id: it must be non-nil and
// its textual form must be a non-empty run of decimal digits.
func IsValidID(v any) bool {
	s, ok := textOf(v)
	if !ok {
		return false
	}
	return s != "" && digitsOnly.MatchString(s)
}

// Canonical converts v into its canonical ID. It accepts IDs, strings, Go
// integers, json.Number and fmt.Stringer values. Leading zeros are dropped so
// "007" and 7 compare equal.
func Canonical(v any) (ID, bool) {
	s, ok := textOf(v)
	if !ok || s == "" || !digitsOnly.MatchString(s) {
		return NoID, false
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return ID(trimmed), true
}

// Less orders canonical ids numerically.
func Less(a, b ID) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// MustCanonical is Canonical for ids known to be valid, such as literals in
// tests and fixtures.
func MustCanonical(v any) ID {
	id, ok := Canonical(v)
	if !ok {
		panic(fmt.Sprintf("node: invalid id %v", v))
	}
	return id
}

// ParseID canonicalizes user input such as the contents of an id text box.
// Surrounding whitespace is ignored; an empty string yields NoID without error.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoID, nil
	}
	id, ok := Canonical(s)
	if !ok {
		return NoID, fmt.Errorf("invalid node id %q", s)
	}
	return id, nil
}

// MarshalJSON writes the id as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string. Values that
// are not valid ids decode to NoID rather than failing the whole payload.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = NoID
		return nil
	}
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	c, _ := Canonical(raw)
	*id = c
	return nil
}

func textOf(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case ID:
		return string(x), true
	case *ID:
		if x == nil {
			return "", false
		}
		return string(*x), true
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		// JSON numbers decoded without UseNumber land here
		if x != float64(int64(x)) {
			return strconv.FormatFloat(x, 'f', -1, 64), true
		}
		return strconv.FormatInt(int64(x), 10), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

func isNullish(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case ID:
		return x == NoID
	case string:
		return x == ""
	}
	return false
}
