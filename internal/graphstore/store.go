// Package graphstore defines the persistence contract of the graph backend
// and the rules every store enforces.
package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
)

// NewNode describes a node to create. Parent, when set, receives an edge
// Parent -> new node.
type NewNode struct {
	Type    node.Type
	Title   string
	Content string
	Tags    string
	Parent  node.ID
}

// Store persists nodes and directed edges. Node 0 always exists, carries a
// self-loop, and cannot be modified.
type Store interface {
	GetNode(ctx context.Context, id node.ID) (node.Record, error)
	Neighbors(ctx context.Context, id node.ID) (node.Neighborhood, error)
	AddNode(ctx context.Context, n NewNode) (node.Record, error)
	UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.Record, error)
	Link(ctx context.Context, parent, child node.ID, twoWay bool) error
	Unlink(ctx context.Context, parent, child node.ID, twoWay bool) error
	Search(ctx context.Context, query string) ([]node.SearchResult, error)
	ListIDs(ctx context.Context) ([]node.ID, error)
}

// RootRecord is the record every store seeds.
func RootRecord() node.Record {
	return node.Record{ID: node.RootID, Title: "root", Type: node.TypeRoot}
}

// PrepareNew validates n and fills defaults. An empty type becomes concept.
func PrepareNew(n NewNode) (NewNode, error) {
	if n.Type == "" {
		n.Type = node.TypeConcept
	}
	if !n.Type.IsAssignable() {
		return n, apperrors.Validation(apperrors.CodeInvalidAttribute,
			fmt.Sprintf("type %q cannot be assigned", n.Type)).
			WithOperation("AddNode").
			Build()
	}
	return n, nil
}

// CheckUpdate enforces root immutability and valid type values.
func CheckUpdate(id node.ID, field node.Field, val string) error {
	if id.IsRoot() {
		return apperrors.Validation(apperrors.CodeRootImmutable, "the root node cannot be modified").
			WithOperation("UpdateNode").
			WithResource(NodeResource(id)).
			Build()
	}
	if field == node.FieldType && !node.Type(val).IsAssignable() {
		return apperrors.Validation(apperrors.CodeInvalidAttribute,
			fmt.Sprintf("type %q cannot be assigned", val)).
			WithOperation("UpdateNode").
			WithResource(NodeResource(id)).
			Build()
	}
	return nil
}

// CheckUnlink rejects removal of the root self-loop.
func CheckUnlink(parent, child node.ID) error {
	if parent.IsRoot() && child.IsRoot() {
		return apperrors.Validation(apperrors.CodeRootImmutable, "the root self-loop cannot be removed").
			WithOperation("Unlink").
			Build()
	}
	return nil
}

// MatchTitle reports whether title contains query, ignoring case. An empty
// query matches nothing.
func MatchTitle(title, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(title), q)
}

// NodeNotFound builds the error stores return for a missing node.
func NodeNotFound(op string, id node.ID) error {
	return apperrors.NotFound(apperrors.CodeNodeNotFound, "node does not exist").
		WithOperation(op).
		WithResource(NodeResource(id)).
		Build()
}

// EdgeNotFound builds the error stores return when unlinking a missing edge.
func EdgeNotFound(op string, e node.Edge) error {
	return apperrors.NotFound(apperrors.CodeEdgeNotFound, "edge does not exist").
		WithOperation(op).
		WithResource("edge:" + e.String()).
		Build()
}

func NodeResource(id node.ID) string {
	return "node:" + id.String()
}
