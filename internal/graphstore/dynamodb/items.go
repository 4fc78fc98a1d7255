package dynamodb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
)

// Single-table layout:
//
//	PK=NODE#<id>  SK=METADATA     node attributes
//	PK=NODE#<id>  SK=OUT#<target> edge id -> target
//	PK=NODE#<id>  SK=IN#<source>  edge source -> id
//	PK=COUNTER    SK=NODE_ID      last assigned id
const (
	nodePrefix   = "NODE#"
	metadataSK   = "METADATA"
	outPrefix    = "OUT#"
	inPrefix     = "IN#"
	counterPK    = "COUNTER"
	counterSK    = "NODE_ID"
	entityNode   = "NODE"
	entityEdge   = "EDGE"
	attrEntity   = "EntityType"
	attrTitleLow = "TitleLower"
)

// ddbNode represents the structure of a node item in DynamoDB.
type ddbNode struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	NodeID     string `dynamodbav:"NodeID"`
	Title      string `dynamodbav:"Title"`
	TitleLower string `dynamodbav:"TitleLower"`
	Content    string `dynamodbav:"Content"`
	Tags       string `dynamodbav:"Tags"`
	Type       string `dynamodbav:"Type"`
}

// ddbEdge represents one direction of an edge item in DynamoDB.
type ddbEdge struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Source     string `dynamodbav:"Source"`
	Target     string `dynamodbav:"Target"`
}

type ddbCounter struct {
	Value uint64 `dynamodbav:"Value"`
}

func nodePK(id node.ID) string {
	return nodePrefix + id.String()
}

func nodeKey(id node.ID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(id)},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

func counterKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: counterPK},
		"SK": &types.AttributeValueMemberS{Value: counterSK},
	}
}

func toNodeItem(rec node.Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(ddbNode{
		PK:         nodePK(rec.ID),
		SK:         metadataSK,
		EntityType: entityNode,
		NodeID:     rec.ID.String(),
		Title:      rec.Title,
		TitleLower: strings.ToLower(rec.Title),
		Content:    rec.Content,
		Tags:       rec.Tags,
		Type:       string(rec.Type),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node item: %w", err)
	}
	return item, nil
}

func fromNodeItem(item map[string]types.AttributeValue) (node.Record, error) {
	var n ddbNode
	if err := attributevalue.UnmarshalMap(item, &n); err != nil {
		return node.Record{}, fmt.Errorf("failed to unmarshal node item: %w", err)
	}
	id, ok := node.Canonical(n.NodeID)
	if !ok {
		return node.Record{}, fmt.Errorf("node item has invalid id %q", n.NodeID)
	}
	return node.Record{
		ID:      id,
		Title:   n.Title,
		Content: n.Content,
		Tags:    n.Tags,
		Type:    node.Type(n.Type),
	}, nil
}

// edgeItems returns the outgoing item stored under the source and the
// incoming item stored under the target.
func edgeItems(e node.Edge) (out, in map[string]types.AttributeValue, err error) {
	out, err = attributevalue.MarshalMap(ddbEdge{
		PK:         nodePK(e.Source),
		SK:         outPrefix + e.Target.String(),
		EntityType: entityEdge,
		Source:     e.Source.String(),
		Target:     e.Target.String(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal edge item: %w", err)
	}
	in, err = attributevalue.MarshalMap(ddbEdge{
		PK:         nodePK(e.Target),
		SK:         inPrefix + e.Source.String(),
		EntityType: entityEdge,
		Source:     e.Source.String(),
		Target:     e.Target.String(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal edge item: %w", err)
	}
	return out, in, nil
}

func edgeKeys(e node.Edge) (out, in map[string]types.AttributeValue) {
	out = map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(e.Source)},
		"SK": &types.AttributeValueMemberS{Value: outPrefix + e.Target.String()},
	}
	in = map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(e.Target)},
		"SK": &types.AttributeValueMemberS{Value: inPrefix + e.Source.String()},
	}
	return out, in
}

// partitionToNeighborhood turns the items of one node partition into the
// focal record and its edges. A self-loop is stored as both OUT#id and IN#id
// and is reported once.
func partitionToNeighborhood(focal node.ID, items []map[string]types.AttributeValue) (node.Record, []node.Edge, error) {
	var (
		rec   node.Record
		found bool
		edges []node.Edge
	)
	for _, item := range items {
		sk, _ := item["SK"].(*types.AttributeValueMemberS)
		if sk == nil {
			continue
		}
		switch {
		case sk.Value == metadataSK:
			r, err := fromNodeItem(item)
			if err != nil {
				return node.Record{}, nil, err
			}
			rec, found = r, true
		case strings.HasPrefix(sk.Value, outPrefix), strings.HasPrefix(sk.Value, inPrefix):
			var e ddbEdge
			if err := attributevalue.UnmarshalMap(item, &e); err != nil {
				return node.Record{}, nil, fmt.Errorf("failed to unmarshal edge item: %w", err)
			}
			edge := node.NewEdge(node.ID(e.Source), node.ID(e.Target))
			if strings.HasPrefix(sk.Value, inPrefix) && edge.IsSelfLoop() {
				continue
			}
			edges = append(edges, edge)
		}
	}
	if !found {
		return node.Record{}, nil, errNoMetadata
	}
	return rec, edges, nil
}

var errNoMetadata = errors.New("node metadata item missing")

// classifyError converts DynamoDB API errors into the shared taxonomy.
func classifyError(err error, op, resource string) error {
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperrors.NotFound(apperrors.CodeNodeNotFound, "node does not exist").
			WithOperation(op).
			WithResource(resource).
			WithCause(err).
			Build()
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return apperrors.NotFound(apperrors.CodeNodeNotFound, "node or edge does not exist").
					WithOperation(op).
					WithResource(resource).
					WithCause(err).
					Build()
			}
		}
		return apperrors.Conflict(apperrors.CodeStoreError, "transaction cancelled").
			WithOperation(op).
			WithResource(resource).
			WithCause(err).
			Build()
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ResourceNotFoundException":
			return apperrors.Internal(apperrors.CodeStoreError, "table not found").
				WithOperation(op).
				WithResource(resource).
				WithDetails(ae.ErrorMessage()).
				WithCause(err).
				Build()
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return apperrors.Transport(apperrors.CodeProviderUnavailable, "store throttled").
				WithOperation(op).
				WithResource(resource).
				WithDetails(ae.ErrorMessage()).
				WithCause(err).
				Build()
		}
	}

	return apperrors.Internal(apperrors.CodeStoreError, "store operation failed").
		WithOperation(op).
		WithResource(resource).
		WithCause(err).
		Build()
}
