// Package dynamodb implements graphstore.Store on a single DynamoDB table.
// This is the only package that knows DynamoDB specifics.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

const batchGetLimit = 100

// Store is the DynamoDB graph store.
type Store struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

var _ graphstore.Store = (*Store)(nil)

// New creates a store over tableName. Call EnsureRoot once before serving.
func New(client Client, tableName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// EnsureRoot writes the root node and its self-loop if they are missing.
func (s *Store) EnsureRoot(ctx context.Context) error {
	item, err := toNodeItem(graphstore.RootRecord())
	if err != nil {
		return err
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  cond.Names(),
		ExpressionAttributeValues: cond.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	switch {
	case errors.As(err, &ccf):
		return nil
	case err != nil:
		return classifyError(err, "EnsureRoot", graphstore.NodeResource(node.RootID))
	}

	out, in, err := edgeItems(node.NewEdge(node.RootID, node.RootID))
	if err != nil {
		return err
	}
	for _, it := range []map[string]types.AttributeValue{out, in} {
		if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.tableName), Item: it}); err != nil {
			return classifyError(err, "EnsureRoot", "edge:0->0")
		}
	}
	s.logger.Info("Seeded root node", zap.String("table", s.tableName))
	return nil
}

func (s *Store) GetNode(ctx context.Context, id node.ID) (node.Record, error) {
	res, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       nodeKey(id),
	})
	if err != nil {
		return node.Record{}, classifyError(err, "GetNode", graphstore.NodeResource(id))
	}
	if res.Item == nil {
		return node.Record{}, graphstore.NodeNotFound("GetNode", id)
	}
	return fromNodeItem(res.Item)
}

func (s *Store) Neighbors(ctx context.Context, id node.ID) (node.Neighborhood, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(nodePK(id)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return node.Neighborhood{}, fmt.Errorf("failed to build expression: %w", err)
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return node.Neighborhood{}, classifyError(err, "Neighbors", graphstore.NodeResource(id))
		}
		items = append(items, page.Items...)
	}

	focal, edges, err := partitionToNeighborhood(id, items)
	if errors.Is(err, errNoMetadata) {
		return node.Neighborhood{}, graphstore.NodeNotFound("Neighbors", id)
	}
	if err != nil {
		return node.Neighborhood{}, err
	}

	var others []node.ID
	seen := map[node.ID]bool{id: true}
	for _, e := range edges {
		for _, end := range []node.ID{e.Source, e.Target} {
			if !seen[end] {
				seen[end] = true
				others = append(others, end)
			}
		}
	}

	records, err := s.batchGetNodes(ctx, others)
	if err != nil {
		return node.Neighborhood{}, err
	}

	out := node.Neighborhood{Nodes: []node.Record{focal}, Edges: []node.Edge{}}
	for _, other := range others {
		if rec, ok := records[other]; ok {
			out.Nodes = append(out.Nodes, rec)
		}
	}
	for _, e := range edges {
		if _, ok := records[e.Source]; !ok && e.Source != id {
			s.logger.Warn("Dropping dangling edge", zap.Stringer("edge", e))
			continue
		}
		if _, ok := records[e.Target]; !ok && e.Target != id {
			s.logger.Warn("Dropping dangling edge", zap.Stringer("edge", e))
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	return out, nil
}

func (s *Store) batchGetNodes(ctx context.Context, ids []node.ID) (map[node.ID]node.Record, error) {
	out := make(map[node.ID]node.Record, len(ids))
	for start := 0; start < len(ids); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(ids) {
			end = len(ids)
		}
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, nodeKey(id))
		}

		request := map[string]types.KeysAndAttributes{s.tableName: {Keys: keys}}
		for attempt := 0; len(request) > 0 && attempt < 3; attempt++ {
			res, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, classifyError(err, "Neighbors", "batch")
			}
			for _, item := range res.Responses[s.tableName] {
				rec, err := fromNodeItem(item)
				if err != nil {
					return nil, err
				}
				out[rec.ID] = rec
			}
			request = res.UnprocessedKeys
		}
	}
	return out, nil
}

func (s *Store) nextID(ctx context.Context) (node.ID, error) {
	update := expression.Add(expression.Name("Value"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return node.NoID, fmt.Errorf("failed to build expression: %w", err)
	}
	res, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       counterKey(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return node.NoID, classifyError(err, "AddNode", "counter")
	}
	var c ddbCounter
	if err := attributevalue.UnmarshalMap(res.Attributes, &c); err != nil {
		return node.NoID, fmt.Errorf("failed to unmarshal counter: %w", err)
	}
	return node.ID(strconv.FormatUint(c.Value, 10)), nil
}

func (s *Store) AddNode(ctx context.Context, n graphstore.NewNode) (node.Record, error) {
	n, err := graphstore.PrepareNew(n)
	if err != nil {
		return node.Record{}, err
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return node.Record{}, err
	}
	rec := node.Record{ID: id, Title: n.Title, Content: n.Content, Tags: n.Tags, Type: n.Type}

	item, err := toNodeItem(rec)
	if err != nil {
		return node.Record{}, err
	}
	notExists, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
	if err != nil {
		return node.Record{}, fmt.Errorf("failed to build expression: %w", err)
	}

	txn := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                 aws.String(s.tableName),
			Item:                      item,
			ConditionExpression:       notExists.Condition(),
			ExpressionAttributeNames:  notExists.Names(),
			ExpressionAttributeValues: notExists.Values(),
		},
	}}
	if !n.Parent.IsZero() {
		edgeTxn, err := s.edgeWrites(node.NewEdge(n.Parent, id), []node.ID{n.Parent})
		if err != nil {
			return node.Record{}, err
		}
		txn = append(txn, edgeTxn...)
	}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: txn}); err != nil {
		return node.Record{}, classifyError(err, "AddNode", graphstore.NodeResource(n.Parent))
	}

	s.logger.Debug("Node added", zap.String("nodeID", id.String()), zap.String("parent", n.Parent.String()))
	return rec, nil
}

// edgeWrites builds the puts for e plus a condition check that each of
// mustExist has a metadata item.
func (s *Store) edgeWrites(e node.Edge, mustExist []node.ID) ([]types.TransactWriteItem, error) {
	exists, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeExists()).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var txn []types.TransactWriteItem
	for _, id := range mustExist {
		txn = append(txn, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                 aws.String(s.tableName),
				Key:                       nodeKey(id),
				ConditionExpression:       exists.Condition(),
				ExpressionAttributeNames:  exists.Names(),
				ExpressionAttributeValues: exists.Values(),
			},
		})
	}

	out, in, err := edgeItems(e)
	if err != nil {
		return nil, err
	}
	txn = append(txn,
		types.TransactWriteItem{Put: &types.Put{TableName: aws.String(s.tableName), Item: out}},
		types.TransactWriteItem{Put: &types.Put{TableName: aws.String(s.tableName), Item: in}},
	)
	return txn, nil
}

var fieldAttr = map[node.Field]string{
	node.FieldTitle:   "Title",
	node.FieldContent: "Content",
	node.FieldTags:    "Tags",
	node.FieldType:    "Type",
}

func (s *Store) UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.Record, error) {
	if err := graphstore.CheckUpdate(id, field, val); err != nil {
		return node.Record{}, err
	}
	attr, ok := fieldAttr[field]
	if !ok {
		return node.Record{}, fmt.Errorf("unknown node attribute %q", field)
	}

	update := expression.Set(expression.Name(attr), expression.Value(val))
	if field == node.FieldTitle {
		update = update.Set(expression.Name(attrTitleLow), expression.Value(strings.ToLower(val)))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return node.Record{}, fmt.Errorf("failed to build expression: %w", err)
	}

	res, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       nodeKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return node.Record{}, classifyError(err, "UpdateNode", graphstore.NodeResource(id))
	}
	return fromNodeItem(res.Attributes)
}

func (s *Store) Link(ctx context.Context, parent, child node.ID, twoWay bool) error {
	mustExist := []node.ID{parent}
	if child != parent {
		mustExist = append(mustExist, child)
	}
	txn, err := s.edgeWrites(node.NewEdge(parent, child), mustExist)
	if err != nil {
		return err
	}
	if twoWay && child != parent {
		reverse, err := s.edgeWrites(node.NewEdge(child, parent), nil)
		if err != nil {
			return err
		}
		txn = append(txn, reverse...)
	}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: txn}); err != nil {
		return classifyError(err, "Link", "edge:"+node.NewEdge(parent, child).String())
	}
	return nil
}

func (s *Store) Unlink(ctx context.Context, parent, child node.ID, twoWay bool) error {
	if err := graphstore.CheckUnlink(parent, child); err != nil {
		return err
	}

	forward := node.NewEdge(parent, child)
	removed, err := s.deleteEdge(ctx, forward)
	if err != nil {
		return err
	}
	if twoWay {
		back, err := s.deleteEdge(ctx, node.NewEdge(child, parent))
		if err != nil {
			return err
		}
		removed = removed || back
	}
	if !removed {
		return graphstore.EdgeNotFound("Unlink", forward)
	}
	return nil
}

func (s *Store) deleteEdge(ctx context.Context, e node.Edge) (bool, error) {
	outKey, inKey := edgeKeys(e)
	res, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          outKey,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, classifyError(err, "Unlink", "edge:"+e.String())
	}
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       inKey,
	}); err != nil {
		return false, classifyError(err, "Unlink", "edge:"+e.String())
	}
	return len(res.Attributes) > 0, nil
}

func (s *Store) Search(ctx context.Context, query string) ([]node.SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []node.SearchResult{}
	if q == "" {
		return results, nil
	}

	filter := expression.Name(attrEntity).Equal(expression.Value(entityNode)).
		And(expression.Name(attrTitleLow).Contains(q))
	recs, err := s.scanNodes(ctx, filter, "Search")
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		results = append(results, node.SearchResult{ID: rec.ID, Title: rec.Title})
	}
	return results, nil
}

func (s *Store) ListIDs(ctx context.Context) ([]node.ID, error) {
	recs, err := s.scanNodes(ctx, expression.Name(attrEntity).Equal(expression.Value(entityNode)), "ListIDs")
	if err != nil {
		return nil, err
	}
	ids := make([]node.ID, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// scanNodes returns matching node records sorted by id.
func (s *Store) scanNodes(ctx context.Context, filter expression.ConditionBuilder, op string) ([]node.Record, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var recs []node.Record
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError(err, op, s.tableName)
		}
		for _, item := range page.Items {
			rec, err := fromNodeItem(item)
			if err != nil {
				s.logger.Warn("Skipping unreadable node item", zap.Error(err))
				continue
			}
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return node.Less(recs[i].ID, recs[j].ID) })
	return recs, nil
}
