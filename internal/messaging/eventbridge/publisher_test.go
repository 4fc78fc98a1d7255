package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/messaging"
)

type fakeClient struct {
	calls  []*eventbridge.PutEventsInput
	err    error
	failed int32
}

func (f *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for i := range in.Entries {
		entry := types.PutEventsResultEntry{EventId: aws.String("id")}
		if int32(i) < f.failed {
			entry.ErrorCode = aws.String("InternalFailure")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func TestPublisher_Batches(t *testing.T) {
	fc := &fakeClient{}
	p := NewPublisher(fc, "graph-bus", nil)

	var events []messaging.GraphEvent
	for i := 0; i < 23; i++ {
		events = append(events, messaging.NodeUpdated(node.MustCanonical(i+1), node.FieldTitle))
	}
	require.NoError(t, p.Publish(context.Background(), events...))

	require.Len(t, fc.calls, 3)
	assert.Len(t, fc.calls[0].Entries, 10)
	assert.Len(t, fc.calls[1].Entries, 10)
	assert.Len(t, fc.calls[2].Entries, 3)

	first := fc.calls[0].Entries[0]
	assert.Equal(t, "graph-bus", aws.ToString(first.EventBusName))
	assert.Equal(t, messaging.Source, aws.ToString(first.Source))
	assert.Equal(t, messaging.TypeNodeUpdated, aws.ToString(first.DetailType))
	assert.Equal(t, []string{"concept-graph:node/1"}, first.Resources)

	var detail messaging.GraphEvent
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(first.Detail)), &detail))
	assert.Equal(t, node.ID("1"), detail.NodeID)
	assert.NotEmpty(t, detail.EventID)
}

func TestPublisher_Failures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		p := NewPublisher(&fakeClient{err: errors.New("offline")}, "bus", nil)
		err := p.Publish(context.Background(), messaging.EdgeLinked("0", "1", false))
		assert.True(t, apperrors.IsTransport(err))
		assert.Equal(t, apperrors.CodeEventPublishFailed, apperrors.Code(err))
	})

	t.Run("partial failure", func(t *testing.T) {
		p := NewPublisher(&fakeClient{failed: 1}, "bus", nil)
		err := p.Publish(context.Background(), messaging.EdgeUnlinked("0", "1", true), messaging.NodeAdded(node.Record{ID: "2"}, "0"))
		assert.Error(t, err)
	})

	t.Run("nothing to send", func(t *testing.T) {
		fc := &fakeClient{}
		require.NoError(t, NewPublisher(fc, "bus", nil).Publish(context.Background()))
		assert.Empty(t, fc.calls)
	})
}
