package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBridge struct {
	mock.Mock
}

func (m *mockEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func TestEventBridgePublisher_Publish(t *testing.T) {
	client := new(mockEventBridge)
	pub := NewEventBridgePublisher(client, "safespace-bus", "")
	fixed := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	event := StoryCreated{StoryID: "s-1", Mood: "hopeful", Cleaned: true, OccurredAt: fixed}

	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		if len(in.Entries) != 1 {
			return false
		}
		e := in.Entries[0]
		var detail map[string]any
		if err := json.Unmarshal([]byte(aws.ToString(e.Detail)), &detail); err != nil {
			return false
		}
		return aws.ToString(e.EventBusName) == "safespace-bus" &&
			aws.ToString(e.Source) == "safespace.api" &&
			aws.ToString(e.DetailType) == "StoryCreated" &&
			detail["storyId"] == "s-1" &&
			detail["cleaned"] == true &&
			e.Resources[0] == "s-1"
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	require.NoError(t, pub.Publish(context.Background(), event))
	client.AssertExpectations(t)
}

func TestEventBridgePublisher_Batches(t *testing.T) {
	client := new(mockEventBridge)
	pub := NewEventBridgePublisher(client, "", "")

	events := make([]Event, 0, 23)
	for i := 0; i < 23; i++ {
		events = append(events, StoryReported{StoryID: fmt.Sprintf("s-%d", i), Reason: "spam"})
	}

	var sizes []int
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)

	require.NoError(t, pub.Publish(context.Background(), events...))
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestEventBridgePublisher_Failures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		client := new(mockEventBridge)
		client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		err := NewEventBridgePublisher(client, "", "").Publish(context.Background(), StoryCreated{StoryID: "s-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "throttled")
	})

	t.Run("failed entries", func(t *testing.T) {
		client := new(mockEventBridge)
		client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{FailedEntryCount: 1}, nil)

		err := NewEventBridgePublisher(client, "", "").Publish(context.Background(), StoryCreated{StoryID: "s-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 events failed")
	})
}

func TestEventBridgePublisher_NoEvents(t *testing.T) {
	client := new(mockEventBridge)
	require.NoError(t, NewEventBridgePublisher(client, "", "").Publish(context.Background()))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), StoryCreated{}))
}
