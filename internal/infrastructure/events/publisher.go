// Package events publishes SafeSpace domain events to AWS EventBridge.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// Event is a domain event that can be published.
type Event interface {
	EventType() string
	AggregateID() string
}

// StoryCreated is emitted after a story is stored. Cleaned reports whether
// sensitive terms were masked in the content.
type StoryCreated struct {
	StoryID    string    `json:"storyId"`
	Mood       string    `json:"mood"`
	Cleaned    bool      `json:"cleaned"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e StoryCreated) EventType() string   { return "StoryCreated" }
func (e StoryCreated) AggregateID() string { return e.StoryID }

// StoryReported is emitted after a report is filed against a story.
type StoryReported struct {
	StoryID    string    `json:"storyId"`
	ReportID   string    `json:"reportId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e StoryReported) EventType() string   { return "StoryReported" }
func (e StoryReported) AggregateID() string { return e.StoryID }

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher drops every event. Used when publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// PutEventsAPI is the subset of the EventBridge client used here.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// maxBatchSize is the EventBridge limit of entries per PutEvents call.
const maxBatchSize = 10

// EventBridgePublisher implements Publisher using AWS EventBridge.
type EventBridgePublisher struct {
	client   PutEventsAPI
	eventBus string
	source   string
	now      func() time.Time
}

// NewEventBridgePublisher creates a publisher for eventBus.
func NewEventBridgePublisher(client PutEventsAPI, eventBus, source string) *EventBridgePublisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = "safespace.api"
	}
	return &EventBridgePublisher{
		client:   client,
		eventBus: eventBus,
		source:   source,
		now:      time.Now,
	}
}

// NewEventBridgeClient builds a client from the default AWS credential chain.
func NewEventBridgeClient(ctx context.Context, region string) (*eventbridge.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return eventbridge.NewFromConfig(cfg), nil
}

// Publish sends events in batches of at most ten entries.
func (p *EventBridgePublisher) Publish(ctx context.Context, events ...Event) error {
	for i := 0; i < len(events); i += maxBatchSize {
		end := min(i+maxBatchSize, len(events))
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return fmt.Errorf("failed to publish event batch: %w", err)
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishBatch(ctx context.Context, events []Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.EventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(p.now()),
			Resources:    []string{event.AggregateID()},
		})
	}

	output, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}
	if output.FailedEntryCount > 0 {
		return fmt.Errorf("%d events failed to publish", output.FailedEntryCount)
	}
	return nil
}
