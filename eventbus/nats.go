package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// streamSubjects maps the JetStream streams this package provisions to
// the subjects they capture, mirroring the teacher's per-domain stream
// layout but scoped to graph execution topics instead of chat/run
// topics.
var streamSubjects = []struct {
	name     string
	subjects []string
}{
	{name: "graphrt-executions", subjects: []string{"graphrt.execution.>"}},
	{name: "graphrt-nodes", subjects: []string{"graphrt.node.>"}},
	{name: "graphrt-checkpoints", subjects: []string{"graphrt.checkpoint.>"}},
}

// NATSPublisher publishes events to JetStream subjects over Watermill's
// NATS transport.
type NATSPublisher struct {
	publisher *wmnats.Publisher
	logger    watermill.LoggerAdapter
}

// NewNATSPublisher connects to natsURL, provisions the runtime's
// JetStream streams if they don't already exist, and returns a
// publisher ready to publish events.
func NewNATSPublisher(natsURL string, logger watermill.LoggerAdapter) (*NATSPublisher, error) {
	nc, err := natsgo.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	pub, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:       natsURL,
			Marshaler: wmnats.GobMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build nats publisher: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		return nil, fmt.Errorf("ensure streams: %w", err)
	}

	return &NATSPublisher{publisher: pub, logger: logger}, nil
}

// Publish JSON-encodes event and publishes it to subject, namespaced
// under "graphrt.<event-type-prefix>".
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", event.EventType())
	msg.Metadata.Set("aggregate_id", event.AggregateID())

	return p.publisher.Publish(subjectFor(event), msg)
}

// Close closes the underlying NATS publisher.
func (p *NATSPublisher) Close() error {
	return p.publisher.Close()
}

// NATSSubscriber consumes events from a JetStream subject.
type NATSSubscriber struct {
	subscriber *wmnats.Subscriber
}

// NewNATSSubscriber connects to natsURL for consuming.
func NewNATSSubscriber(natsURL string, logger watermill.LoggerAdapter) (*NATSSubscriber, error) {
	sub, err := wmnats.NewSubscriber(
		wmnats.SubscriberConfig{
			URL:         natsURL,
			Unmarshaler: wmnats.GobMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build nats subscriber: %w", err)
	}
	return &NATSSubscriber{subscriber: sub}, nil
}

// Subscribe returns the channel of raw Watermill messages for subject;
// callers JSON-decode the payload into the concrete event type they
// expect based on the "event_type" metadata key.
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, subject)
}

// Close closes the underlying NATS subscriber.
func (s *NATSSubscriber) Close() error {
	return s.subscriber.Close()
}

func subjectFor(event Event) string {
	switch event.(type) {
	case ExecutionStarted, ExecutionCompleted:
		return "graphrt.execution." + event.EventType()
	case NodeDispatched:
		return "graphrt.node." + event.EventType()
	case CheckpointSaved:
		return "graphrt.checkpoint." + event.EventType()
	default:
		return "graphrt.event." + event.EventType()
	}
}

func ensureStreams(js natsgo.JetStreamContext) error {
	for _, stream := range streamSubjects {
		if _, err := js.StreamInfo(stream.name); err == nil {
			continue
		}
		if _, err := js.AddStream(&natsgo.StreamConfig{
			Name:     stream.name,
			Subjects: stream.subjects,
			Storage:  natsgo.FileStorage,
			Replicas: 1,
		}); err != nil {
			return err
		}
	}
	return nil
}
