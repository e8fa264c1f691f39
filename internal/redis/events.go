package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
)

const eventBufferSize = 16

// TripTopic is the channel carrying every change to one trip.
func TripTopic(tripID string) string {
	return "trip:" + tripID
}

// UserTopic is the channel carrying changes to any trip a user takes part in.
func UserTopic(userID string) string {
	return "user:" + userID
}

// EventBus fans trip events out over Redis pub/sub.
type EventBus struct {
	client *redis.Client
}

// NewEventBus creates a new EventBus.
func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

// Publish sends the event to every topic.
func (b *EventBus) Publish(ctx context.Context, event domain.TripEvent, topics ...string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	pipe := b.client.Pipeline()
	for _, topic := range topics {
		pipe.Publish(ctx, topic, payload)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe listens on the topics until the stream is unsubscribed or ctx is done.
// The subscription is confirmed before it is returned, so no later Publish is missed.
func (b *EventBus) Subscribe(ctx context.Context, topics ...string) (EventStream, error) {
	ps := b.client.Subscribe(ctx, topics...)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	sub := &subscription{
		pubsub: ps,
		events: make(chan domain.TripEvent, eventBufferSize),
		done:   make(chan struct{}),
	}
	go sub.forward(ps.Channel())
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	events chan domain.TripEvent
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) forward(messages <-chan *redis.Message) {
	defer close(s.events)

	for msg := range messages {
		var event domain.TripEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}

		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Events() <-chan domain.TripEvent {
	return s.events
}

func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
