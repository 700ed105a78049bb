// Package pubsub provides the in-process publish-subscribe fanout used to
// stream style and DMX changes to websocket clients.
package pubsub

import (
	"strconv"
	"sync"
)

// Topic identifies a subscription stream.
type Topic string

const (
	// TopicStyleChanged fires when an element's classes or properties change.
	TopicStyleChanged Topic = "STYLE_CHANGED"
	// TopicDMXOutput fires when a universe's channel values change.
	TopicDMXOutput Topic = "DMX_OUTPUT_CHANGED"
	// TopicInputEvent mirrors normalized input events to observers.
	TopicInputEvent Topic = "INPUT_EVENT"
)

// Subscriber receives messages for one topic on a buffered channel.
type Subscriber struct {
	ID      string
	Topic   Topic
	Filter  string // optional filter value (e.g. element id, universe)
	Channel chan interface{}
}

// PubSub manages subscriptions and message distribution. Publishing never
// blocks; a full subscriber channel drops the message.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*Subscriber
	nextID      int
}

// New creates a PubSub instance.
func New() *PubSub {
	return &PubSub{subscribers: make(map[Topic][]*Subscriber)}
}

// Subscribe creates a subscription for a topic. An empty filter receives
// every message on the topic.
func (ps *PubSub) Subscribe(topic Topic, filter string, bufferSize int) *Subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &Subscriber{
		ID:      strconv.Itoa(ps.nextID),
		Topic:   topic,
		Filter:  filter,
		Channel: make(chan interface{}, bufferSize),
	}
	ps.subscribers[topic] = append(ps.subscribers[topic], sub)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (ps *PubSub) Unsubscribe(sub *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	subs := ps.subscribers[sub.Topic]
	for i, s := range subs {
		if s.ID == sub.ID {
			close(s.Channel)
			ps.subscribers[sub.Topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends a message to subscribers of a topic whose filter matches
// (or is empty).
func (ps *PubSub) Publish(topic Topic, filter string, message interface{}) {
	ps.mu.RLock()
	subs := ps.subscribers[topic]
	ps.mu.RUnlock()

	for _, sub := range subs {
		if sub.Filter == "" || filter == "" || sub.Filter == filter {
			select {
			case sub.Channel <- message:
			default:
				// Slow subscriber; drop rather than stall the event path.
			}
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}
