// Package notification provides the notification manager for broadcasting state changes.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// mailboxSize bounds the notifications pending for one subscriber.
// When it is full the oldest pending notification is dropped.
const mailboxSize = 16

// Notification wraps a payload with its broadcast sequence number.
type Notification[T any] struct {
	SequenceNo uint64
	Payload    T
}

// Stream represents a notification stream for a subscriber.
type Stream[T any] interface {
	Send(*Notification[T]) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc[T any] func(*Notification[T]) error

// Send calls f.
func (f StreamFunc[T]) Send(n *Notification[T]) error {
	return f(n)
}

// subscription delivers notifications to one stream from its own goroutine.
type subscription[T any] struct {
	id      string
	stream  Stream[T]
	mailbox chan *Notification[T]
	done    chan struct{}
	stop    sync.Once
}

// offer queues n without blocking, dropping the oldest pending notification when full.
func (s *subscription[T]) offer(n *Notification[T]) {
	select {
	case s.mailbox <- n:
		return
	default:
	}
	select {
	case <-s.mailbox:
	default:
	}
	select {
	case s.mailbox <- n:
	default:
	}
}

func (s *subscription[T]) close() {
	s.stop.Do(func() { close(s.done) })
}

// Manager manages notification subscriptions and broadcasting.
type Manager[T any] struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription[T]
	sequenceNo    uint64
}

// NewManager creates a new notification manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		subscriptions: make(map[string]*subscription[T]),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager[T]) Subscribe(stream Stream[T]) string {
	sub := &subscription[T]{
		id:      uuid.New().String(),
		stream:  stream,
		mailbox: make(chan *Notification[T], mailboxSize),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	m.subscriptions[sub.id] = sub
	m.mu.Unlock()

	go m.deliver(sub)
	return sub.id
}

// Unsubscribe removes a subscription and stops its delivery.
func (m *Manager[T]) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Broadcast queues a payload for every subscriber and returns its sequence number.
// It never waits for a stream; subscribers whose send fails are removed.
func (m *Manager[T]) Broadcast(payload T) uint64 {
	m.mu.Lock()
	m.sequenceNo++
	n := &Notification[T]{SequenceNo: m.sequenceNo, Payload: payload}
	for _, sub := range m.subscriptions {
		sub.offer(n)
	}
	m.mu.Unlock()

	return n.SequenceNo
}

// Send queues a payload for one subscriber without advancing the sequence.
// It reports whether the subscriber exists.
func (m *Manager[T]) Send(subscriptionID string, payload T) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return false
	}
	sub.offer(&Notification[T]{SequenceNo: m.sequenceNo, Payload: payload})
	return true
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager[T]) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions and stops their delivery.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	subs := m.subscriptions
	m.subscriptions = make(map[string]*subscription[T])
	m.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (m *Manager[T]) deliver(sub *subscription[T]) {
	for {
		select {
		case <-sub.done:
			return
		case n := <-sub.mailbox:
			if err := sub.stream.Send(n); err != nil {
				zlog.Debug().Err(err).Msgf("notification: send failed, unsubscribing: id=%s", sub.id)
				m.Unsubscribe(sub.id)
				return
			}
		}
	}
}
