package broker

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 256

// MemoryBroker is the in-process transport used by single-instance
// deployments and tests. Each subscription pumps messages to its handler
// from a buffered channel, so publishers never block on slow consumers;
// a full buffer drops the message.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[*memorySubscription]bool
	closed bool
}

type memorySubscription struct {
	broker  *MemoryBroker
	pattern string
	handler Handler
	ch      chan message
	done    chan struct{}
}

type message struct {
	subject string
	data    []byte
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*memorySubscription]bool)}
}

// Publish delivers data to every matching subscription without blocking.
func (b *MemoryBroker) Publish(subject string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrTransportUnavailable
	}
	for sub := range b.subs {
		if !subjectMatches(sub.pattern, subject) {
			continue
		}
		select {
		case sub.ch <- message{subject: subject, data: data}:
		default:
			log.Warn().
				Str("subject", subject).
				Str("pattern", sub.pattern).
				Msg("subscription buffer full, dropping message")
		}
	}
	return nil
}

// Subscribe registers a handler for every subject matching the pattern.
func (b *MemoryBroker) Subscribe(pattern string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrTransportUnavailable
	}
	sub := &memorySubscription{
		broker:  b,
		pattern: pattern,
		handler: h,
		ch:      make(chan message, subscriptionBuffer),
		done:    make(chan struct{}),
	}
	b.subs[sub] = true
	go sub.pump()
	return sub, nil
}

// Close drops all subscriptions; further publishes fail.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.done)
		delete(b.subs, sub)
	}
	return nil
}

func (s *memorySubscription) pump() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.ch:
			s.handler(msg.subject, msg.data)
		}
	}
}

// Unsubscribe detaches the handler and stops its pump.
func (s *memorySubscription) Unsubscribe() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if _, ok := s.broker.subs[s]; ok {
		delete(s.broker.subs, s)
		close(s.done)
	}
	return nil
}
