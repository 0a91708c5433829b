// Package broker provides the publish/subscribe transport behind the
// synchronization channel. Subjects use NATS-style dot-separated tokens
// with the '*' (one token) and '>' (rest of subject) wildcards, so the
// in-process broker and the NATS broker are interchangeable.
package broker

import (
	"errors"
	"strings"
)

// ErrTransportUnavailable is returned by Publish when the transport is
// closed or disconnected. It is not a room-state error; callers retry
// with backoff.
var ErrTransportUnavailable = errors.New("transport unavailable")

// Handler receives every message published to a matching subject.
// Delivery is fire-and-forget with at-least-once intent; handlers must
// not block.
type Handler func(subject string, data []byte)

// Subscription is a handle owned by the subscriber.
type Subscription interface {
	Unsubscribe() error
}

// Broker is the synchronization channel's transport.
type Broker interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, h Handler) (Subscription, error)
	Close() error
}

// subjectMatches reports whether a concrete subject matches a pattern.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
