// Package bus carries mutation events out of the pipeline. Every
// successful write publishes a small JSON payload on a dotted subject
// so other surfaces (the terminal, the HTTP event feed, an external
// NATS consumer) can react without polling the state file. Delivery is
// fire-and-forget: a slow or absent subscriber never blocks a mutation.
//
// The default backend is in-memory; a NATS backend is available when a
// server URL is configured.
package bus

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is the answer to any operation on a bus or subscription
// that has already shut down.
var ErrClosed = errors.New("bus or subscription closed")

// Subjects published by the pipeline, relative to the configured
// prefix. Join composes the full subject.
const (
	SubjectTaskAdded        = "task.added"
	SubjectClassAdded       = "class.added"
	SubjectScheduleImported = "schedule.imported"
)

// Join prefixes a relative subject: Join("focusboard", "task.added")
// is "focusboard.task.added". An empty prefix leaves the subject bare.
func Join(prefix, subject string) string {
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

// MessageBus is the transport for mutation events. Both backends are
// safe for concurrent use.
type MessageBus interface {
	// Publish fans data out to every subscription whose pattern covers
	// subject. It returns once the message is handed off, not once
	// handlers have run.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers handler under a subject pattern. "*" matches
	// exactly one token and ">" the rest, so "focusboard.*.added"
	// covers both task and class additions while "focusboard.>" covers
	// everything under the prefix. The handler runs on the
	// subscription's own goroutine.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Close shuts the bus down and retires every live subscription.
	Close() error
}

// MessageHandler processes one delivered message. A handler that
// stalls long enough to fill its queue starts losing messages.
type MessageHandler func(msg *Message)

// Message is one event off the bus.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription is a live handler registration.
type Subscription interface {
	// Unsubscribe detaches the handler; no further messages arrive.
	Unsubscribe() error

	// Subject reports the pattern the subscription was created with.
	Subject() string
}

// Config holds settings for the NATS backend.
type Config struct {
	// URL names the server, e.g. "nats://localhost:4222".
	URL string

	// Name identifies this client in server monitoring output.
	Name string

	// Timeout bounds the initial connect.
	Timeout time.Duration
}

// DefaultConfig is the local-server baseline the CLI starts from.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "focusboard",
		Timeout: 30 * time.Second,
	}
}
