// Package relay provides implementations of the store's cross-process
// transport collaborator. The store only sees the store.RelayChannel
// interface; this package supplies a loopback channel for tests and local
// runs, and a socket.io client channel that mirrors actions to a remote
// consumer.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/store"
)

// Envelope is the wire form of a mirrored action. Every envelope gets its
// own message ID so consumers can de-duplicate redeliveries.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Source  string `json:"source,omitempty"`
	SentAt  int64  `json:"sent_at"`
}

// envelopeFor wraps a dispatched action for the transport boundary.
func envelopeFor(a action.Action) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Type:    a.Type,
		Payload: a.Payload,
		Source:  a.Meta.Source,
		SentAt:  time.Now().UnixMilli(),
	}
}

// Loopback is an in-process relay channel. It mirrors actions into a slice
// instead of a transport, which makes it both the default channel for local
// runs and the recording double the test suite asserts against.
type Loopback struct {
	mu       sync.Mutex
	created  bool
	mirrored []Envelope
	replays  int
}

// NewLoopback returns an empty loopback channel.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Middleware implements store.RelayChannel. Actions are mirrored only after
// the inner stages succeed, and local-only actions stay local.
func (l *Loopback) Middleware(next store.DispatchFunc) store.DispatchFunc {
	return func(a action.Action) error {
		if err := next(a); err != nil {
			return err
		}
		if a.Meta.SkipRelay {
			return nil
		}
		l.mu.Lock()
		if l.created {
			l.mirrored = append(l.mirrored, envelopeFor(a))
		}
		l.mu.Unlock()
		return nil
	}
}

// CreateChannel implements store.RelayChannel.
func (l *Loopback) CreateChannel(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = true
	return nil
}

// DestroyChannel implements store.RelayChannel.
func (l *Loopback) DestroyChannel() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = false
	return nil
}

// ReplayInitialState implements store.RelayChannel.
func (l *Loopback) ReplayInitialState() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replays++
}

// Mirrored returns a copy of every envelope mirrored so far.
func (l *Loopback) Mirrored() []Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Envelope, len(l.mirrored))
	copy(out, l.mirrored)
	return out
}

// Replays returns how many times ReplayInitialState has run.
func (l *Loopback) Replays() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replays
}

var _ store.RelayChannel = (*Loopback)(nil)
