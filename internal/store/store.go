// Package store implements the orchestration core: a single state tree
// updated by a combined reducer, a middleware pipeline around every
// dispatch, and a dynamically enabled set of feeds notified of each action.
//
// The concurrency model is deliberately boring. One mutex serializes
// dispatches, pref callbacks, and lifecycle operations, so at most one
// dispatch is ever in flight and neither the state tree nor the active-feeds
// map needs further locking. Feed code re-enters the pipeline only through
// DispatchLater, which runs after the triggering dispatch has returned.
package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
	"github.com/vk/feedstore/internal/prefs"
	"github.com/vk/feedstore/internal/registry"
)

// Options configures a Store. Reducers is the only field a useful store
// cannot do without; everything else has a working zero value.
type Options struct {
	// Reducers maps state-slice names to their reducers.
	Reducers map[string]Reducer

	// InitialState seeds the state tree. Slices without an entry start nil.
	InitialState map[string]any

	// Prefs supplies the feed enablement signals. Nil means every feed is
	// treated as disabled until OnPrefChanged says otherwise.
	Prefs prefs.Source

	// Relay is the cross-process transport collaborator; nil disables the
	// relay stage entirely.
	Relay RelayChannel

	// Logger receives the store's structured logs; nil uses slog.Default.
	Logger *slog.Logger

	// FeedErrorHook observes every contained feed-notification failure.
	// It runs inside the dispatch that triggered it, so it must not call
	// Dispatch; DispatchLater is fine.
	FeedErrorHook func(*FeedNotificationError)
}

// instance is one live feed plus the bookkeeping that lets the store
// invalidate its in-flight work at uninit time.
type instance struct {
	key    string
	id     string
	feed   feed.Feed
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriber struct {
	id int
	fn func()
}

// Store owns the state tree, the dispatch pipeline, the feed registry, and
// the currently active feed instances. Create one per process with New, wire
// feeds with Init, and tear down with Uninit.
type Store struct {
	mu sync.Mutex

	logger  *slog.Logger
	prefs   prefs.Source
	relay   RelayChannel
	errHook func(*FeedNotificationError)

	reducer  RootReducer
	pipeline DispatchFunc
	state    map[string]any
	snapshot atomic.Value // map[string]any, mirrors state for lock-free reads

	registry     *registry.Registry
	active       map[string]*instance
	initAction   *action.Action
	uninitAction *action.Action
	initialized  bool
	baseCtx      context.Context

	subscribers []subscriber
	nextSubID   int
	feedErrors  map[string]int

	// async tracks DispatchLater goroutines so tests can drain them.
	async sync.WaitGroup
}

// New builds a store from opts. The store is usable for Dispatch right away;
// feeds only exist after Init.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	state := make(map[string]any, len(opts.InitialState))
	for k, v := range opts.InitialState {
		state[k] = v
	}
	s := &Store{
		logger:     logger,
		prefs:      opts.Prefs,
		relay:      opts.Relay,
		errHook:    opts.FeedErrorHook,
		reducer:    CombineReducers(opts.Reducers),
		state:      state,
		active:     make(map[string]*instance),
		feedErrors: make(map[string]int),
	}
	s.snapshot.Store(state)
	s.buildPipeline()
	return s
}

// Dispatch runs a through the full middleware chain and returns once the
// reducer update, subscriber notification, feed fan-out, and relay stage
// have all completed. Only reducer failures produce an error; feed failures
// are contained.
//
// Dispatch must not be called from inside a feed's OnAction handler; that
// would deadlock on the pipeline mutex. Feed code uses DispatchLater.
func (s *Store) Dispatch(a action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline(a)
}

// DispatchLater dispatches a fire-and-forget, serialized after whatever
// dispatch is currently in flight. Errors are logged, not returned; a caller
// that cares about reducer errors should use Dispatch from outside the
// pipeline instead.
func (s *Store) DispatchLater(a action.Action) {
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		if err := s.Dispatch(a); err != nil {
			s.logger.Error("Deferred dispatch failed.", "action", a.Type, "error", err)
		}
	}()
}

// Flush blocks until all DispatchLater work queued so far has completed.
// Intended for tests and orderly shutdown.
func (s *Store) Flush() {
	s.async.Wait()
}

// State returns the current state snapshot. It takes no lock, so subscriber
// callbacks and feed handlers running inside a dispatch may call it freely.
// The returned map is the tree current at the time of the call; treat it as
// immutable.
func (s *Store) State() map[string]any {
	return s.snapshot.Load().(map[string]any)
}

// Subscribe registers fn to run after every state change and returns the
// matching unsubscribe function. Subscribers run inside the dispatch, in
// subscription order.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// FeedErrorCount returns how many contained OnAction failures the feed under
// key has produced since the store was created.
func (s *Store) FeedErrorCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedErrors[key]
}

// ActiveFeeds returns the keys of the currently live feeds in registry
// order. Mostly useful for tests and diagnostics.
func (s *Store) ActiveFeeds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return nil
	}
	var keys []string
	for _, key := range s.registry.Keys() {
		if _, ok := s.active[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

var _ feed.StoreAPI = (*Store)(nil)
