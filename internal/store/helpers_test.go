package store_test

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
	"github.com/vk/feedstore/internal/store"
)

// eventLog is a shared, ordered record of observable pipeline events so
// tests can assert cross-component ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// recordingFeed implements every capability and records what it sees.
type recordingFeed struct {
	name  string
	log   *eventLog
	store feed.StoreAPI

	mu       sync.Mutex
	actions  []action.Action
	inited   int
	uninited int
	ctx      context.Context

	failOn   string // action type whose handling returns an error
	panicOn  string // action type whose handling panics
	onAction func(a action.Action)
}

func (f *recordingFeed) BindStore(s feed.StoreAPI) { f.store = s }

func (f *recordingFeed) Init(ctx context.Context) error {
	f.mu.Lock()
	f.inited++
	f.ctx = ctx
	f.mu.Unlock()
	if f.log != nil {
		f.log.add(f.name + ":init")
	}
	return nil
}

func (f *recordingFeed) Uninit() {
	f.mu.Lock()
	f.uninited++
	f.mu.Unlock()
	if f.log != nil {
		f.log.add(f.name + ":uninit")
	}
}

func (f *recordingFeed) OnAction(a action.Action) error {
	f.mu.Lock()
	f.actions = append(f.actions, a)
	f.mu.Unlock()
	if f.log != nil {
		f.log.add(f.name + ":" + a.Type)
	}
	if f.onAction != nil {
		f.onAction(a)
	}
	if f.panicOn != "" && a.Type == f.panicOn {
		panic("feed exploded")
	}
	if f.failOn != "" && a.Type == f.failOn {
		return errors.New("feed failed")
	}
	return nil
}

func (f *recordingFeed) seen() []action.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]action.Action, len(f.actions))
	copy(out, f.actions)
	return out
}

func (f *recordingFeed) seenTypes() []string {
	var types []string
	for _, a := range f.seen() {
		types = append(types, a.Type)
	}
	return types
}

// orderProbeChannel is a RelayChannel that appends to the shared event log,
// so tests can pin where the relay stage runs relative to feed fan-out.
type orderProbeChannel struct {
	log       *eventLog
	createErr error
	created   int
	destroyed int
	replays   int
}

func (c *orderProbeChannel) Middleware(next store.DispatchFunc) store.DispatchFunc {
	return func(a action.Action) error {
		if err := next(a); err != nil {
			return err
		}
		c.log.add("relay:" + a.Type)
		return nil
	}
}

func (c *orderProbeChannel) CreateChannel(context.Context) error {
	c.created++
	return c.createErr
}

func (c *orderProbeChannel) DestroyChannel() error {
	c.destroyed++
	return nil
}

func (c *orderProbeChannel) ReplayInitialState() {
	c.replays++
	c.log.add("relay:replay")
}

// countReducer tracks how many actions of each type the slice has seen.
func countReducer(state any, a action.Action) (any, error) {
	prev, _ := state.(map[string]int)
	next := make(map[string]int, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[a.Type]++
	return next, nil
}
