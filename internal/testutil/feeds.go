package testutil

import (
	"context"
	"sync"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
	"github.com/vk/feedstore/internal/registry"
)

// ProbeModule registers a ProbeFeed under an arbitrary key, so app-level
// tests can drop an observable feed next to (or instead of) the core modules.
// The same ProbeFeed instance is returned from every factory call, which lets
// the test keep a handle on it across enable/disable cycles.
type ProbeModule struct {
	Key  string
	Feed *ProbeFeed

	// Fail makes the probe return an error from every OnAction, for
	// exercising the containment and telemetry-report path.
	Fail error
}

// Register implements registry.Module.
func (m *ProbeModule) Register(r *registry.Registry) {
	if m.Feed == nil {
		m.Feed = &ProbeFeed{}
	}
	m.Feed.fail = m.Fail
	r.Register(m.Key, func() feed.Feed { return m.Feed })
}

// ProbeFeed records every lifecycle event and action it observes.
type ProbeFeed struct {
	mu      sync.Mutex
	store   feed.StoreAPI
	actions []action.Action
	inits   int
	uninits int
	fail    error
}

// BindStore implements feed.StoreBinder.
func (f *ProbeFeed) BindStore(s feed.StoreAPI) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = s
}

// Init implements feed.Initializer.
func (f *ProbeFeed) Init(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return nil
}

// Uninit implements feed.Uninitializer.
func (f *ProbeFeed) Uninit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninits++
}

// OnAction implements feed.ActionHandler.
func (f *ProbeFeed) OnAction(a action.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return f.fail
}

// ActionTypes returns the types of every action seen so far, in order.
func (f *ProbeFeed) ActionTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.actions))
	for i, a := range f.actions {
		types[i] = a.Type
	}
	return types
}

// Inits returns how many times the feed has been initialized.
func (f *ProbeFeed) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

// Uninits returns how many times the feed has been torn down.
func (f *ProbeFeed) Uninits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uninits
}

// Store returns the bound store API, nil before BindStore.
func (f *ProbeFeed) Store() feed.StoreAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store
}

var _ registry.Module = (*ProbeModule)(nil)
