// Package feed defines the contract between the store and its pluggable
// feeds. A feed is a capability set: every method is optional and is
// discovered by interface assertion, so a minimal feed can be an empty
// struct and a full one can implement all four capabilities.
package feed

import (
	"context"

	"github.com/vk/feedstore/internal/action"
)

// Feed is the base type for anything a Factory can construct. It carries no
// required methods; the store probes for the capability interfaces below.
type Feed interface{}

// Factory constructs a fresh feed instance. Factories take no arguments; a
// feed that needs the store declares StoreBinder and is bound right after
// construction.
type Factory func() Feed

// StoreAPI is the only surface a feed may use to talk back to its owning
// store. Keeping it narrow stops feeds from reaching into store internals.
type StoreAPI interface {
	// Dispatch runs an action through the full pipeline synchronously.
	// It must not be called from inside an OnAction handler; use
	// DispatchLater there.
	Dispatch(a action.Action) error

	// DispatchLater dispatches fire-and-forget, serialized after any
	// dispatch currently in flight. This is the sanctioned way for feed
	// code to re-enter the pipeline.
	DispatchLater(a action.Action)

	// State returns the current state snapshot.
	State() map[string]any
}

// ActionHandler is implemented by feeds that want to observe every
// dispatched action. A returned error is isolated to this feed: it is
// logged and counted but never interrupts the dispatch.
type ActionHandler interface {
	OnAction(a action.Action) error
}

// Initializer is implemented by feeds with setup work. The context is
// cancelled when the instance is uninitialized, so long-running work started
// here should watch ctx.Done and any late completion should check ctx.Err
// before dispatching follow-up actions.
type Initializer interface {
	Init(ctx context.Context) error
}

// Uninitializer is implemented by feeds with teardown work. Called after the
// feed has received the teardown action and left the active set.
type Uninitializer interface {
	Uninit()
}

// StoreBinder is implemented by feeds that dispatch actions or read state.
// The store calls BindStore immediately after the factory returns, before
// any other capability is invoked.
type StoreBinder interface {
	BindStore(s StoreAPI)
}
