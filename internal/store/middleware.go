package store

import (
	"context"
	"fmt"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
)

// DispatchFunc is one stage of the dispatch pipeline.
type DispatchFunc func(a action.Action) error

// Middleware wraps the next pipeline stage. The store's own stages (and any
// relay middleware) call next first and do their work afterwards, which
// yields the documented order: reduce, then feeds, then relay.
type Middleware func(next DispatchFunc) DispatchFunc

// RelayChannel is the cross-process transport collaborator. The store treats
// it as opaque: its middleware runs as the outermost pipeline stage, and its
// lifecycle is driven from Init/Uninit.
//
// Middleware implementations must call next before mirroring and must not
// mirror when next returns an error, since state integrity is already gone
// at that point. A channel whose CreateChannel failed must make its
// middleware a pass-through.
type RelayChannel interface {
	Middleware(next DispatchFunc) DispatchFunc
	CreateChannel(ctx context.Context) error
	DestroyChannel() error

	// ReplayInitialState simulates the bootstrap messages a late-joining
	// consumer would have received, so existing consumers converge on the
	// freshly initialized state.
	ReplayInitialState()
}

// buildPipeline composes the store's dispatch chain around the reducer core.
func (s *Store) buildPipeline() {
	chain := s.reduceStage()
	chain = s.notifyFeedsStage(chain)
	if s.relay != nil {
		chain = s.relay.Middleware(chain)
	}
	s.pipeline = chain
}

// reduceStage is the pipeline core: apply the root reducer, swap the state
// tree, tell subscribers. A reducer error aborts the whole dispatch.
func (s *Store) reduceStage() DispatchFunc {
	return func(a action.Action) error {
		next, err := s.reducer(s.state, a)
		if err != nil {
			return fmt.Errorf("dispatch of %q aborted: %w", a.Type, err)
		}
		s.state = next
		s.snapshot.Store(next)
		for _, sub := range s.subscribers {
			sub.fn()
		}
		return nil
	}
}

// notifyFeedsStage fans the action out to every active feed after the state
// update has completed. One feed's failure never hides the action from the
// rest of the feeds or from the relay stage.
func (s *Store) notifyFeedsStage(next DispatchFunc) DispatchFunc {
	return func(a action.Action) error {
		if err := next(a); err != nil {
			return err
		}
		if s.registry == nil {
			return nil
		}
		for _, key := range s.registry.Keys() {
			inst, ok := s.active[key]
			if !ok {
				continue
			}
			s.deliver(inst, a)
		}
		return nil
	}
}

// deliver invokes one feed's OnAction with panic containment. Failures are
// logged, counted, and handed to the error hook; they never propagate.
func (s *Store) deliver(inst *instance, a action.Action) {
	handler, ok := inst.feed.(feed.ActionHandler)
	if !ok {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return handler.OnAction(a)
	}()
	if err == nil {
		return
	}
	ferr := &FeedNotificationError{Key: inst.key, ActionType: a.Type, Err: err}
	s.logger.Error("Feed failed to handle action.", "feed", inst.key, "action", a.Type, "error", err)
	s.feedErrors[inst.key]++
	if s.errHook != nil {
		s.errHook(ferr)
	}
}
