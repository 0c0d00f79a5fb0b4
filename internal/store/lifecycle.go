package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
	"github.com/vk/feedstore/internal/prefs"
	"github.com/vk/feedstore/internal/registry"
)

// Init takes ownership of reg, instantiates every currently enabled feed,
// begins observing pref changes, opens the relay channel, and dispatches
// initAction so all initial feeds observe the same bootstrap event.
//
// The telemetry feed (registry.TelemetryKey), when registered and enabled,
// is initialized before everything else so failures during the remaining
// feeds' setup can be captured.
//
// Collaborator failures (pref observation, relay channel) degrade
// gracefully: they are logged and wrapped as ErrCollaboratorUnavailable in
// the log record, but Init carries on with whatever did come up. Calling
// Init on an already initialized store returns ErrAlreadyInitialized.
func (s *Store) Init(ctx context.Context, reg *registry.Registry, initAction, uninitAction *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.registry = reg
	s.uninitAction = uninitAction
	s.baseCtx = ctx

	// Initial feeds come up without initAction on file so the bootstrap
	// dispatch below reaches each of them exactly once.
	if reg.Has(registry.TelemetryKey) && s.prefEnabled(registry.TelemetryKey) {
		if err := s.initFeedLocked(registry.TelemetryKey); err != nil {
			return err
		}
	}
	for _, key := range reg.Keys() {
		if key == registry.TelemetryKey {
			continue
		}
		if !s.prefEnabled(key) {
			continue
		}
		if err := s.initFeedLocked(key); err != nil {
			return err
		}
	}
	s.initAction = initAction

	if s.prefs != nil {
		if err := s.prefs.Observe(s); err != nil {
			s.logger.Warn("Pref source unavailable, feed toggling disabled.",
				"error", errors.Join(ErrCollaboratorUnavailable, err))
		}
	}
	if s.relay != nil {
		if err := s.relay.CreateChannel(ctx); err != nil {
			s.logger.Warn("Relay channel unavailable, actions stay local.",
				"error", errors.Join(ErrCollaboratorUnavailable, err))
		}
	}

	if initAction != nil {
		if err := s.pipeline(*initAction); err != nil {
			return err
		}
	}
	if s.relay != nil {
		s.relay.ReplayInitialState()
	}
	s.logger.Info("Store initialized.", "feeds_active", len(s.active), "feeds_registered", reg.Len())
	return nil
}

// Uninit tears the store down: the teardown action is dispatched while every
// feed is still active, then pref observation stops, feeds leave the active
// map with their contexts cancelled, the registry is released, and the relay
// channel closes. Uninit is idempotent and safe without a prior Init.
func (s *Store) Uninit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uninitAction != nil {
		if err := s.pipeline(*s.uninitAction); err != nil {
			s.logger.Error("Teardown dispatch failed.", "action", s.uninitAction.Type, "error", err)
		}
	}
	if s.prefs != nil {
		s.prefs.StopObserving(s)
	}
	// Feeds already saw the teardown action above; no second delivery here.
	for key := range s.active {
		s.removeFeedLocked(key)
	}
	s.registry = nil
	s.initAction = nil
	s.uninitAction = nil
	s.initialized = false
	if s.relay != nil {
		if err := s.relay.DestroyChannel(); err != nil {
			s.logger.Warn("Relay channel did not close cleanly.", "error", err)
		}
	}
}

// InitFeed constructs and activates the feed registered under key,
// regardless of its pref. It returns a *ConfigurationError when key is
// unknown. Most callers want OnPrefChanged instead.
func (s *Store) InitFeed(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initFeedLocked(key)
}

// UninitFeed deactivates the feed under key, delivering the teardown action
// to it first. It is a no-op when the key is not active, so calling it twice
// is safe.
func (s *Store) UninitFeed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uninitFeedLocked(key)
}

// OnPrefChanged implements prefs.Observer. A known key toggles the matching
// feed; unknown keys are ignored. This is the single path by which live feed
// membership changes outside Init and Uninit.
func (s *Store) OnPrefChanged(key string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry == nil || !s.registry.Has(key) {
		s.logger.Debug("Ignoring pref change for unknown feed key.", "key", key)
		return
	}
	if enabled {
		if err := s.initFeedLocked(key); err != nil {
			s.logger.Error("Failed to enable feed.", "key", key, "error", err)
		}
	} else {
		s.uninitFeedLocked(key)
	}
}

// prefEnabled resolves one enablement signal, treating an unknown pref as
// disabled. The unknown case is logged rather than swallowed.
func (s *Store) prefEnabled(key string) bool {
	if s.prefs == nil {
		return false
	}
	enabled, err := s.prefs.GetBool(key)
	if err != nil {
		if errors.Is(err, prefs.ErrUnknownPref) {
			s.logger.Debug("Feed pref is unset, treating as disabled.", "key", key)
		} else {
			s.logger.Warn("Failed to read feed pref, treating as disabled.", "key", key, "error", err)
		}
		return false
	}
	return enabled
}

// initFeedLocked builds a feed instance, binds the store, runs the optional
// Init hook, inserts it into the active map (replacing any stale instance),
// and delivers the retained initAction so a late-enabled feed catches up on
// the bootstrap event the initial feeds received.
func (s *Store) initFeedLocked(key string) error {
	if s.registry == nil {
		return &ConfigurationError{Key: key}
	}
	factory, ok := s.registry.Lookup(key)
	if !ok {
		return &ConfigurationError{Key: key, Suggestion: s.registry.Suggest(key)}
	}

	// A stale instance for the same key must go first; the active map never
	// holds two instances per key.
	s.uninitFeedLocked(key)

	f := factory()
	base := s.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	inst := &instance{
		key:    key,
		id:     uuid.NewString(),
		feed:   f,
		ctx:    ctx,
		cancel: cancel,
	}
	if binder, ok := f.(feed.StoreBinder); ok {
		binder.BindStore(s)
	}
	if initer, ok := f.(feed.Initializer); ok {
		if err := initer.Init(ctx); err != nil {
			// Feed-boundary containment applies to lifecycle hooks too:
			// the feed still activates and may recover on later actions.
			s.logger.Error("Feed init hook failed.", "feed", key, "error", err)
			s.feedErrors[key]++
		}
	}
	s.active[key] = inst
	s.logger.Debug("Feed activated.", "feed", key, "instance", inst.id)

	if s.initAction != nil {
		s.deliver(inst, *s.initAction)
	}
	return nil
}

// uninitFeedLocked deactivates one feed, delivering the teardown action to
// it before removal. No-op when the key is not active.
func (s *Store) uninitFeedLocked(key string) {
	inst, ok := s.active[key]
	if !ok {
		return
	}
	if s.uninitAction != nil {
		s.deliver(inst, *s.uninitAction)
	}
	s.removeFeedLocked(key)
}

// removeFeedLocked drops a feed from the active map, cancelling its context
// so in-flight async work can notice it is stale, and runs the optional
// Uninit hook. The feed is never notified of actions again.
func (s *Store) removeFeedLocked(key string) {
	inst, ok := s.active[key]
	if !ok {
		return
	}
	inst.cancel()
	delete(s.active, key)
	if u, ok := inst.feed.(feed.Uninitializer); ok {
		u.Uninit()
	}
	s.logger.Debug("Feed deactivated.", "feed", key, "instance", inst.id)
}
