// Package telemetry provides the error-reporting feed. The store initializes
// it before every other feed, so failures during the rest of the bootstrap
// are already being counted. It tallies dispatched actions by type, records
// feed failures reported through the store's error hook, and can emit a
// periodic local-only ping summarizing the session.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
	"github.com/vk/feedstore/internal/registry"
)

// Key is this feed's registry and pref key. The store's telemetry-first
// initialization keys off the same constant.
const Key = registry.TelemetryKey

// Action types this feed produces or consumes.
const (
	// TypeFeedError carries a contained feed-notification failure. The
	// composition root wires the store's error hook to dispatch one of
	// these (local-only) per failure.
	TypeFeedError = "TELEMETRY_FEED_ERROR"

	// TypePing is the periodic local-only session summary.
	TypePing = "TELEMETRY_PING"
)

// FeedErrorPayload is the payload of a TypeFeedError action.
type FeedErrorPayload struct {
	Feed       string `json:"feed"`
	ActionType string `json:"action_type"`
	Message    string `json:"message"`
}

// PingPayload is the payload of a TypePing action.
type PingPayload struct {
	Session string         `json:"session"`
	Events  map[string]int `json:"events"`
	Errors  int            `json:"errors"`
}

// Module implements registry.Module.
type Module struct {
	// Logger receives error reports; nil uses slog.Default.
	Logger *slog.Logger

	// Options come from the feed's manifest block. Recognized:
	// "ping_interval" (string duration, e.g. "30s") enables periodic pings.
	Options map[string]any
}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Key, func() feed.Feed {
		l := m.Logger
		if l == nil {
			l = slog.Default()
		}
		var interval time.Duration
		if raw, ok := m.Options["ping_interval"].(string); ok {
			if d, err := time.ParseDuration(raw); err == nil {
				interval = d
			} else {
				l.Warn("Ignoring malformed ping_interval option.", "value", raw, "error", err)
			}
		}
		return &Feed{logger: l, pingInterval: interval, events: make(map[string]int)}
	})
}

// Feed is one telemetry session. A new instance (with a fresh session ID)
// is created each time the feed is enabled.
type Feed struct {
	logger       *slog.Logger
	pingInterval time.Duration
	store        feed.StoreAPI

	mu      sync.Mutex
	session string
	events  map[string]int
	errors  int
}

// BindStore implements feed.StoreBinder.
func (f *Feed) BindStore(s feed.StoreAPI) {
	f.store = s
}

// Init implements feed.Initializer. It stamps the session and, when
// configured, starts the ping loop. The loop lives exactly as long as this
// instance: the context is cancelled when the feed is uninitialized, so a
// disabled feed cannot dispatch stale pings.
func (f *Feed) Init(ctx context.Context) error {
	f.mu.Lock()
	f.session = uuid.NewString()
	f.mu.Unlock()
	f.logger.Debug("Telemetry session started.", "session", f.session)

	if f.pingInterval > 0 {
		go f.pingLoop(ctx)
	}
	return nil
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			f.store.DispatchLater(action.OnlyLocal(action.From(
				action.WithPayload(TypePing, f.Snapshot()), Key)))
		}
	}
}

// OnAction implements feed.ActionHandler.
func (f *Feed) OnAction(a action.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[a.Type]++
	if a.Type == TypeFeedError {
		f.errors++
		if p, ok := a.Payload.(FeedErrorPayload); ok {
			f.logger.Error("Feed failure reported.", "feed", p.Feed, "action", p.ActionType, "message", p.Message)
		}
	}
	return nil
}

// Uninit implements feed.Uninitializer.
func (f *Feed) Uninit() {
	f.logger.Debug("Telemetry session ended.", "session", f.session, "errors", f.errors)
}

// Snapshot returns the current session summary.
func (f *Feed) Snapshot() PingPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make(map[string]int, len(f.events))
	for k, v := range f.events {
		events[k] = v
	}
	return PingPayload{Session: f.session, Events: events, Errors: f.errors}
}
