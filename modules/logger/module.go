// Package logger provides a feed that writes every dispatched action to the
// structured log. It is the simplest useful feed and doubles as a worked
// example of the capability contract: it handles actions, reads manifest
// options, and never needs the store back-reference.
package logger

import (
	"log/slog"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/feed"
	"github.com/vk/feedstore/internal/registry"
)

// Key is this feed's registry and pref key.
const Key = "feeds.logger"

// Module implements registry.Module.
type Module struct {
	// Logger receives the action log; nil uses slog.Default.
	Logger *slog.Logger

	// Options come from the feed's manifest block. Recognized:
	// "include_payload" (bool) logs the action payload too.
	Options map[string]any
}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Key, func() feed.Feed {
		l := m.Logger
		if l == nil {
			l = slog.Default()
		}
		includePayload, _ := m.Options["include_payload"].(bool)
		return &Feed{logger: l, includePayload: includePayload}
	})
}

// Feed logs dispatched actions.
type Feed struct {
	logger         *slog.Logger
	includePayload bool
}

// OnAction implements feed.ActionHandler.
func (f *Feed) OnAction(a action.Action) error {
	attrs := []any{"action", a.Type}
	if a.Meta.Source != "" {
		attrs = append(attrs, "source", a.Meta.Source)
	}
	if f.includePayload && a.Payload != nil {
		attrs = append(attrs, "payload", a.Payload)
	}
	f.logger.Info("Action dispatched.", attrs...)
	return nil
}
