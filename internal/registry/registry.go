// Package registry maps feed keys to the factories that construct them.
//
// A feed key does double duty: it identifies the registry entry and it names
// the boolean enablement pref that gates the feed ("feeds.telemetry" is both
// the registry key and the pref the store observes). The registry is
// populated once at composition time and treated as read-only after the
// store takes ownership of it in Init.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/feedstore/internal/feed"
)

// TelemetryKey is the registry key the store initializes first when present
// and enabled, so error reporting is live before any other feed runs.
const TelemetryKey = "feeds.telemetry"

// Module is the interface feed packages implement to contribute their
// factories to a registry.
type Module interface {
	Register(r *Registry)
}

// Registry holds the feed factories for a single store instance. Keys keep
// registration order, which is the order feeds are initialized and notified.
type Registry struct {
	factories map[string]feed.Factory
	keys      []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]feed.Factory)}
}

// Register adds a factory under key. Registering the same key twice is a
// programmer error and panics, matching startup-time wiring expectations.
func (r *Registry) Register(key string, factory feed.Factory) {
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("feed factory with key '%s' already registered", key))
	}
	if factory == nil {
		panic(fmt.Sprintf("feed factory with key '%s' is nil", key))
	}
	slog.Debug("Registering feed factory.", "key", key)
	r.factories[key] = factory
	r.keys = append(r.keys, key)
}

// Lookup returns the factory for key, or false when key is unknown.
func (r *Registry) Lookup(key string) (feed.Factory, bool) {
	f, ok := r.factories[key]
	return f, ok
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.factories[key]
	return ok
}

// Keys returns all registered keys in registration order. The returned slice
// is a copy.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of registered feeds.
func (r *Registry) Len() int {
	return len(r.keys)
}
