// Package prefs abstracts the boolean enablement signals that gate feed
// lifecycles. The store only ever asks two things of a pref source: the
// current value of a key, and a callback when any key changes.
package prefs

import "errors"

// ErrUnknownPref is returned by GetBool when the key has never been set and
// has no default. Callers must treat it as an explicit "unknown" sentinel
// rather than assuming false; the store logs it and leaves the feed disabled.
var ErrUnknownPref = errors.New("pref is not set")

// Observer receives change notifications from a Source. The store implements
// this directly.
type Observer interface {
	OnPrefChanged(key string, enabled bool)
}

// Source is the configuration-signal collaborator. Implementations must
// invoke observers for every key whose effective value changes, and must be
// safe to call from any goroutine.
type Source interface {
	// GetBool returns the current value of key, or ErrUnknownPref (possibly
	// wrapped) when the key is unknown.
	GetBool(key string) (bool, error)

	// Observe registers o for change callbacks. Registering the same
	// observer twice is a no-op.
	Observe(o Observer) error

	// StopObserving removes o. Unknown observers are ignored.
	StopObserving(o Observer)
}
