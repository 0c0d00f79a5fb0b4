package store

import (
	"errors"
	"fmt"
)

// ErrCollaboratorUnavailable marks an external collaborator (pref source,
// relay channel) that could not be reached at Init time. The store degrades
// gracefully when it sees this: the failure is logged and the affected stage
// simply stays dark.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// ErrAlreadyInitialized is returned by Init when the store has already been
// initialized and not yet uninitialized.
var ErrAlreadyInitialized = errors.New("store already initialized")

// ConfigurationError reports an initFeed call for a key absent from the
// registry. This is a programmer error (registry and key out of sync), so it
// aborts the offending operation with a diagnostic rather than degrading.
type ConfigurationError struct {
	Key string

	// Suggestion is the closest registered key, when one is plausibly
	// close, for hashicorp-style "did you mean" diagnostics.
	Suggestion string
}

func (e *ConfigurationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("no feed factory registered for key %q (did you mean %q?)", e.Key, e.Suggestion)
	}
	return fmt.Sprintf("no feed factory registered for key %q", e.Key)
}

// FeedNotificationError wraps a failure (returned error or recovered panic)
// from a single feed's OnAction handler. It is contained at the feed
// boundary: logged, counted, and reported through the store's error hook,
// never propagated out of Dispatch.
type FeedNotificationError struct {
	Key        string
	ActionType string
	Err        error
}

func (e *FeedNotificationError) Error() string {
	return fmt.Sprintf("feed %q failed handling action %q: %v", e.Key, e.ActionType, e.Err)
}

func (e *FeedNotificationError) Unwrap() error {
	return e.Err
}
