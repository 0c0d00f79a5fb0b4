// Package action defines the typed message that flows through the store's
// dispatch pipeline. An action is the sole unit of communication between the
// store, its reducers, and its feeds.
package action

// Reserved lifecycle action types. Every feed may special-case these in its
// OnAction handler.
const (
	TypeInit   = "INIT"
	TypeUninit = "UNINIT"
)

// Meta carries optional provenance and routing hints for an action. The
// zero value is valid and means "ordinary local action".
type Meta struct {
	// Source names the feed key (or collaborator) that produced the action.
	Source string

	// MessageID is assigned by the relay channel when the action is
	// mirrored across the transport boundary; empty for local actions.
	MessageID string

	// SkipRelay keeps the action off the relay stage. Set on actions that
	// only make sense inside this process.
	SkipRelay bool
}

// Action is an immutable typed message. Treat a dispatched action as frozen:
// neither reducers nor feeds may modify it or its payload.
type Action struct {
	Type    string
	Payload any
	Meta    Meta
}

// New returns an action of the given type with no payload.
func New(actionType string) Action {
	return Action{Type: actionType}
}

// WithPayload returns an action of the given type carrying payload.
func WithPayload(actionType string, payload any) Action {
	return Action{Type: actionType, Payload: payload}
}

// OnlyLocal returns a copy of a that the relay stage will not mirror.
func OnlyLocal(a Action) Action {
	a.Meta.SkipRelay = true
	return a
}

// From returns a copy of a stamped with the originating feed key.
func From(a Action, source string) Action {
	a.Meta.Source = source
	return a
}

// Init returns the reserved bootstrap action.
func Init() Action { return New(TypeInit) }

// Uninit returns the reserved teardown action.
func Uninit() Action { return New(TypeUninit) }
