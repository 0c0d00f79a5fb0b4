package app

import (
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/store"
)

// Activity is the "activity" state slice: a running summary of dispatches.
type Activity struct {
	Dispatches int
	ByType     map[string]int
	LastType   string
}

// Session is the "session" state slice, tracking store lifecycle.
type Session struct {
	Initialized bool
}

// reducers assembles the default state tree. Both reducers return fresh
// values; the previous state is never mutated.
func reducers() map[string]store.Reducer {
	return map[string]store.Reducer{
		"activity": activityReducer,
		"session":  sessionReducer,
	}
}

func activityReducer(state any, a action.Action) (any, error) {
	prev, _ := state.(Activity)
	next := Activity{
		Dispatches: prev.Dispatches + 1,
		ByType:     make(map[string]int, len(prev.ByType)+1),
		LastType:   a.Type,
	}
	for k, v := range prev.ByType {
		next.ByType[k] = v
	}
	next.ByType[a.Type]++
	return next, nil
}

func sessionReducer(state any, a action.Action) (any, error) {
	prev, _ := state.(Session)
	switch a.Type {
	case action.TypeInit:
		return Session{Initialized: true}, nil
	case action.TypeUninit:
		return Session{Initialized: false}, nil
	}
	return prev, nil
}
