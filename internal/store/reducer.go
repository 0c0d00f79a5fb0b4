package store

import (
	"fmt"
	"sort"

	"github.com/vk/feedstore/internal/action"
)

// Reducer computes the next value of one state slice from the previous value
// and an action. Reducers must be pure: no dispatching, no store access, and
// a returned error is treated as a broken reducer contract that propagates
// out of Dispatch.
type Reducer func(state any, a action.Action) (any, error)

// RootReducer computes a full replacement state tree. The returned map must
// be a fresh value each call; the store never mutates state in place.
type RootReducer func(state map[string]any, a action.Action) (map[string]any, error)

// CombineReducers builds a RootReducer that delegates each named slice to
// its reducer. Slices run in sorted key order so a faulty reducer fails at a
// deterministic point.
func CombineReducers(reducers map[string]Reducer) RootReducer {
	names := make([]string, 0, len(reducers))
	for name := range reducers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(state map[string]any, a action.Action) (map[string]any, error) {
		next := make(map[string]any, len(names))
		for _, name := range names {
			out, err := reducers[name](state[name], a)
			if err != nil {
				return nil, fmt.Errorf("reducer %q failed on action %q: %w", name, a.Type, err)
			}
			next[name] = out
		}
		return next, nil
	}
}
