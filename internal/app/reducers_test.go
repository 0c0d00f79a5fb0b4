package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/feedstore/internal/action"
)

func TestActivityReducer(t *testing.T) {
	state, err := activityReducer(nil, action.New("VISIT"))
	require.NoError(t, err)
	state, err = activityReducer(state, action.New("VISIT"))
	require.NoError(t, err)
	state, err = activityReducer(state, action.New("SEARCH"))
	require.NoError(t, err)

	activity := state.(Activity)
	assert.Equal(t, 3, activity.Dispatches)
	assert.Equal(t, 2, activity.ByType["VISIT"])
	assert.Equal(t, "SEARCH", activity.LastType)
}

func TestActivityReducer_DoesNotMutatePreviousState(t *testing.T) {
	first, err := activityReducer(nil, action.New("VISIT"))
	require.NoError(t, err)
	_, err = activityReducer(first, action.New("VISIT"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.(Activity).ByType["VISIT"], "earlier snapshots stay frozen")
}

func TestSessionReducer(t *testing.T) {
	state, err := sessionReducer(nil, action.Init())
	require.NoError(t, err)
	assert.True(t, state.(Session).Initialized)

	state, err = sessionReducer(state, action.New("VISIT"))
	require.NoError(t, err)
	assert.True(t, state.(Session).Initialized, "ordinary actions leave the session alone")

	state, err = sessionReducer(state, action.Uninit())
	require.NoError(t, err)
	assert.False(t, state.(Session).Initialized)
}

func TestNewConfig_RequiresManifestPath(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err)

	cfg, err := NewConfig(Config{ManifestPath: "./feeds.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "./feeds.hcl", cfg.ManifestPath)
}
