package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observerSpy struct {
	changes []string
}

func (o *observerSpy) OnPrefChanged(key string, enabled bool) {
	suffix := ":off"
	if enabled {
		suffix = ":on"
	}
	o.changes = append(o.changes, key+suffix)
}

func TestMemory_GetBool(t *testing.T) {
	m := NewMemory(map[string]bool{"feeds.alpha": true, "feeds.beta": false})

	v, err := m.GetBool("feeds.alpha")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = m.GetBool("feeds.beta")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = m.GetBool("feeds.unset")
	assert.ErrorIs(t, err, ErrUnknownPref)
}

func TestMemory_SetNotifiesOnlyOnChange(t *testing.T) {
	m := NewMemory(map[string]bool{"feeds.alpha": true})
	spy := &observerSpy{}
	require.NoError(t, m.Observe(spy))

	m.Set("feeds.alpha", true) // no effective change
	m.Set("feeds.alpha", false)
	m.Set("feeds.beta", true) // first write counts as a change

	assert.Equal(t, []string{"feeds.alpha:off", "feeds.beta:on"}, spy.changes)
}

func TestMemory_SetDefaultNeverOverridesOrNotifies(t *testing.T) {
	m := NewMemory(map[string]bool{"feeds.alpha": false})
	spy := &observerSpy{}
	require.NoError(t, m.Observe(spy))

	m.SetDefault("feeds.alpha", true)
	m.SetDefault("feeds.beta", true)

	v, err := m.GetBool("feeds.alpha")
	require.NoError(t, err)
	assert.False(t, v, "explicit value wins over a default")

	v, err = m.GetBool("feeds.beta")
	require.NoError(t, err)
	assert.True(t, v)

	assert.Empty(t, spy.changes)
}

func TestMemory_ObserveIsIdempotentAndStoppable(t *testing.T) {
	m := NewMemory(nil)
	spy := &observerSpy{}
	require.NoError(t, m.Observe(spy))
	require.NoError(t, m.Observe(spy))

	m.Set("feeds.alpha", true)
	assert.Len(t, spy.changes, 1, "double Observe must not double deliveries")

	m.StopObserving(spy)
	m.Set("feeds.alpha", false)
	assert.Len(t, spy.changes, 1)

	m.StopObserving(spy) // safe when already removed
}
