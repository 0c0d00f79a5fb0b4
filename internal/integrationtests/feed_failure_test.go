package integrationtests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/testutil"
)

func TestApp_FeedFailureIsContainedAndReported(t *testing.T) {
	broken := &testutil.ProbeModule{Key: "feeds.broken", Fail: assert.AnError}
	healthy := &testutil.ProbeModule{Key: "feeds.healthy"}
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `
feed "feeds.broken" {
  default = true
}

feed "feeds.healthy" {
  default = true
}
`,
	}, broken, healthy)
	require.NoError(t, result.Err)
	result.StartStore(t)

	s := result.App.Store()
	require.NoError(t, s.Dispatch(action.New("VISIT")), "feed failures never escape Dispatch")
	s.Flush()

	assert.Contains(t, healthy.Feed.ActionTypes(), "VISIT", "one broken feed does not starve the rest")
	assert.GreaterOrEqual(t, s.FeedErrorCount("feeds.broken"), 2, "bootstrap and visit both failed")
	assert.Zero(t, s.FeedErrorCount("feeds.healthy"))
	assert.Contains(t, result.LogOutput(), "Feed failed to handle action.")
}

func TestApp_FeedsToggleAtRuntime(t *testing.T) {
	mod := &testutil.ProbeModule{Key: "feeds.probe"}
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `feed "feeds.probe" {
  default = true
}`,
	}, mod)
	require.NoError(t, result.Err)
	result.StartStore(t)

	s := result.App.Store()
	s.UninitFeed("feeds.probe")
	require.NoError(t, s.Dispatch(action.New("WHILE_OFF")))
	require.NoError(t, s.InitFeed("feeds.probe"))
	require.NoError(t, s.Dispatch(action.New("AFTER")))

	types := mod.Feed.ActionTypes()
	assert.NotContains(t, types, "WHILE_OFF")
	assert.Contains(t, types, "AFTER")
	assert.Equal(t, 2, mod.Feed.Inits())
	assert.Equal(t, 1, mod.Feed.Uninits())
}
