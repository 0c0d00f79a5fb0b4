package integrationtests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/app"
	"github.com/vk/feedstore/internal/testutil"
)

func TestApp_CoreModulesComeUpFromManifestDefaults(t *testing.T) {
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `
feed "feeds.telemetry" {
  description = "error and event reporting"
  default     = true
}

feed "feeds.logger" {
  default = true
  options {
    include_payload = true
  }
}
`,
	})
	require.NoError(t, result.Err)
	result.StartStore(t)

	assert.ElementsMatch(t, []string{"feeds.telemetry", "feeds.logger"}, result.App.Store().ActiveFeeds())

	require.NoError(t, result.App.Store().Dispatch(action.WithPayload("VISIT", "https://example.test")))
	out := result.LogOutput()
	assert.Contains(t, out, "action=VISIT")
	assert.Contains(t, out, "https://example.test", "logger feed was configured to include payloads")
}

func TestApp_ManifestDefaultFalseKeepsFeedDark(t *testing.T) {
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `
feed "feeds.telemetry" {
  default = false
}
`,
	})
	require.NoError(t, result.Err)
	result.StartStore(t)

	assert.Empty(t, result.App.Store().ActiveFeeds())
}

func TestApp_PrefsFileOverridesManifestDefault(t *testing.T) {
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `
feed "feeds.telemetry" {
  default = true
}
`,
		"prefs.yaml": "feeds:\n  telemetry: false\n",
	})
	require.NoError(t, result.Err)
	result.StartStore(t)

	assert.Empty(t, result.App.Store().ActiveFeeds(), "the pref file wins over the manifest default")
}

func TestApp_StateTreeTracksDispatches(t *testing.T) {
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `feed "feeds.probe" {
  default = true
}`,
	}, &testutil.ProbeModule{Key: "feeds.probe"})
	require.NoError(t, result.Err)
	result.StartStore(t)

	s := result.App.Store()
	require.NoError(t, s.Dispatch(action.New("VISIT")))
	require.NoError(t, s.Dispatch(action.New("VISIT")))

	session, ok := s.State()["session"].(app.Session)
	require.True(t, ok)
	assert.True(t, session.Initialized)

	activity, ok := s.State()["activity"].(app.Activity)
	require.True(t, ok)
	assert.Equal(t, 3, activity.Dispatches, "bootstrap plus two visits")
	assert.Equal(t, 2, activity.ByType["VISIT"])
	assert.Equal(t, "VISIT", activity.LastType)
}

func TestApp_ProbeFeedSeesBootstrapAndActions(t *testing.T) {
	mod := &testutil.ProbeModule{Key: "feeds.probe"}
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `feed "feeds.probe" {
  default = true
}`,
	}, mod)
	require.NoError(t, result.Err)
	result.StartStore(t)

	require.NoError(t, result.App.Store().Dispatch(action.New("VISIT")))

	assert.Equal(t, []string{action.TypeInit, "VISIT"}, mod.Feed.ActionTypes())
	assert.Equal(t, 1, mod.Feed.Inits())
	assert.NotNil(t, mod.Feed.Store(), "the app binds the store into capable feeds")
}

func TestNewApp_PanicsOnManifestRegistryMismatch(t *testing.T) {
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `feed "feeds.unknown" {}`,
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "no Go factory is registered")
}

func TestNewApp_PanicsOnBrokenManifest(t *testing.T) {
	result := testutil.BuildApp(t, map[string]string{
		"manifest/feeds.hcl": `feed "feeds.telemetry" {`,
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "application startup panicked")
}
