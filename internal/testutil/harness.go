// Package testutil provides the shared harness for app-level tests: it
// materializes manifest and pref files in a temp directory, builds a real App
// around them, and captures the log output for assertions.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/app"
	"github.com/vk/feedstore/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcome of building an app in the harness.
type HarnessResult struct {
	App *app.App
	Err error
	Log *SafeBuffer
}

// LogOutput returns everything the app has logged so far.
func (r *HarnessResult) LogOutput() string {
	return r.Log.String()
}

// BuildApp materializes files (relative paths like "manifest/feeds.hcl" or
// "prefs.yaml") into a temp directory and constructs an App over them.
// Startup wiring panics are recovered into HarnessResult.Err, so failure
// cases assert on Err instead of crashing the test binary.
//
// When modules is empty the app registers its compiled-in core modules, same
// as a production start.
func BuildApp(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	manifestDir := filepath.Join(tmpDir, "manifest")
	require.NoError(t, os.Mkdir(manifestDir, 0o755))
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := &app.Config{
		ManifestPath: manifestDir,
		LogLevel:     "debug",
		LogFormat:    "text",
	}
	if _, ok := files["prefs.yaml"]; ok {
		cfg.PrefsFile = filepath.Join(tmpDir, "prefs.yaml")
	}

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{Log: logBuffer}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, cfg, modules...)
	}()

	if os.Getenv("FEEDSTORE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	return result
}

// StartStore initializes the built app's store with the standard lifecycle
// actions and registers a cleanup that tears it down, so tests exercise the
// same bootstrap and shutdown path as App.Run without blocking on a context.
func (r *HarnessResult) StartStore(t *testing.T) {
	t.Helper()
	require.NoError(t, r.Err, "cannot start the store of a failed build")

	initAction := action.Init()
	uninitAction := action.Uninit()
	s := r.App.Store()
	require.NoError(t, s.Init(context.Background(), r.App.Registry(), &initAction, &uninitAction))
	t.Cleanup(func() {
		s.Uninit()
		s.Flush()
	})
}
