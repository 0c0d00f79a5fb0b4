// Package app contains the composition root. It builds an isolated logger,
// loads the feed manifest, assembles the registry, pref source, and relay
// channel, and wires them all into a store, decoupled from any specific
// entrypoint like the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/ctxlog"
	"github.com/vk/feedstore/internal/manifest"
	"github.com/vk/feedstore/internal/prefs"
	"github.com/vk/feedstore/internal/registry"
	"github.com/vk/feedstore/internal/relay"
	"github.com/vk/feedstore/internal/store"
	"github.com/vk/feedstore/modules/telemetry"
)

// App encapsulates one store instance and its collaborators.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	manifest *manifest.Manifest
	registry *registry.Registry
	prefs    *prefs.ViperSource
	relay    store.RelayChannel
	store    *store.Store
}

// NewApp builds a fully wired application. Startup wiring errors (unreadable
// manifest, manifest/registry mismatch) are programmer or deployment errors
// and panic; the entrypoint recovers and turns them into a clean exit.
//
// When modules is empty the core modules declared by the manifest are used.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	m, err := manifest.Load(ctx, cfg.ManifestPath)
	if err != nil {
		panic(fmt.Errorf("failed to load feed manifest: %w", err))
	}
	logger.Debug("Feed manifest loaded.", "feeds", len(m.Entries))

	if len(modules) == 0 {
		modules = coreModules(logger, m)
	}
	reg := registry.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All feed modules registered.", "count", reg.Len())

	if err := m.Validate(reg); err != nil {
		panic(err)
	}
	logger.Debug("Manifest validation passed.")

	source, err := newPrefSource(cfg, m)
	if err != nil {
		panic(fmt.Errorf("failed to build pref source: %w", err))
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		manifest: m,
		registry: reg,
		prefs:    source,
	}
	a.relay = a.newRelayChannel(cfg)

	a.store = store.New(store.Options{
		Reducers:      reducers(),
		Prefs:         source,
		Relay:         a.relay,
		Logger:        logger,
		FeedErrorHook: a.reportFeedError,
	})
	return a
}

// Store returns the wired store. Primarily for tests.
func (a *App) Store() *store.Store {
	return a.store
}

// Registry returns the feed registry. Primarily for tests.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// newPrefSource builds the enablement-signal source: a viper-backed source
// over the optional prefs file plus env overrides, seeded with the manifest
// defaults so a bare deployment runs its default feed set.
func newPrefSource(cfg *Config, m *manifest.Manifest) (*prefs.ViperSource, error) {
	v, err := prefs.NewViperConfig(cfg.PrefsFile)
	if err != nil {
		return nil, err
	}
	source := prefs.NewViperSource(v, m.Keys())
	for _, e := range m.Entries {
		source.SetDefault(e.Key, e.Default)
	}
	return source, nil
}

// newRelayChannel picks the transport: socket.io when a relay URL is
// configured, the in-process loopback otherwise.
func (a *App) newRelayChannel(cfg *Config) store.RelayChannel {
	if cfg.RelayURL == "" {
		return relay.NewLoopback()
	}
	return relay.NewSocketIO(relay.SocketIOConfig{
		URL:       cfg.RelayURL,
		Namespace: cfg.RelayNamespace,
		State: func() map[string]any {
			if a.store == nil {
				return nil
			}
			return a.store.State()
		},
	})
}

// reportFeedError converts a contained feed failure into a local-only
// telemetry action. It runs inside the failing dispatch, so the report is
// deferred rather than dispatched directly. Failures while handling a report
// action are logged only; reporting them again would loop forever on a feed
// that fails every action.
func (a *App) reportFeedError(e *store.FeedNotificationError) {
	if e.ActionType == telemetry.TypeFeedError {
		return
	}
	a.store.DispatchLater(action.OnlyLocal(action.WithPayload(
		telemetry.TypeFeedError,
		telemetry.FeedErrorPayload{Feed: e.Key, ActionType: e.ActionType, Message: e.Err.Error()},
	)))
}
