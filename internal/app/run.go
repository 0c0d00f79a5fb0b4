package app

import (
	"context"
	"fmt"

	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/ctxlog"
)

// Run initializes the store, watches the pref file for feed toggles, and
// blocks until ctx is cancelled, then tears everything down in order.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	initAction := action.Init()
	uninitAction := action.Uninit()
	if err := a.store.Init(ctx, a.registry, &initAction, &uninitAction); err != nil {
		return fmt.Errorf("store initialization failed: %w", err)
	}
	a.prefs.Watch()
	a.logger.Info("Store running.", "feeds_active", len(a.store.ActiveFeeds()))

	<-ctx.Done()

	a.logger.Info("Shutting down.")
	a.store.Uninit()
	a.store.Flush()
	a.logger.Debug("App.Run method finished.")
	return nil
}
