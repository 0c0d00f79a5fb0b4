package app

import (
	"log/slog"

	"github.com/vk/feedstore/internal/manifest"
	"github.com/vk/feedstore/internal/registry"
	"github.com/vk/feedstore/modules/logger"
	"github.com/vk/feedstore/modules/telemetry"
)

// coreModules maps manifest entries onto the feed modules compiled into this
// binary, handing each its options block. Keys the binary does not know stay
// unregistered and are caught by manifest validation.
func coreModules(log *slog.Logger, m *manifest.Manifest) []registry.Module {
	var mods []registry.Module
	for _, e := range m.Entries {
		switch e.Key {
		case telemetry.Key:
			mods = append(mods, &telemetry.Module{Logger: log, Options: e.Options})
		case logger.Key:
			mods = append(mods, &logger.Module{Logger: log, Options: e.Options})
		}
	}
	return mods
}
