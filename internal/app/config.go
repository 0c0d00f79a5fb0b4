package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	// ManifestPath points at a feed manifest .hcl file or a directory of
	// them. Required.
	ManifestPath string

	// PrefsFile is an optional config file for feed enablement prefs.
	// Env vars with the FEEDSTORE_ prefix override it either way.
	PrefsFile string

	// RelayURL enables the socket.io relay channel when non-empty.
	RelayURL string

	// RelayNamespace selects the socket.io namespace; "/" when empty.
	RelayNamespace string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
