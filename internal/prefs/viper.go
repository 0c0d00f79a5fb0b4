package prefs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ViperSource is a Source backed by a viper instance, giving feed enablement
// prefs a config file with env-var overrides and live file watching. Keys
// map verbatim onto viper keys, so "feeds.telemetry" is the `telemetry`
// entry of a `feeds` table in the config file or FEEDSTORE_FEEDS_TELEMETRY
// in the environment.
type ViperSource struct {
	v    *viper.Viper
	keys []string

	mu        sync.Mutex
	snapshot  map[string]bool
	observers []Observer
	watching  bool
}

// NewViperSource builds a source watching the given keys on v. The key list
// is fixed up front (it comes from the feed registry), so change detection
// is a simple snapshot diff.
func NewViperSource(v *viper.Viper, keys []string) *ViperSource {
	s := &ViperSource{v: v, keys: keys, snapshot: make(map[string]bool, len(keys))}
	for _, k := range keys {
		if v.IsSet(k) {
			s.snapshot[k] = v.GetBool(k)
		}
	}
	return s
}

// NewViperConfig returns a viper instance configured the way the demo binary
// expects: an optional config file plus FEEDSTORE_-prefixed env overrides.
func NewViperConfig(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDSTORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read pref config: %w", err)
		}
	}
	return v, nil
}

// GetBool implements Source.
func (s *ViperSource) GetBool(key string) (bool, error) {
	if !s.v.IsSet(key) {
		return false, fmt.Errorf("pref %q: %w", key, ErrUnknownPref)
	}
	return s.v.GetBool(key), nil
}

// SetDefault seeds a default value without marking the key as explicitly set
// by the user. Viper's own default layering keeps file and env overrides on
// top.
func (s *ViperSource) SetDefault(key string, value bool) {
	s.v.SetDefault(key, value)
}

// Watch starts viper's config-file watcher and converts file rewrites into
// per-key observer callbacks. It is a no-op without a config file and safe
// to call once.
func (s *ViperSource) Watch() {
	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return
	}
	s.watching = true
	s.mu.Unlock()

	if s.v.ConfigFileUsed() == "" {
		return
	}
	s.v.OnConfigChange(func(fsnotify.Event) {
		s.fireChanged()
	})
	s.v.WatchConfig()
}

// fireChanged diffs the watched keys against the last snapshot and notifies
// observers for every key whose effective value moved.
func (s *ViperSource) fireChanged() {
	s.mu.Lock()
	type change struct {
		key     string
		enabled bool
	}
	var changes []change
	for _, k := range s.keys {
		if !s.v.IsSet(k) {
			continue
		}
		cur := s.v.GetBool(k)
		prev, had := s.snapshot[k]
		if !had || prev != cur {
			s.snapshot[k] = cur
			changes = append(changes, change{key: k, enabled: cur})
		}
	}
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, c := range changes {
		for _, o := range observers {
			o.OnPrefChanged(c.key, c.enabled)
		}
	}
}

// Observe implements Source.
func (s *ViperSource) Observe(o Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.observers {
		if cur == o {
			return nil
		}
	}
	s.observers = append(s.observers, o)
	return nil
}

// StopObserving implements Source.
func (s *ViperSource) StopObserving(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.observers {
		if cur == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}
