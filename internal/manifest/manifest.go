// Package manifest loads the HCL files that declare which feeds a deployment
// knows about. Each `feed` block names a registry key, its default
// enablement, and free-form options the feed's factory may consume:
//
//	feed "feeds.telemetry" {
//	  description = "error and event reporting"
//	  default     = true
//	  options {
//	    sample_rate = 10
//	  }
//	}
//
// Manifest order (file order, then block order within a file) defines
// registry order, which in turn fixes feed initialization and notification
// order for a run.
package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/feedstore/internal/ctxlog"
	"github.com/vk/feedstore/internal/fsutil"
	"github.com/vk/feedstore/internal/registry"
)

// Entry is one declared feed.
type Entry struct {
	Key         string
	Description string
	Default     bool
	Options     map[string]any
}

// Manifest is the ordered set of declared feeds.
type Manifest struct {
	Entries []Entry
}

// hclManifestFile is the top-level decode target for one manifest file.
type hclManifestFile struct {
	Feeds []*hclFeed `hcl:"feed,block"`
}

type hclFeed struct {
	Key         string          `hcl:"key,label"`
	Description string          `hcl:"description,optional"`
	Default     bool            `hcl:"default,optional"`
	Options     *hclOptionsBody `hcl:"options,block"`
}

type hclOptionsBody struct {
	Body hcl.Body `hcl:",remain"`
}

// Load parses path (a single .hcl file or a directory of them) into a
// Manifest. Duplicate keys across files are rejected.
func Load(ctx context.Context, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to locate manifest files under %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl manifest files found under %s", path)
	}

	parser := hclparse.NewParser()
	m := &Manifest{}
	seen := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", file, diags)
		}
		var parsed hclManifestFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}
		for _, f := range parsed.Feeds {
			if prev, dup := seen[f.Key]; dup {
				return nil, fmt.Errorf("feed %q declared in both %s and %s", f.Key, prev, file)
			}
			seen[f.Key] = file

			options, err := decodeOptions(f.Options)
			if err != nil {
				return nil, fmt.Errorf("feed %q in %s: %w", f.Key, file, err)
			}
			m.Entries = append(m.Entries, Entry{
				Key:         f.Key,
				Description: f.Description,
				Default:     f.Default,
				Options:     options,
			})
		}
		logger.Debug("Manifest file loaded.", "file", file, "feeds", len(parsed.Feeds))
	}
	return m, nil
}

// Keys returns the declared keys in manifest order.
func (m *Manifest) Keys() []string {
	keys := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Entry returns the entry for key, or false.
func (m *Manifest) Entry(key string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Validate performs a strict parity check between the manifest and the Go
// registry: every declared feed must have a registered factory and every
// registered factory must be declared. A mismatch is a wiring error and
// fails startup.
func (m *Manifest) Validate(reg *registry.Registry) error {
	var errs []string
	declared := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		declared[e.Key] = struct{}{}
		if !reg.Has(e.Key) {
			errs = append(errs, fmt.Sprintf("feed %q: declared in manifest, but no Go factory is registered", e.Key))
		}
	}
	for _, key := range reg.Keys() {
		if _, ok := declared[key]; !ok {
			errs = append(errs, fmt.Sprintf("feed %q: Go factory registered, but not declared in any manifest", key))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("manifest validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
