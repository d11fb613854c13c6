// Package config loads tsdev's per-workspace options from the workspace
// root's package.json, under the "tsdev" key, using viper the same way
// the teacher tool reads its own YAML manifest.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultExtensions is the recognized source extension list used when
// neither the config's Extensions nor Esbuild.ResolveExtensions is set.
var DefaultExtensions = []string{".tsx", ".ts", ".jsx", ".mjs", ".cjs", ".js"}

// DefaultIgnore is applied in addition to the hardcoded node_modules and
// **/*.d.ts exclusions spec.md always enforces.
var DefaultIgnore = []string{}

// EsbuildOptions mirrors the nested esbuild.resolveExtensions override
// documented in spec.md §3.
type EsbuildOptions struct {
	ResolveExtensions []string `mapstructure:"resolveExtensions"`
}

// ProjectConfig is spec.md §3's ProjectConfig, read once per session.
type ProjectConfig struct {
	Extensions []string       `mapstructure:"extensions"`
	Ignore     []string       `mapstructure:"ignore"`
	Esbuild    EsbuildOptions `mapstructure:"esbuild"`
}

// ResolvedExtensions returns, in priority order: Esbuild.ResolveExtensions
// if set, else Extensions if set, else DefaultExtensions.
func (c *ProjectConfig) ResolvedExtensions() []string {
	if len(c.Esbuild.ResolveExtensions) > 0 {
		return c.Esbuild.ResolveExtensions
	}
	if len(c.Extensions) > 0 {
		return c.Extensions
	}
	return DefaultExtensions
}

// Load reads workspaceRoot/package.json's "tsdev" key. A missing file or
// missing key is not an error; it yields the zero ProjectConfig, whose
// accessors fall back to package defaults.
func Load(workspaceRoot string) (*ProjectConfig, error) {
	v := viper.New()
	v.SetConfigName("package")
	v.SetConfigType("json")
	v.AddConfigPath(workspaceRoot)

	cfg := &ProjectConfig{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Join(workspaceRoot, "package.json"), err)
	}

	sub := v.Sub("tsdev")
	if sub == nil {
		return cfg, nil
	}

	if err := sub.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing package.json's \"tsdev\" key: %w", err)
	}

	// viper's slice unmarshalling occasionally drops values set only via
	// Sub(); re-read them explicitly the way the teacher's own Load()
	// works around the same viper behavior for its scan_paths/ignore
	// fields.
	if sub.IsSet("extensions") && len(cfg.Extensions) == 0 {
		if vals := sub.GetStringSlice("extensions"); len(vals) > 0 {
			cfg.Extensions = vals
		}
	}
	if sub.IsSet("ignore") && len(cfg.Ignore) == 0 {
		if vals := sub.GetStringSlice("ignore"); len(vals) > 0 {
			cfg.Ignore = vals
		}
	}
	if len(cfg.Ignore) == 0 {
		cfg.Ignore = DefaultIgnore
	}

	return cfg, nil
}
