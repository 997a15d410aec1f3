package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the optional resolver config file.
const ConfigFileName = "formulacore.yaml"

// EnvPrefix is the prefix environment-provided options must carry, e.g.
// FORMULACORE_BATCH_WINDOW_MS.
const EnvPrefix = "FORMULACORE_"

// Load builds Options by layering, lowest to highest priority:
// built-in defaults, an optional formulacore.yaml in dir, environment
// variables under EnvPrefix, and flags already parsed onto fs (if fs is
// non-nil). Later layers override earlier ones.
func Load(dir string, fs *pflag.FlagSet) (Options, error) {
	k := koanf.New(".")

	defaultsMap := map[string]interface{}{
		"batch_window_ms": DefaultBatchWindowMS,
		"schema_ttl_ms":   DefaultSchemaTTLMS,
		"debug_log":       false,
	}
	if err := k.Load(confmap.Provider(defaultsMap, "."), nil); err != nil {
		return Options{}, err
	}

	if path := findConfigFile(dir); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Options{}, err
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Options{}, err
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Options{}, err
		}
	}

	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return Options{}, err
	}
	opts.ApplyDefaults()
	return opts, nil
}

func findConfigFile(dir string) string {
	if dir == "" {
		return ""
	}
	path := dir + string(os.PathSeparator) + ConfigFileName
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
