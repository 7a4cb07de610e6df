package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: MORPH_SOURCE__PASSWORD sets source.password.
const EnvPrefix = "MORPH_"

// flagKeys maps flag names whose config key differs.
var flagKeys = map[string]string{
	"state": "state_path",
}

// Load reads configuration from defaults, the config file, the environment
// and explicitly set flags, in increasing precedence. Relative paths from
// the config file are resolved against its directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"mapping":    DefaultMapping,
		"state_path": DefaultStateFile,
		"batch_size": DefaultBatchSize,
		"workers":    DefaultWorkers,
		"verbose":    false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	base := ""
	if used != "" {
		base = filepath.Dir(used)
	}
	changed := func(name string) bool { return flags != nil && flags.Changed(name) }
	if !changed("mapping") {
		cfg.Mapping = resolvePathRelativeTo(cfg.Mapping, base)
	}
	if !changed("state") {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base)
	}

	for _, db := range []*DatabaseConfig{cfg.Source, cfg.Target} {
		if db == nil {
			continue
		}
		expandDatabaseEnvVars(db)
		db.ApplyDefaults()
		if db.Path != ":memory:" {
			db.Path = resolvePathRelativeTo(db.Path, base)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// findConfigFile returns the explicit path, which must exist, or the first
// default config file in the working directory.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns; unknown variables are left as is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandDatabaseEnvVars expands environment variables in connection fields.
func expandDatabaseEnvVars(d *DatabaseConfig) {
	d.Host = expandEnvVars(d.Host)
	d.User = expandEnvVars(d.User)
	d.Password = expandEnvVars(d.Password)
	d.Database = expandEnvVars(d.Database)
	d.Path = expandEnvVars(d.Path)
	for k, v := range d.Options {
		d.Options[k] = expandEnvVars(v)
	}
}
