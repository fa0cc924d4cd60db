// Package config loads run settings from defaults, an optional YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/soyunomas/relinker/internal/engine"
	"github.com/soyunomas/relinker/internal/fault"
	"github.com/soyunomas/relinker/internal/hasher"
	"github.com/soyunomas/relinker/internal/planner"
	"github.com/soyunomas/relinker/internal/scanner"
)

const (
	delimiter = "."
	EnvPrefix = "RELINKER_"
)

type Config struct {
	Hash HashConfig `koanf:"hash"`
	Scan ScanConfig `koanf:"scan"`
	Plan PlanConfig `koanf:"plan"`
	Run  RunConfig  `koanf:"run"`
}

type HashConfig struct {
	Algorithm string `koanf:"algorithm"`
	ChunkSize string `koanf:"chunk_size"`
	Workers   int    `koanf:"workers"`
}

type ScanConfig struct {
	MinSize  string   `koanf:"min_size"`
	Exclude  []string `koanf:"exclude"`
	Parallel bool     `koanf:"parallel"`
	// Workers is used by the parallel walk; 0 picks the walker's default.
	Workers int `koanf:"workers"`
}

type PlanConfig struct {
	Keep string `koanf:"keep"`
}

type RunConfig struct {
	DryRun bool `koanf:"dry_run"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"hash.algorithm":  "sha256",
		"hash.chunk_size": "4KiB",
		"hash.workers":    runtime.NumCPU(),
		"scan.min_size":   "0",
		"scan.exclude":    []string{},
		"scan.parallel":   false,
		"scan.workers":    0,
		"plan.keep":       planner.KeepOldest.String(),
		"run.dry_run":     false,
	}
}

// Source lists the optional layers above the defaults.
type Source struct {
	// File is a YAML file; empty skips the layer.
	File string
	// Flags holds keys explicitly set on the command line.
	Flags map[string]interface{}
}

// Load merges every layer of src over the defaults.
func Load(src Source) (*Config, error) {
	k := koanf.New(delimiter)

	if err := k.Load(confmap.Provider(Defaults(), delimiter), nil); err != nil {
		return nil, errors.Wrap(err, "failed loading defaults")
	}

	if src.File != "" {
		if _, err := os.Stat(src.File); err != nil {
			return nil, fault.Usage("config file %q: %v", src.File, err)
		}
		if err := k.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed loading config file %q", src.File)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, delimiter, envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed loading environment")
	}

	if len(src.Flags) > 0 {
		if err := k.Load(confmap.Provider(src.Flags, delimiter), nil); err != nil {
			return nil, errors.Wrap(err, "failed loading flags")
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fault.Usage("invalid configuration: %v", err)
	}
	return cfg, nil
}

// envKey maps RELINKER_HASH__CHUNK_SIZE to hash.chunk_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", delimiter)
}

// EngineOptions validates the configuration and converts it for the engine.
// Every failure is a usage error.
func (c *Config) EngineOptions() (engine.Options, error) {
	var opts engine.Options

	alg, err := hasher.Lookup(c.Hash.Algorithm)
	if err != nil {
		return opts, fault.Usage("hash.algorithm: %v", err)
	}

	chunk, err := parseSize("hash.chunk_size", c.Hash.ChunkSize)
	if err != nil {
		return opts, err
	}
	if chunk == 0 || chunk > 64*humanize.MiByte {
		return opts, fault.Usage("hash.chunk_size must be between 1B and 64MiB, got %q", c.Hash.ChunkSize)
	}

	if c.Hash.Workers < 0 {
		return opts, fault.Usage("hash.workers must not be negative, got %d", c.Hash.Workers)
	}

	if c.Scan.Workers < 0 {
		return opts, fault.Usage("scan.workers must not be negative, got %d", c.Scan.Workers)
	}

	minSize, err := parseSize("scan.min_size", c.Scan.MinSize)
	if err != nil {
		return opts, err
	}

	keep, err := planner.ParseStrategy(c.Plan.Keep)
	if err != nil {
		return opts, fault.Usage("plan.keep: %v", err)
	}

	excludes := make([]string, 0, len(c.Scan.Exclude))
	for _, e := range c.Scan.Exclude {
		if e = strings.TrimSpace(e); e != "" {
			excludes = append(excludes, e)
		}
	}

	return engine.Options{
		Scan: scanner.Config{
			MinSize:  int64(minSize),
			Excludes: excludes,
			Parallel: c.Scan.Parallel,
			Workers:  c.Scan.Workers,
		},
		Algorithm: alg.Name,
		ChunkSize: int(chunk),
		Workers:   c.Hash.Workers,
		Strategy:  keep,
		DryRun:    c.Run.DryRun,
	}, nil
}

func parseSize(key, v string) (uint64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(v))
	if err != nil {
		return 0, fault.Usage("%s: invalid size %q", key, v)
	}
	return n, nil
}
