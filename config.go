package forkjoin

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// NumThreadsEnvVar is the environment variable the registry consults
// for the worker count, documented below.
const NumThreadsEnvVar = "FORKJOIN_NUM_THREADS"

// Config configures a Registry. The zero value is not ready to use;
// start from DefaultConfig.
type Config struct {
	// NumWorkers is the number of worker goroutines. Zero means
	// "resolve automatically" (see resolveNumWorkers).
	NumWorkers int

	// WorkerIdleTimeout bounds how long a worker's exponential
	// backoff is allowed to grow to before retrying steal attempts.
	WorkerIdleTimeout time.Duration

	// MaxForeignSubmitters bounds the number of non-worker goroutines
	// that may be concurrently blocked submitting into the injection
	// queue. Zero means unbounded.
	MaxForeignSubmitters int64

	// Logger receives diagnostic events (worker start, each panic in a
	// spawned scope task, registry shutdown). Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults: worker count resolved from
// the environment/config file/hardware parallelism, unbounded foreign
// submitters, and a no-op logger.
func DefaultConfig() Config {
	return Config{
		NumWorkers:           0,
		WorkerIdleTimeout:    2 * time.Millisecond,
		MaxForeignSubmitters: 0,
		Logger:               zap.NewNop(),
	}
}

// fileConfig is the shape of an optional on-disk TOML configuration
// file, consulted between the environment variable and hardware
// parallelism when resolving the worker count.
type fileConfig struct {
	NumWorkers int `toml:"num_workers"`
}

// ConfigFilePath names the optional TOML file consulted for defaults
// not otherwise specified. It is not read unless NumWorkers is not
// positive and the environment variable is unset or not a positive
// integer.
var ConfigFilePath = "forkjoin.toml"

var setMaxProcsOnce sync.Once

// resolveNumWorkers implements the worker-count priority order:
// explicit Config.NumWorkers, then the env var, then
// an optional TOML file, then GOMAXPROCS after letting automaxprocs
// account for container CPU quotas.
func resolveNumWorkers(cfg Config) int {
	if cfg.NumWorkers > 0 {
		return cfg.NumWorkers
	}

	if v := os.Getenv(NumThreadsEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}

	if n, err := numWorkersFromFile(ConfigFilePath); err == nil && n > 0 {
		return n
	}

	setMaxProcsOnce.Do(func() {
		// Best effort: ignore failures (e.g. no cgroup support on
		// this platform), falling back to the OS-reported CPU count.
		_, _ = maxprocs.Set()
	})

	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

func numWorkersFromFile(path string) (int, error) {
	var fc fileConfig
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return 0, fmt.Errorf("forkjoin: decode config file %s: %w", path, err)
	}
	return fc.NumWorkers, nil
}
