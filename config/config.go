// Package config parses the server's command-line configuration.
// Grounded on the CLI-flags convention the examples use
// (github.com/spf13/pflag), per spec.md §6's listed flags.
package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Config holds the server's runtime configuration.
type Config struct {
	Listen         string
	CacheSize      int
	DataDir        string
	LogLevel       string
	LockTimeout    time.Duration
	MetricsListen  string
}

// Parse builds a Config from args (pass os.Args[1:] in cmd/xtrieved).
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("xtrieved", pflag.ContinueOnError)

	listen := fs.String("listen", ":7419", "address the server listens on")
	cacheSize := fs.Int("cache-size", 1024, "number of pages held in the shared LRU page cache")
	dataDir := fs.String("data-dir", ".", "directory containing Btrieve files and pre-image logs")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	lockTimeout := fs.Duration("lock-timeout", 30*time.Second, "wait-lock poll timeout")
	metricsListen := fs.String("metrics-listen", "", "address to serve Prometheus metrics on; empty disables metrics")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Config{
		Listen:        *listen,
		CacheSize:     *cacheSize,
		DataDir:       *dataDir,
		LogLevel:      *logLevel,
		LockTimeout:   *lockTimeout,
		MetricsListen: *metricsListen,
	}, nil
}
