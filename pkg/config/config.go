// Package config provides the harvester daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
)

// Config provides the harvester configuration data for the daemon.
type Config struct {
	APIVersion string `json:"api_version"`

	// Directory whose files are tailed. Sub-directories are ignored.
	Directory string `json:"directory"`

	// Address for the status server to listen on.
	// Leave empty to disable the status server.
	Address string `json:"address"`

	// A file's buffered lines trigger a flush of every file
	// once they exceed this number.
	LineThreshold int `json:"line_threshold"`

	// Interval at which every buffered line is flushed.
	HeartbeatInterval metav1.Duration `json:"heartbeat_interval"`

	// Set a non-zero interval to poll the directory instead of relying on
	// inotify (e.g., network mounts).
	PollInterval metav1.Duration `json:"poll_interval"`

	RenamePolicy tailer.RenamePolicy  `json:"rename_policy"`
	FilterPolicy tailer.FilterPolicy  `json:"filter_policy"`
	RemovePolicy watcher.RemovePolicy `json:"remove_policy"`

	// File the batches are written to as JSON lines.
	// If empty, the batches are written to stdout.
	SinkFile string `json:"sink_file"`
	// Size in megabytes at which the sink file is rotated.
	SinkMaxSizeMB int `json:"sink_max_size_mb"`

	LogLevel string `json:"log_level"`
	// If empty, the diagnostic logs go to stdout.
	LogFile string `json:"log_file"`

	// Set true to enable profiler.
	Pprof bool `json:"pprof"`
}

var (
	ErrInvalidDirectory         = errors.New("directory is required")
	ErrInvalidLineThreshold     = errors.New("line_threshold must be positive")
	ErrInvalidHeartbeatInterval = errors.New("heartbeat_interval is too short")
	ErrInvalidPollInterval      = errors.New("poll_interval must not be negative")
	ErrInvalidSinkMaxSize       = errors.New("sink_max_size_mb must not be negative")
)

// MinHeartbeatInterval is the shortest accepted heartbeat interval.
const MinHeartbeatInterval = 100 * time.Millisecond

func (config *Config) Validate() error {
	if config.Directory == "" {
		return ErrInvalidDirectory
	}
	if config.LineThreshold <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidLineThreshold, config.LineThreshold)
	}
	if config.HeartbeatInterval.Duration < MinHeartbeatInterval {
		return fmt.Errorf("%w, must be at least %v, got %v", ErrInvalidHeartbeatInterval, MinHeartbeatInterval, config.HeartbeatInterval.Duration)
	}
	if config.PollInterval.Duration < 0 {
		return fmt.Errorf("%w, got %v", ErrInvalidPollInterval, config.PollInterval.Duration)
	}
	if config.SinkMaxSizeMB < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidSinkMaxSize, config.SinkMaxSizeMB)
	}
	if _, err := tailer.ParseRenamePolicy(string(config.RenamePolicy)); err != nil {
		return err
	}
	if _, err := tailer.ParseFilterPolicy(string(config.FilterPolicy)); err != nil {
		return err
	}
	if _, err := watcher.ParseRemovePolicy(string(config.RemovePolicy)); err != nil {
		return err
	}
	return nil
}

// ExpandPaths resolves a leading "~" in every path field.
func (config *Config) ExpandPaths() error {
	for _, p := range []*string{&config.Directory, &config.SinkFile, &config.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) config file on top of the defaults.
// Fields missing from the file keep their default values.
func LoadConfig(file string, opts ...OpOption) (*Config, error) {
	cfg, err := DefaultConfig(opts...)
	if err != nil {
		return nil, err
	}

	file, err = homedir.Expand(file)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", file, err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML returns the config encoded in YAML.
func (config *Config) YAML() ([]byte, error) {
	return yaml.Marshal(config)
}
